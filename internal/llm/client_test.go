package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	client := New("test-api-key", "https://api.test.com", "test-model", 0.7, 1000)

	if client.apiKey != "test-api-key" {
		t.Errorf("Expected apiKey 'test-api-key', got '%s'", client.apiKey)
	}
	if client.baseURL != "https://api.test.com" {
		t.Errorf("Expected baseURL 'https://api.test.com', got '%s'", client.baseURL)
	}
	if client.model != "test-model" {
		t.Errorf("Expected model 'test-model', got '%s'", client.model)
	}
	if client.temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %f", client.temperature)
	}
	if client.maxTokens != 1000 {
		t.Errorf("Expected maxTokens 1000, got %d", client.maxTokens)
	}
}

func TestNew_TrimTrailingSlash(t *testing.T) {
	client := New("key", "https://api.test.com/", "model", 0.7, 1000)

	if client.baseURL != "https://api.test.com" {
		t.Errorf("Expected baseURL without trailing slash, got '%s'", client.baseURL)
	}
}

func TestClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected path /v1/chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header, got %s", r.Header.Get("Authorization"))
		}

		var reqBody chatRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if reqBody.Model != "test-model" {
			t.Errorf("Expected model 'test-model', got '%s'", reqBody.Model)
		}
		if len(reqBody.Messages) != 1 {
			t.Errorf("Expected 1 message, got %d", len(reqBody.Messages))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"object": "chat.completion",
			"created": ` + jsonNow() + `,
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Hello! How can I help you?"},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	client := New("test-key", server.URL, "test-model", 0.7, 1000)

	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Content != "Hello! How can I help you?" {
		t.Errorf("Expected response content, got '%s'", resp.Content)
	}
}

func TestClient_Chat_WithTools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody chatRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}

		if len(reqBody.Tools) != 1 {
			t.Errorf("Expected 1 tool, got %d", len(reqBody.Tools))
		}
		if reqBody.Tools[0].Function.Name != "gmail_list_messages" {
			t.Errorf("Expected tool gmail_list_messages, got %s", reqBody.Tools[0].Function.Name)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"object": "chat.completion",
			"created": ` + jsonNow() + `,
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "gmail_list_messages", "arguments": "{\"query\": \"is:unread\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer server.Close()

	client := New("test-key", server.URL, "test-model", 0, 1000)

	tools := []Tool{{
		Type: "function",
		Function: ToolFunction{
			Name:        "gmail_list_messages",
			Description: "List Gmail messages",
			Parameters:  map[string]any{"type": "object"},
		},
	}}

	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "unread mail?"}}, tools)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Function.Name != "gmail_list_messages" {
		t.Errorf("Expected tool call gmail_list_messages, got %s", resp.ToolCalls[0].Function.Name)
	}
}

func TestClient_Chat_TemperatureOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody chatRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if reqBody.Temperature != 0 {
			t.Errorf("Expected temperature 0, got %f", reqBody.Temperature)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "ok"},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	// Client configured at 0.7; the per-request option must win
	client := New("key", server.URL, "test-model", 0.7, 1000)

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil, WithTemperature(0))
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestClient_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := New("bad-key", server.URL, "test-model", 0, 1000)

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("Expected status in error, got: %v", err)
	}
}

func TestClient_Chat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "test-id", "choices": []}`))
	}))
	defer server.Close()

	client := New("key", server.URL, "test-model", 0, 1000)

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if err == nil {
		t.Fatal("Expected error for empty choices")
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Errorf("Expected empty response error, got: %v", err)
	}
}

func TestClient_Chat_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	client := New("key", server.URL, "test-model", 0, 1000)

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "Hello"}}, nil)
	if err == nil {
		t.Fatal("Expected error for error field in response")
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("Expected API error message, got: %v", err)
	}
}

func jsonNow() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
