package convo

import (
	"fmt"
	"strings"
	"sync"
)

// Tracker maintains the rolling plain-text context fed into every LLM call.
// The text grows one "Interaction N" block per exchange and is compressed by
// word count once it exceeds maxWords, keeping the newest words.
type Tracker struct {
	store    Store
	maxWords int

	mu        sync.Mutex
	sessionID string
	buf       string
	count     int
}

// NewTracker creates a tracker bound to the latest session in store,
// creating one if none exists. Prior interactions are replayed into the
// context so restarts keep continuity.
func NewTracker(store Store, maxWords int) (*Tracker, error) {
	if maxWords <= 0 {
		maxWords = 1000
	}

	t := &Tracker{
		store:    store,
		maxWords: maxWords,
	}

	session, err := store.GetLatestSession()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session == nil {
		sessionID, err := store.CreateSession()
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		t.sessionID = sessionID
		return t, nil
	}

	t.sessionID = session.ID

	interactions, err := store.GetInteractions(session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	for _, in := range interactions {
		t.extend(in.UserInput, in.ModelReply)
	}

	return t, nil
}

// Context returns the current conversation context text
func (t *Tracker) Context() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf
}

// Append persists one exchange and extends the context
func (t *Tracker) Append(userInput, modelReply string) error {
	if err := t.store.AppendInteraction(t.sessionID, &Interaction{
		SessionID:  t.sessionID,
		UserInput:  userInput,
		ModelReply: modelReply,
	}); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.extend(userInput, modelReply)
	return nil
}

// Reset clears the current session's context and starts a fresh session
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.ClearSession(t.sessionID); err != nil {
		return err
	}

	sessionID, err := t.store.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	t.sessionID = sessionID
	t.buf = ""
	t.count = 0
	return nil
}

// SessionID returns the bound session ID
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// extend appends one interaction block and compresses if needed.
// Caller holds t.mu (or has exclusive access during construction).
func (t *Tracker) extend(userInput, modelReply string) {
	t.count++
	t.buf += fmt.Sprintf("\nInteraction %d:\nUser: %s", t.count, userInput)
	if modelReply != "" {
		t.buf += fmt.Sprintf("\nModel: %s", modelReply)
	}

	if words := strings.Fields(t.buf); len(words) > t.maxWords {
		// Keep the newest words; interaction numbering restarts after a
		// compression, matching a shortened context
		t.buf = strings.Join(words[len(words)-t.maxWords:], " ")
		t.count = 0
	}
}
