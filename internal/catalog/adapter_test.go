package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/opang/workmate/internal/toolserver"
)

// fakeFetcher scripts FetchCatalog responses and counts calls
type fakeFetcher struct {
	calls   int
	catalog toolserver.Catalog
	err     error
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context) (toolserver.Catalog, error) {
	f.calls++
	return f.catalog, f.err
}

func TestAdapter_CachesAfterSuccess(t *testing.T) {
	fetcher := &fakeFetcher{
		catalog: toolserver.Catalog{{Name: "gmail_list_messages"}},
	}
	adapter := NewAdapter(fetcher)

	for i := 0; i < 3; i++ {
		cat, err := adapter.Get(context.Background())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(cat) != 1 {
			t.Fatalf("Expected 1 tool, got %d", len(cat))
		}
	}

	if fetcher.calls != 1 {
		t.Errorf("Expected exactly 1 fetch, got %d", fetcher.calls)
	}
}

func TestAdapter_RetriesAfterFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: toolserver.ErrCatalogUnavailable}
	adapter := NewAdapter(fetcher)

	if _, err := adapter.Get(context.Background()); !errors.Is(err, toolserver.ErrCatalogUnavailable) {
		t.Fatalf("Expected ErrCatalogUnavailable, got %v", err)
	}

	// Service recovers; the next Get must fetch again instead of
	// remembering the failure
	fetcher.err = nil
	fetcher.catalog = toolserver.Catalog{{Name: "calendar_list_events"}}

	cat, err := adapter.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after recovery failed: %v", err)
	}
	if len(cat) != 1 {
		t.Errorf("Expected 1 tool after recovery, got %d", len(cat))
	}
	if fetcher.calls != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.calls)
	}
}

func TestAdapter_RejectsEmptyCatalog(t *testing.T) {
	fetcher := &fakeFetcher{catalog: toolserver.Catalog{}}
	adapter := NewAdapter(fetcher)

	_, err := adapter.Get(context.Background())
	if !errors.Is(err, toolserver.ErrCatalogUnavailable) {
		t.Errorf("Expected ErrCatalogUnavailable for empty catalog, got %v", err)
	}
}

func TestAdapter_Warm(t *testing.T) {
	fetcher := &fakeFetcher{
		catalog: toolserver.Catalog{{Name: "gmail_list_messages"}},
	}
	adapter := NewAdapter(fetcher)

	if err := adapter.Warm(context.Background()); err != nil {
		t.Fatalf("Warm failed: %v", err)
	}
	if _, err := adapter.Get(context.Background()); err != nil {
		t.Fatalf("Get after Warm failed: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected Warm to populate the cache, got %d fetches", fetcher.calls)
	}
}
