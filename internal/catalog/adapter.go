package catalog

import (
	"context"
	"sync"

	"github.com/opang/workmate/internal/toolserver"
)

// Fetcher fetches the tool catalog from the tool-execution service
type Fetcher interface {
	FetchCatalog(ctx context.Context) (toolserver.Catalog, error)
}

// Adapter holds the tool catalog for the lifetime of the process. The
// catalog is fetched on first use and cached after a successful fetch; a
// failed fetch is retried on the next call so a command issued while the
// tool service was briefly down does not poison the session. Tool selection
// never proceeds against an empty catalog.
type Adapter struct {
	fetcher Fetcher

	mu     sync.Mutex
	cached toolserver.Catalog
}

// NewAdapter creates a catalog adapter around fetcher
func NewAdapter(fetcher Fetcher) *Adapter {
	return &Adapter{fetcher: fetcher}
}

// Get returns the cached catalog, fetching it if necessary
func (a *Adapter) Get(ctx context.Context) (toolserver.Catalog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil {
		return a.cached, nil
	}

	cat, err := a.fetcher.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(cat) == 0 {
		return nil, toolserver.ErrCatalogUnavailable
	}

	a.cached = cat
	return a.cached, nil
}

// Warm eagerly fetches the catalog, typically at process start
func (a *Adapter) Warm(ctx context.Context) error {
	_, err := a.Get(ctx)
	return err
}
