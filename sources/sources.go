// Package sources defines the upstream connector interfaces the batch
// consumes. Concrete HTTP/scraping clients live outside this module; the
// pipeline only depends on these contracts and treats a failed or malformed
// response as a recoverable per-record or per-source condition.
package sources

import (
	"context"
	"sync"

	"carpulse/models"
)

// CatalogSource yields model/spec snapshots from a manufacturer catalog API.
type CatalogSource interface {
	Name() string
	FetchCatalog(ctx context.Context) ([]models.RawCatalogRecord, error)
}

// SalesSource yields (model, month, volume/rank) tuples from the retail
// aggregator.
type SalesSource interface {
	Name() string
	FetchSales(ctx context.Context, yearMonth string) ([]models.RawSalesRecord, error)
}

// TrendSource yields (model, month, index) tuples for one trend provider.
// Two independent providers are polled per run; either may fail alone.
type TrendSource interface {
	Name() string
	FetchInterest(ctx context.Context, yearMonth string) ([]models.RawTrendRecord, error)
}

// RegistrySource yields aggregate registration counts from the public
// registry feed.
type RegistrySource interface {
	Name() string
	FetchStats(ctx context.Context, yearMonth string) ([]models.RawRegistryRecord, error)
}

// BlogSource yields article metadata plus raw HTML for a model's recent
// coverage.
type BlogSource interface {
	Name() string
	FetchArticles(ctx context.Context) ([]models.RawBlogRecord, error)
}

var (
	regMu      sync.Mutex
	registered = make(map[string]any)
)

// Register installs a connector under its config id. Connector packages call
// this from init; the daemon matches ids against config/sources at startup.
func Register(id string, conn any) {
	regMu.Lock()
	defer regMu.Unlock()
	registered[id] = conn
}

func Registered(id string) (any, bool) {
	regMu.Lock()
	defer regMu.Unlock()
	conn, ok := registered[id]
	return conn, ok
}
