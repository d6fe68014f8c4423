// Package catalog resolves free-text album searches against an external
// music catalog and cleans up the results for the pool.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/metrics"
)

// Provider is an external album catalog.
// Implementations are side-effect free and must distinguish an empty
// result from a failure.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, year int, category domain.Category) ([]domain.Album, error)
}

// Catalog wraps a Provider with input checks, deduplication and relevance
// ordering.
type Catalog struct {
	provider Provider
	logger   *slog.Logger
}

// New creates a Catalog over provider.
func New(provider Provider, logger *slog.Logger) *Catalog {
	return &Catalog{provider: provider, logger: logger}
}

// Provider returns the name of the backing provider.
func (c *Catalog) Provider() string {
	return c.provider.Name()
}

// Search finds albums released in year matching query. The category is
// stamped on every result since providers know nothing about it.
// A blank query returns no results without contacting the provider.
func (c *Catalog) Search(ctx context.Context, query string, year int, category domain.Category) ([]domain.Album, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Album{}, nil
	}
	if !category.Valid() {
		return nil, domainerrors.Validationf("unknown category %q", category)
	}
	if year <= 0 {
		return nil, domainerrors.Validationf("invalid year %d", year)
	}

	start := time.Now()
	albums, err := c.provider.Search(ctx, query, year, category)
	metrics.RecordCatalogRequest(c.provider.Name(), requestStatus(err), time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("catalog search failed",
			"provider", c.provider.Name(),
			"query", query,
			"year", year,
			"error", err,
		)
		return nil, err
	}

	for i := range albums {
		albums[i].Category = category
	}

	unique := Dedupe(albums)
	RankByQuery(query, unique)

	c.logger.Debug("catalog search",
		"provider", c.provider.Name(),
		"query", query,
		"year", year,
		"results", len(albums),
		"unique", len(unique),
	)
	return unique, nil
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domainerrors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
