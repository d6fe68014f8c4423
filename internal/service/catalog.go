package service

import (
	"context"

	"github.com/listenupapp/yearlist-server/internal/catalog"
	"github.com/listenupapp/yearlist-server/internal/domain"
)

// CatalogService exposes album search to signed-in users.
type CatalogService struct {
	catalog *catalog.Catalog
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(c *catalog.Catalog) *CatalogService {
	return &CatalogService{catalog: c}
}

// SearchRequest is an album search for one year and category.
type SearchRequest struct {
	Query    string          `json:"query" validate:"max=200"`
	Year     int             `json:"year" validate:"year"`
	Category domain.Category `json:"category" validate:"required,category"`
}

// Search finds albums in the configured catalog.
func (s *CatalogService) Search(ctx context.Context, userID string, req SearchRequest) ([]domain.Album, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	return s.catalog.Search(ctx, req.Query, req.Year, req.Category)
}

// Provider names the catalog backing searches.
func (s *CatalogService) Provider() string {
	return s.catalog.Provider()
}
