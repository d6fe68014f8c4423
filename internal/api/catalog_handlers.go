package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/service"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search albums",
		Description: "Searches the music catalog for albums released in a year",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchCatalog)
}

// SearchCatalogInput contains query parameters for catalog search.
type SearchCatalogInput struct {
	Query    string `query:"q" doc:"Search terms"`
	Year     int    `query:"year" doc:"Release year to keep"`
	Category string `query:"category" doc:"Category the results will be pooled into"`
}

// SearchCatalogResponse contains catalog results.
type SearchCatalogResponse struct {
	Provider string         `json:"provider" doc:"Catalog provider"`
	Albums   []domain.Album `json:"albums" doc:"Matching albums"`
}

// SearchCatalogOutput wraps the search response for Huma.
type SearchCatalogOutput struct {
	Body SearchCatalogResponse
}

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*SearchCatalogOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if s.services.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("Catalog search is not configured")
	}

	albums, err := s.services.Catalog.Search(ctx, userID, service.SearchRequest{
		Query:    input.Query,
		Year:     input.Year,
		Category: domain.Category(input.Category),
	})
	if err != nil {
		return nil, err
	}
	if albums == nil {
		albums = []domain.Album{}
	}

	return &SearchCatalogOutput{
		Body: SearchCatalogResponse{
			Provider: s.services.Catalog.Provider(),
			Albums:   albums,
		},
	}, nil
}
