package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/yearlist-server/internal/catalog"
	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

type fixedProvider []domain.Album

func (fixedProvider) Name() string { return "fixed" }

func (p fixedProvider) Search(context.Context, string, int, domain.Category) ([]domain.Album, error) {
	return append([]domain.Album(nil), p...), nil
}

func TestCatalogService_Search(t *testing.T) {
	svc := NewCatalogService(catalog.New(fixedProvider{
		{ID: "1", Title: "Multitude", Artist: "Stromae"},
	}, slog.New(slog.DiscardHandler)))
	ctx := context.Background()

	got, err := svc.Search(ctx, "user-1", SearchRequest{Query: "multitude", Year: 2022, Category: domain.CategoryFrench})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CategoryFrench, got[0].Category)
	assert.Equal(t, "fixed", svc.Provider())

	_, err = svc.Search(ctx, "", SearchRequest{Query: "x", Year: 2022, Category: domain.CategoryFrench})
	assert.ErrorIs(t, err, domainerrors.ErrNoScope)

	_, err = svc.Search(ctx, "user-1", SearchRequest{Query: "x", Year: 2022})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
