package spotify

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

const searchFixture = `{"albums": {"items": [
  {"id": "al1", "name": "Multitude", "album_type": "album", "release_date": "2024-03-04",
   "artists": [{"name": "Stromae"}, {"name": "Pomme"}], "images": [{"url": "https://i.scdn.co/640", "width": 640, "height": 640}]},
  {"id": "si1", "name": "Santé", "album_type": "single", "release_date": "2024-01-01", "artists": [{"name": "Stromae"}]},
  {"id": "al2", "name": "Old", "album_type": "album", "release_date": "2013", "artists": [{"name": "Stromae"}]}
]}}`

type fakeSpotify struct {
	tokenCalls  atomic.Int32
	searchCalls atomic.Int32
	// rejectFirst makes the first search answer 401.
	rejectFirst bool
	// searchStatus overrides the search response status when set.
	searchStatus int
	lastQuery    atomic.Value
}

func (f *fakeSpotify) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			f.tokenCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600}`))
		case "/search":
			n := f.searchCalls.Add(1)
			f.lastQuery.Store(r.URL.Query().Get("q"))
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if f.rejectFirst && n == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if f.searchStatus != 0 {
				w.WriteHeader(f.searchStatus)
				return
			}
			_, _ = w.Write([]byte(searchFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, f *fakeSpotify, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	c := NewClient(cfg, slog.New(slog.DiscardHandler))
	c.httpClient = server.Client()
	c.tokenURL = server.URL + "/token"
	c.searchURL = server.URL + "/search"
	c.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

var creds = Config{ClientID: "id", ClientSecret: "secret"}

func TestSearch_AlbumsOfYear(t *testing.T) {
	f := &fakeSpotify{}
	c := newTestClient(t, f, creds)

	albums, err := c.Search(context.Background(), "stromae", 2024, domain.CategoryInternational)
	require.NoError(t, err)

	assert.Equal(t, "stromae year:2024", f.lastQuery.Load())
	require.Len(t, albums, 1)
	assert.Equal(t, domain.Album{
		ID:          "al1",
		Title:       "Multitude",
		Artist:      "Stromae, Pomme",
		ReleaseYear: 2024,
		CoverURL:    "https://i.scdn.co/640",
		Category:    domain.CategoryInternational,
	}, albums[0])
}

func TestSearch_CachesToken(t *testing.T) {
	f := &fakeSpotify{}
	c := newTestClient(t, f, creds)

	for range 3 {
		_, err := c.Search(context.Background(), "x", 2024, domain.CategoryFrench)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestSearch_ReauthenticatesOnceOn401(t *testing.T) {
	f := &fakeSpotify{rejectFirst: true}
	c := newTestClient(t, f, creds)

	albums, err := c.Search(context.Background(), "x", 2024, domain.CategoryFrench)
	require.NoError(t, err)
	assert.Len(t, albums, 1)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
	assert.Equal(t, int32(2), f.searchCalls.Load())
}

func TestSearch_PersistentRejectionIsUnavailable(t *testing.T) {
	f := &fakeSpotify{searchStatus: http.StatusUnauthorized}
	c := newTestClient(t, f, creds)

	_, err := c.Search(context.Background(), "x", 2024, domain.CategoryFrench)
	assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)
	assert.Equal(t, int32(2), f.searchCalls.Load(), "exactly one retry")
}

func TestSearch_Errors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		c := newTestClient(t, &fakeSpotify{searchStatus: http.StatusTooManyRequests}, creds)
		_, err := c.Search(context.Background(), "x", 2024, domain.CategoryFrench)
		assert.ErrorIs(t, err, domainerrors.ErrRateLimited)
	})

	t.Run("bad credentials", func(t *testing.T) {
		c := newTestClient(t, &fakeSpotify{}, Config{ClientID: "id", ClientSecret: "wrong"})
		_, err := c.Search(context.Background(), "x", 2024, domain.CategoryFrench)
		assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		f := &fakeSpotify{}
		c := newTestClient(t, f, Config{})
		_, err := c.Search(context.Background(), "x", 2024, domain.CategoryFrench)
		assert.ErrorIs(t, err, domainerrors.ErrProviderUnavailable)
		assert.Zero(t, f.searchCalls.Load())
	})
}
