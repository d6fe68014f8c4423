package spotify

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

const searchLimit = 20

// Search finds full albums released in year. A rejected token is refreshed
// and the search retried once; no other failure is retried.
func (c *Client) Search(ctx context.Context, query string, year int, category domain.Category) ([]domain.Album, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Album{}, nil
	}
	if !c.Configured() {
		return nil, domainerrors.ProviderUnavailable(c.Name(), errNotConfigured)
	}

	items, err := c.search(ctx, query, year)
	if errors.Is(err, errUnauthorized) {
		c.logger.Info("spotify token rejected, re-authenticating")
		items, err = c.search(ctx, query, year)
	}
	if errors.Is(err, errUnauthorized) {
		return nil, domainerrors.ProviderUnavailable(c.Name(), err)
	}
	if err != nil {
		return nil, err
	}

	albums := make([]domain.Album, 0, len(items))
	for i := range items {
		if album, ok := toAlbum(&items[i], year, category); ok {
			albums = append(albums, album)
		}
	}
	return albums, nil
}

func (c *Client) search(ctx context.Context, query string, year int) ([]albumItem, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.ProviderUnavailable(c.Name(), err)
	}

	params := url.Values{}
	params.Set("q", query+" year:"+strconv.Itoa(year))
	params.Set("type", "album")
	params.Set("limit", strconv.Itoa(searchLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	c.logger.Debug("searching Spotify", "query", query, "year", year)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.ProviderUnavailable(c.Name(), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.invalidate(token)
		return nil, errUnauthorized
	case http.StatusTooManyRequests:
		return nil, domainerrors.RateLimited(c.Name())
	default:
		return nil, domainerrors.ProviderUnavailable(c.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.UnmarshalRead(resp.Body, &body); err != nil {
		return nil, domainerrors.ProviderUnavailable(c.Name(), fmt.Errorf("parse response: %w", err))
	}
	return body.Albums.Items, nil
}

func toAlbum(item *albumItem, year int, category domain.Category) (domain.Album, bool) {
	if item.AlbumType != "album" {
		return domain.Album{}, false
	}
	released, ok := releaseYear(item.ReleaseDate)
	if !ok || released != year {
		return domain.Album{}, false
	}

	names := make([]string, len(item.Artists))
	for i, a := range item.Artists {
		names[i] = a.Name
	}

	var cover string
	if len(item.Images) > 0 {
		cover = item.Images[0].URL // largest first
	}

	return domain.Album{
		ID:          item.ID,
		Title:       item.Name,
		Artist:      strings.Join(names, ", "),
		ReleaseYear: released,
		CoverURL:    cover,
		Category:    category,
	}, true
}

// releaseYear reads the year from a date of any Spotify precision.
func releaseYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}
