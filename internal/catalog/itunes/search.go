package itunes

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

// searchLimit is the maximum iTunes allows; results are filtered by year
// afterwards so a wide net is needed.
const searchLimit = 200

// Search finds full albums and EPs released in year.
// Singles are dropped: a " - Single" suffix or a single track marks them.
func (c *Client) Search(ctx context.Context, query string, year int, category domain.Category) ([]domain.Album, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Album{}, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "music")
	params.Set("entity", "album")
	params.Set("country", c.country)
	params.Set("limit", strconv.Itoa(searchLimit))

	searchURL := c.baseURL + "?" + params.Encode()

	c.logger.Debug("searching iTunes",
		"query", query,
		"year", year,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.ProviderUnavailable(c.Name(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	// Apple answers 403 when a client exceeds its quota.
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
		return nil, domainerrors.RateLimited(c.Name())
	default:
		return nil, domainerrors.ProviderUnavailable(c.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var searchResp searchResponse
	if err := json.UnmarshalRead(resp.Body, &searchResp); err != nil {
		return nil, domainerrors.ProviderUnavailable(c.Name(), fmt.Errorf("parse response: %w", err))
	}

	c.logger.Debug("iTunes search results",
		"query", query,
		"count", searchResp.ResultCount,
	)

	albums := make([]domain.Album, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		r := &searchResp.Results[i]
		if album, ok := toAlbum(r, year, category); ok {
			albums = append(albums, album)
		}
	}
	return albums, nil
}

// toAlbum converts a result, reporting false for anything that is not an
// album released in year.
func toAlbum(r *searchResult, year int, category domain.Category) (domain.Album, bool) {
	if r.WrapperType != "" && r.WrapperType != "collection" {
		return domain.Album{}, false
	}
	released, ok := releaseYear(r.ReleaseDate)
	if !ok || released != year {
		return domain.Album{}, false
	}
	if isSingle(r) {
		return domain.Album{}, false
	}

	artwork := r.ArtworkURL100
	if artwork == "" {
		artwork = r.ArtworkURL60
	}

	return domain.Album{
		ID:          strconv.FormatInt(r.CollectionID, 10),
		Title:       r.CollectionName,
		Artist:      r.ArtistName,
		ReleaseYear: released,
		CoverURL:    CoverURL(artwork, CoverSize),
		Category:    category,
	}, true
}

func releaseYear(date string) (int, bool) {
	if date == "" {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return 0, false
	}
	return t.UTC().Year(), true
}

// isSingle reports whether a collection is a single. Two-track singles
// (radio edit plus instrumental) usually carry the suffix.
func isSingle(r *searchResult) bool {
	if strings.Contains(strings.ToLower(r.CollectionName), " - single") {
		return true
	}
	return r.TrackCount == 1
}
