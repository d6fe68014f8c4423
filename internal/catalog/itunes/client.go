package itunes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/yearlist-server/internal/catalog"
)

const (
	searchBaseURL  = "https://itunes.apple.com/search"
	defaultCountry = "FR"
)

var _ catalog.Provider = (*Client)(nil)

// Client provides access to the iTunes Search API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	baseURL     string
	country     string
}

// NewClient creates a new iTunes client for a storefront country.
// Rate limited to 20 requests per minute as recommended by Apple.
func NewClient(country string, logger *slog.Logger) *Client {
	if country == "" {
		country = defaultCountry
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// 20 requests per minute = 1 request per 3 seconds, burst of 5
		rateLimiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
		logger:      logger,
		baseURL:     searchBaseURL,
		country:     country,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string {
	return "itunes"
}

// wait blocks until rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}
