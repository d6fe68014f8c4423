package spotify

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/yearlist-server/internal/catalog"
)

const (
	tokenEndpoint  = "https://accounts.spotify.com/api/token"
	searchEndpoint = "https://api.spotify.com/v1/search"

	// Tokens are refreshed this long before Spotify expires them.
	expiryMargin = 5 * time.Minute
)

var (
	errNotConfigured = errors.New("spotify client credentials not configured")
	errUnauthorized  = errors.New("spotify rejected the access token")
)

var _ catalog.Provider = (*Client)(nil)

// Config holds the application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
}

// Client is a rate-limited Spotify search client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	cfg         Config
	tokenURL    string
	searchURL   string
	now         func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient creates a Spotify client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:      logger,
		cfg:         cfg,
		tokenURL:    tokenEndpoint,
		searchURL:   searchEndpoint,
		now:         time.Now,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string {
	return "spotify"
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}
