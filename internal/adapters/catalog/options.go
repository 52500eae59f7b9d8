package catalog

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/meeple/internal/adapters/pacing"
	"github.com/okian/meeple/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the catalog root, e.g. "https://boardgamegeek.com".
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each request. Ignored when WithHTTPClient is also used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPagePacer sets the pacer consulted before every listing page request.
func WithPagePacer(p pacing.Pacer) Option {
	return func(c *Client) {
		if p != nil {
			c.pages = p
		}
	}
}

// WithDetailPacer sets the pacer consulted before every detail request.
func WithDetailPacer(p pacing.Pacer) Option {
	return func(c *Client) {
		if p != nil {
			c.details = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
