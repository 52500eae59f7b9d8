// Package catalog talks to the remote board-game catalog: paginated HTML
// listing pages and the per-item XML detail endpoint.
//
// Every call is a single attempt. Callers decide what a failure means.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/meeple/internal/adapters/pacing"
	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultBaseURL   = "https://boardgamegeek.com"
	defaultUserAgent = "meeple-recommender/1.0"
	defaultTimeout   = 20 * time.Second
	defaultPageGap   = time.Second
	defaultDetailGap = 500 * time.Millisecond

	maxBodyBytes = 8 << 20

	listingSelector = ".collection_table .collection_thumbnail"
)

// Client fetches listing pages and item details.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	pages     pacing.Pacer
	details   pacing.Pacer
	logger    logger.Logger
}

// New creates a catalog client. Without pacer options the client spaces
// listing pages by one second and detail requests by half a second.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		logger:    logger.Get().Named("catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.pages == nil {
		c.pages = pacing.NewInterval(defaultPageGap)
	}
	if c.details == nil {
		c.details = pacing.NewInterval(defaultDetailGap)
	}
	return c
}

// ListPage returns the entries of listing page n (1-based) in page order.
// Rows without a usable id are skipped; a page with no rows is empty, not an
// error.
func (c *Client) ListPage(ctx context.Context, page int) ([]model.ListingEntry, error) {
	const op = "catalog.list_page"
	if page < 1 {
		return nil, model.WrapKind(op, model.ErrValidation, fmt.Errorf("page %d", page))
	}
	if err := c.pages.Wait(ctx); err != nil {
		return nil, model.WrapKind(op, model.ErrFetch, err)
	}

	body, err := c.get(ctx, "listing", fmt.Sprintf("%s/browse/boardgame/page/%d", c.baseURL, page))
	if err != nil {
		return nil, model.WrapKind(op, model.ErrFetch, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, model.WrapKind(op, model.ErrParse, err)
	}

	entries := make([]model.ListingEntry, 0, 100)
	doc.Find(listingSelector).Each(func(_ int, row *goquery.Selection) {
		id := idFromHref(rowHref(row))
		if id == "" {
			c.logger.Debug(ctx, "skipping listing row without id", logger.Int("page", page))
			return
		}
		img, _ := row.Find("img").First().Attr("src")
		entries = append(entries, model.ListingEntry{ID: id, Image: strings.TrimSpace(img)})
	})

	metrics.RecordListingPage(len(entries))
	c.logger.Debug(ctx, "listing page fetched", logger.Int("page", page), logger.Int("entries", len(entries)))
	return entries, nil
}

// rowHref prefers the enclosing anchor and falls back to the first link
// inside the row.
func rowHref(row *goquery.Selection) string {
	if parent := row.Parent(); goquery.NodeName(parent) == "a" {
		if href, ok := parent.Attr("href"); ok {
			return href
		}
	}
	href, _ := row.Find("a[href]").First().Attr("href")
	return href
}

// idFromHref extracts "174430" from "/boardgame/174430/gloomhaven". Absolute
// URLs are accepted.
func idFromHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		href = u.Path
	}
	parts := strings.Split(href, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[2])
}

// FetchDetail returns the metadata of one item.
func (c *Client) FetchDetail(ctx context.Context, id string) (model.Detail, error) {
	const op = "catalog.fetch_detail"
	if strings.TrimSpace(id) == "" {
		return model.Detail{}, model.NewKind(op, model.ErrValidation)
	}
	if err := c.details.Wait(ctx); err != nil {
		return model.Detail{}, model.WrapKind(op, model.ErrFetch, err)
	}

	q := url.Values{}
	q.Set("id", id)
	q.Set("stats", "1")
	body, err := c.get(ctx, "detail", c.baseURL+"/xmlapi2/thing?"+q.Encode())
	if err != nil {
		return model.Detail{}, model.WrapKind(op, model.ErrFetch, err)
	}

	d, err := parseThing(body)
	if err != nil {
		return model.Detail{}, model.WrapKind(op, model.ErrParse, fmt.Errorf("item %s: %w", id, err))
	}
	metrics.RecordDetailFetched()
	return d, nil
}

func (c *Client) get(ctx context.Context, endpoint, target string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFetchLatency(endpoint, float64(time.Since(start).Milliseconds()))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %s %d", ErrUnexpectedStatus, endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// parseWeight reads a decimal weight; anything unparsable or non-finite is 0.
func parseWeight(s string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}
