// Package goodreads is the catalog adapter for the Goodreads XML API. It turns
// search and book responses into normalized domain records and keeps no state
// between calls.
package goodreads

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ablbsk/bookworm-api/internal/domain"
	domainerrors "github.com/ablbsk/bookworm-api/internal/errors"
	"github.com/ablbsk/bookworm-api/internal/normalize"
	"github.com/ablbsk/bookworm-api/internal/ratelimit"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// Config holds the catalog connection parameters.
type Config struct {
	BaseURL   string
	APIKey    string
	PageSize  int
	RPS       float64
	Burst     int
	Timeout   time.Duration
	UserAgent string
}

// Client is a rate-limited Goodreads API client.
type Client struct {
	http    *http.Client
	cfg     Config
	base    *url.URL
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a new Goodreads client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url %q", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "bookworm-api/1.0"
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		base:    base,
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		logger:  logger,
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Search runs a free-text catalog search and returns one page of summaries.
func (c *Client) Search(ctx context.Context, query string, page int) (*domain.CatalogSearchPage, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))

	var resp searchResponse
	if err := c.get(ctx, "/search/index.xml", params, &resp); err != nil {
		return nil, toDomainError(wrapError("search", "", err), "")
	}

	works := resp.Search.Works
	if c.cfg.PageSize > 0 && len(works) > c.cfg.PageSize {
		works = works[:c.cfg.PageSize]
	}

	result := &domain.CatalogSearchPage{
		Query:            query,
		Page:             page,
		TotalResults:     normalize.Int(resp.Search.TotalResults),
		QueryTimeSeconds: normalize.Float(resp.Search.QueryTimeSeconds),
		Results:          make([]domain.CatalogSummary, 0, len(works)),
	}
	for i := range works {
		summary, ok := summaryFromWork(&works[i])
		if !ok {
			continue
		}
		result.Results = append(result.Results, summary)
	}

	return result, nil
}

// Fetch retrieves one book by its catalog id.
func (c *Client) Fetch(ctx context.Context, externalID string) (*domain.CatalogRecord, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("id", externalID)

	var resp bookResponse
	if err := c.get(ctx, "/book/show.xml", params, &resp); err != nil {
		return nil, toDomainError(wrapError("fetch", externalID, err), externalID)
	}
	if resp.Book.empty() {
		return nil, toDomainError(wrapError("fetch", externalID, ErrNotFound), externalID)
	}

	record := recordFromBook(resp.Book)
	if record.ExternalID == "" {
		record.ExternalID = externalID
	}
	return record, nil
}

// get executes a rate-limited GET and decodes the XML envelope into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx, c.base.Host); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("catalog request",
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	envelope := struct {
		XMLName xml.Name `xml:"GoodreadsResponse"`
	}{}
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// toDomainError maps adapter failures onto the service error taxonomy. A
// missing resource is NOT_FOUND only for lookups by id; anything else that
// 404s is an upstream fault.
func toDomainError(err error, externalID string) error {
	if externalID != "" && domainerrors.Is(err, ErrNotFound) {
		return domainerrors.NotFoundf("book %s not found in catalog", externalID).WithCause(err)
	}
	op := "request"
	var ge *Error
	if domainerrors.As(err, &ge) {
		op = ge.Op
	}
	return domainerrors.Upstream(err, "catalog "+op+" failed")
}
