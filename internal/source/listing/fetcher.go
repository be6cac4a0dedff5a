package listing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"news_pusher/internal/domain"
)

const maxPageBytes = 8 << 20

// FetcherConfig holds listing page fetch settings.
type FetcherConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher downloads the listing page with a single GET.
type Fetcher struct {
	httpClient *http.Client
	url        string
	userAgent  string
	logger     *slog.Logger
}

// NewFetcher creates a new listing page fetcher.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "fetcher"),
	}
}

// URL returns the page being fetched.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch returns the raw page body. Transport errors and non-2xx statuses are
// reported as domain.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrFetch, err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status: %d", domain.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrFetch, err)
	}

	f.logger.Debug("fetched page",
		"url", f.url,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	return body, nil
}
