// Package httpclient provides the rate-limited, cached document fetcher
// behind the same-origin proxy endpoint and the viewer's detection path.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	userAgent = "marginalia/1.0 (+https://github.com/ternarybob/marginalia)"

	cacheKeyPrefix = "proxy:"
)

// Fetcher fetches remote documents with a shared outbound rate limit, a
// response size cap and a badger-backed cache keyed by URL.
type Fetcher struct {
	config  common.ProxyConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   interfaces.KeyValueStorage
	logger  arbor.ILogger
}

var _ interfaces.ContentFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher. cache may be nil to disable caching.
func NewFetcher(config common.ProxyConfig, cache interfaces.KeyValueStorage, logger arbor.ILogger) *Fetcher {
	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		cache:   cache,
		logger:  logger,
	}
}

// Fetch returns the document at url, serving repeat requests from cache.
// The response body is capped at the configured size; larger documents fail
// rather than being truncated.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*interfaces.FetchResult, error) {
	cacheKey := cacheKeyPrefix + rawURL

	if f.cache != nil {
		if body, err := f.cache.Get(ctx, cacheKey); err == nil {
			return &interfaces.FetchResult{
				Body:        body,
				ContentType: sniffContentType("", body),
				FinalURL:    rawURL,
				FromCache:   true,
			}, nil
		} else if !errors.Is(err, interfaces.ErrKeyNotFound) {
			f.logger.Warn().Err(err).Str("url", rawURL).Msg("Proxy cache lookup failed")
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch failed: upstream returned %s", resp.Status)
	}

	body, err := f.readCapped(resp.Body)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	result := &interfaces.FetchResult{
		Body:        body,
		ContentType: sniffContentType(resp.Header.Get("Content-Type"), body),
		FinalURL:    finalURL,
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, cacheKey, body, rawURL); err != nil {
			f.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to cache proxied document")
		}
	}

	f.logger.Debug().
		Str("url", rawURL).
		Str("content_type", result.ContentType).
		Int("size", len(body)).
		Msg("Document fetched")

	return result, nil
}

// readCapped reads the body up to the configured cap, failing when exceeded
func (f *Fetcher) readCapped(r io.Reader) ([]byte, error) {
	if f.config.MaxBodySize <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, f.config.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("response exceeds size limit of %d bytes", f.config.MaxBodySize)
	}
	return body, nil
}

// sniffContentType prefers the upstream header and falls back to content
// detection; a missing header must not misclassify a PDF as octet-stream.
func sniffContentType(header string, body []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && !strings.HasPrefix(header, "application/octet-stream") {
		return header
	}
	if len(body) >= 5 && string(body[:5]) == "%PDF-" {
		return "application/pdf"
	}
	if header != "" {
		return header
	}
	return http.DetectContentType(body)
}
