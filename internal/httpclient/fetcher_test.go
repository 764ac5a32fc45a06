package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.entries[key]; ok {
		return v, nil
	}
	return nil, interfaces.ErrKeyNotFound
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.sets++
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memCache) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func testConfig() common.ProxyConfig {
	return common.ProxyConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1024,
		RatePerSecond:  100,
		CacheTTL:       time.Hour,
	}
}

func TestFetch_ReturnsBodyAndContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 data"))
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil, arbor.NewLogger())
	result, err := fetcher.Fetch(context.Background(), server.URL+"/paper.pdf")
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.4 data"), result.Body)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.False(t, result.FromCache)
}

func TestFetch_UpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil, arbor.NewLogger())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_BodySizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil, arbor.NewLogger())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestFetch_SecondRequestServedFromCache(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("%PDF-1.4 cached"))
	}))
	defer server.Close()

	cache := newMemCache()
	fetcher := NewFetcher(testConfig(), cache, arbor.NewLogger())

	first, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, "application/pdf", second.ContentType)
	assert.Equal(t, 1, hits)
}

func TestFetch_CancelledContext(t *testing.T) {
	fetcher := NewFetcher(testConfig(), nil, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, "https://example.org/paper.pdf")
	assert.Error(t, err)
}

func TestSniffContentType(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   []byte
		want   string
	}{
		{"header wins", "text/html; charset=utf-8", []byte("<html>"), "text/html; charset=utf-8"},
		{"pdf magic overrides octet-stream", "application/octet-stream", []byte("%PDF-1.7"), "application/pdf"},
		{"pdf magic without header", "", []byte("%PDF-1.7"), "application/pdf"},
		{"detected html", "", []byte("<html><body></body></html>"), "text/html; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffContentType(tt.header, tt.body))
		})
	}
}
