package interfaces

import "context"

// FetchResult is one document fetched through the proxy path
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string // after redirects
	FromCache   bool
}

// ContentFetcher fetches remote documents on behalf of the viewer, applying
// the proxy's rate limit, size cap and cache.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Article is the readable rendition of an HTML page
type Article struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// ArticleRenderer converts fetched HTML into a readable article for the
// html-fallback viewer mode.
type ArticleRenderer interface {
	Render(ctx context.Context, html []byte, sourceURL string) (*Article, error)
}
