package interfaces

import "context"

// PageViewport holds the unscaled (scale=1.0) dimensions of one page in PDF
// user-space units.
type PageViewport struct {
	Width  float64
	Height float64
}

// RawTextRun is one glyph/text-run record as produced by the rendering
// library, before position extraction. Transform is the 6-element affine
// matrix [scaleX, skewX, skewY, scaleY, x, y]. Width and Height may be zero
// when the renderer does not supply glyph metrics; the extractor estimates
// them in that case.
type RawTextRun struct {
	Text      string
	Transform [6]float64
	Width     float64
	Height    float64
}

// PageContent is the raw, unordered text content of one page together with
// its viewport.
type PageContent struct {
	Viewport PageViewport
	Runs     []RawTextRun
}

// DocumentSource is the opaque handle to a loaded PDF document. Extraction
// treats it as best-effort: a failing page is skipped, not fatal.
type DocumentSource interface {
	NumPages() int
	PageContent(ctx context.Context, pageIndex int) (*PageContent, error)
}

// DocumentOpener turns fetched PDF bytes into a DocumentSource
type DocumentOpener interface {
	Open(ctx context.Context, pdf []byte) (DocumentSource, error)
}

// TextExtractor is the server-side plain-text fallback used when positioned
// extraction yields no runs.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte, maxPages int) (string, error)
}
