package models

// TextRun is one fragment of extracted text on one page. x,y are the
// baseline-origin position in PDF user-space units. Page dimensions are
// duplicated onto every run so percentage math is self-contained.
type TextRun struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FontSize   float64 `json:"fontSize"`
	PageIndex  int     `json:"pageIndex"`
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
}

// PageTextMap maps page index to that page's text runs in reading order
// (top-to-bottom lines, left-to-right within a line). Built once per document
// load and treated as immutable afterwards.
type PageTextMap struct {
	Pages map[int][]TextRun `json:"pages"`
}

// NewPageTextMap creates an empty text map
func NewPageTextMap() *PageTextMap {
	return &PageTextMap{Pages: make(map[int][]TextRun)}
}

// RunsForPage returns the ordered runs of one page; nil for unknown pages
func (m *PageTextMap) RunsForPage(pageIndex int) []TextRun {
	return m.Pages[pageIndex]
}

// PageCount returns the number of pages that produced at least one run
func (m *PageTextMap) PageCount() int {
	return len(m.Pages)
}

// TotalRuns returns the run count across all pages. Zero means client-side
// extraction found nothing and the server-side fallback should be tried.
func (m *PageTextMap) TotalRuns() int {
	total := 0
	for _, runs := range m.Pages {
		total += len(runs)
	}
	return total
}

// ReadingPosition is the transient read-aloud cursor. Reset to zero on
// open/stop, advanced by word-boundary events, discarded on close.
type ReadingPosition struct {
	SentenceIndex int `json:"sentenceIndex"`
	WordIndex     int `json:"wordIndex"`
	CharIndex     int `json:"charIndex"`
	PageNumber    int `json:"pageNumber"` // 1-based
}
