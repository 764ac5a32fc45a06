package models

import "time"

// AnnotationType classifies a persisted user artifact
type AnnotationType string

const (
	AnnotationHighlight AnnotationType = "highlight"
	AnnotationNote      AnnotationType = "note"
	AnnotationFlashcard AnnotationType = "flashcard"
)

// IsValid reports whether the type is one of the known annotation kinds
func (t AnnotationType) IsValid() bool {
	switch t {
	case AnnotationHighlight, AnnotationNote, AnnotationFlashcard:
		return true
	}
	return false
}

// HighlightArea is a percentage-based rectangle used both for rendering
// overlays and for persisting annotation geometry. left/top/width/height are
// percentages (0-100) of the unrotated page dimensions.
type HighlightArea struct {
	PageIndex int     `json:"pageIndex"`
	Left      float64 `json:"left"`
	Top       float64 `json:"top"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Clamp returns the area forced into the 0-100 percentage range. Renderer
// supplied selection regions may be noisy, so out-of-range values are clamped
// rather than rejected.
func (a HighlightArea) Clamp() HighlightArea {
	if a.Left < 0 {
		a.Left = 0
	}
	if a.Top < 0 {
		a.Top = 0
	}
	if a.Width < 0 {
		a.Width = 0
	}
	if a.Height < 0 {
		a.Height = 0
	}
	if a.Left > 100 {
		a.Left = 100
	}
	if a.Top > 100 {
		a.Top = 100
	}
	if a.Left+a.Width > 100 {
		a.Width = 100 - a.Left
	}
	if a.Top+a.Height > 100 {
		a.Height = 100 - a.Top
	}
	return a
}

// Annotation is a persisted user artifact attached to one paper. A selection
// spanning multiple lines yields multiple highlight areas.
type Annotation struct {
	ID             string          `json:"id" badgerhold:"key"`
	PaperID        string          `json:"paper_id" badgerhold:"index"`
	Type           AnnotationType  `json:"type"`
	Text           string          `json:"text"`
	HighlightAreas []HighlightArea `json:"highlightAreas"`
	PageNumber     int             `json:"pageNumber"` // 1-based, highlightAreas[0].PageIndex+1
	Color          string          `json:"color"`
	Note           string          `json:"note,omitempty"`
	Label          string          `json:"label,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
