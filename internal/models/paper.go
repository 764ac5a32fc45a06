package models

import "time"

// Paper is a tracked document, keyed by ID and unique by source URL. One
// paper owns all annotations created against it.
type Paper struct {
	ID           string    `json:"id" badgerhold:"key"`
	URL          string    `json:"url" badgerhold:"index"`
	Title        string    `json:"title"`
	CollectionID string    `json:"collection_id,omitempty"`
	PageCount    int       `json:"page_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ViewerMode is the resolved presentation mode of one viewer session
type ViewerMode string

const (
	ModeDetecting    ViewerMode = "detecting"
	ModePDFDirect    ViewerMode = "pdf-direct"
	ModeHTMLFallback ViewerMode = "html-fallback"
	ModeExternalLink ViewerMode = "external-link"
	ModeError        ViewerMode = "error"
)

// PageRotation is a page's display rotation in degrees clockwise
type PageRotation int

const (
	Rotate0   PageRotation = 0
	Rotate90  PageRotation = 90
	Rotate180 PageRotation = 180
	Rotate270 PageRotation = 270
)

// Normalize folds any degree value into one of the four supported rotations.
// Values that are not a multiple of 90 fall back to unrotated.
func (r PageRotation) Normalize() PageRotation {
	n := int(r) % 360
	if n < 0 {
		n += 360
	}
	switch PageRotation(n) {
	case Rotate90, Rotate180, Rotate270:
		return PageRotation(n)
	default:
		return Rotate0
	}
}
