package annotations

import (
	"github.com/ternarybob/marginalia/internal/models"
)

// Overlay opacity per annotation type. Highlights render as translucent
// washes; notes and flashcards get a lighter wash plus a border.
const (
	highlightOpacity = 0.4
	noteOpacity      = 0.25
	flashcardOpacity = 0.35
)

// OverlayBox is a render-ready rectangle in CSS percentage coordinates
// relative to the displayed (possibly rotated) page.
type OverlayBox struct {
	AnnotationID string                `json:"annotation_id"`
	Type         models.AnnotationType `json:"type"`
	Color        string                `json:"color"`
	Left         float64               `json:"left"`
	Top          float64               `json:"top"`
	Width        float64               `json:"width"`
	Height       float64               `json:"height"`
	Opacity      float64               `json:"opacity"`
	Bordered     bool                  `json:"bordered"`
	Badge        bool                  `json:"badge"` // clickable note badge
	Note         string                `json:"note,omitempty"`
}

// OverlaysForPage is the render path: it filters the annotation list to
// areas on the given page and converts each percentage rectangle into a
// displayed-page box, accounting for the page's current rotation. Percentage
// boxes are defined relative to the unrotated page, so the box has to be
// remapped before it can be positioned on the rotated one.
func OverlaysForPage(annotationList []*models.Annotation, pageIndex int, rotation models.PageRotation) []OverlayBox {
	var boxes []OverlayBox

	for _, annotation := range annotationList {
		for _, area := range annotation.HighlightAreas {
			if area.PageIndex != pageIndex {
				continue
			}

			left, top, width, height := rotateBox(area, rotation)

			box := OverlayBox{
				AnnotationID: annotation.ID,
				Type:         annotation.Type,
				Color:        annotation.Color,
				Left:         left,
				Top:          top,
				Width:        width,
				Height:       height,
			}

			switch annotation.Type {
			case models.AnnotationNote:
				box.Opacity = noteOpacity
				box.Bordered = true
				box.Badge = true
				box.Note = annotation.Note
			case models.AnnotationFlashcard:
				box.Opacity = flashcardOpacity
				box.Bordered = true
			default:
				box.Opacity = highlightOpacity
			}

			boxes = append(boxes, box)
		}
	}

	return boxes
}

// rotateBox maps a percentage rectangle from unrotated-page coordinates onto
// the displayed page for the four supported rotations. CSS top is measured
// downward from the displayed page's top-left corner.
func rotateBox(area models.HighlightArea, rotation models.PageRotation) (left, top, width, height float64) {
	l, t, w, h := area.Left, area.Top, area.Width, area.Height

	switch rotation.Normalize() {
	case models.Rotate90:
		// Clockwise quarter turn: the unrotated top edge becomes the
		// displayed right edge.
		return 100 - (t + h), l, h, w
	case models.Rotate180:
		return 100 - (l + w), 100 - (t + h), w, h
	case models.Rotate270:
		return t, 100 - (l + w), h, w
	default:
		return l, t, w, h
	}
}
