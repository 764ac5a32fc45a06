package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/marginalia/internal/models"
)

func annotationOn(pages ...int) *models.Annotation {
	a := &models.Annotation{
		ID:    "ann_1",
		Type:  models.AnnotationHighlight,
		Color: "#FFEB3B",
	}
	for _, p := range pages {
		a.HighlightAreas = append(a.HighlightAreas, models.HighlightArea{
			PageIndex: p, Left: 10, Top: 20, Width: 30, Height: 5,
		})
	}
	return a
}

func TestOverlaysForPage_FiltersByPage(t *testing.T) {
	list := []*models.Annotation{
		annotationOn(0),
		annotationOn(1, 2),
		annotationOn(2),
	}

	boxes := OverlaysForPage(list, 2, models.Rotate0)
	assert.Len(t, boxes, 2)

	assert.Empty(t, OverlaysForPage(list, 7, models.Rotate0))
}

func TestOverlaysForPage_MultiLineSelection(t *testing.T) {
	// One annotation spanning two lines on the same page yields two boxes
	a := &models.Annotation{
		ID:   "ann_multi",
		Type: models.AnnotationHighlight,
		HighlightAreas: []models.HighlightArea{
			{PageIndex: 0, Left: 40, Top: 20, Width: 50, Height: 2},
			{PageIndex: 0, Left: 10, Top: 23, Width: 35, Height: 2},
		},
	}

	boxes := OverlaysForPage([]*models.Annotation{a}, 0, models.Rotate0)
	require.Len(t, boxes, 2)
	assert.Equal(t, "ann_multi", boxes[0].AnnotationID)
	assert.Equal(t, "ann_multi", boxes[1].AnnotationID)
}

func TestRotateBox(t *testing.T) {
	area := models.HighlightArea{Left: 10, Top: 20, Width: 30, Height: 5}

	tests := []struct {
		name     string
		rotation models.PageRotation
		wantL    float64
		wantT    float64
		wantW    float64
		wantH    float64
	}{
		{"unrotated", models.Rotate0, 10, 20, 30, 5},
		{"quarter turn", models.Rotate90, 75, 10, 5, 30},
		{"half turn", models.Rotate180, 60, 75, 30, 5},
		{"three quarters", models.Rotate270, 20, 60, 5, 30},
		{"wrapped rotation", models.PageRotation(450), 75, 10, 5, 30},
		{"unsupported falls back", models.PageRotation(45), 10, 20, 30, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, top, w, h := rotateBox(area, tt.rotation)
			assert.Equal(t, tt.wantL, l)
			assert.Equal(t, tt.wantT, top)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestRotateBox_RoundTripThroughFullTurn(t *testing.T) {
	area := models.HighlightArea{Left: 12.5, Top: 33.25, Width: 18, Height: 4}

	// Applying the quarter turn four times must reproduce the original box
	l, top, w, h := area.Left, area.Top, area.Width, area.Height
	for i := 0; i < 4; i++ {
		l, top, w, h = rotateBox(models.HighlightArea{Left: l, Top: top, Width: w, Height: h}, models.Rotate90)
	}

	assert.InDelta(t, area.Left, l, 1e-9)
	assert.InDelta(t, area.Top, top, 1e-9)
	assert.InDelta(t, area.Width, w, 1e-9)
	assert.InDelta(t, area.Height, h, 1e-9)
}

func TestOverlaysForPage_TypeStyling(t *testing.T) {
	list := []*models.Annotation{
		{
			ID: "ann_h", Type: models.AnnotationHighlight, Color: "#FFEB3B",
			HighlightAreas: []models.HighlightArea{{PageIndex: 0, Left: 1, Top: 1, Width: 1, Height: 1}},
		},
		{
			ID: "ann_n", Type: models.AnnotationNote, Note: "check this citation",
			HighlightAreas: []models.HighlightArea{{PageIndex: 0, Left: 2, Top: 2, Width: 1, Height: 1}},
		},
		{
			ID: "ann_f", Type: models.AnnotationFlashcard,
			HighlightAreas: []models.HighlightArea{{PageIndex: 0, Left: 3, Top: 3, Width: 1, Height: 1}},
		},
	}

	boxes := OverlaysForPage(list, 0, models.Rotate0)
	require.Len(t, boxes, 3)

	highlight := boxes[0]
	assert.Equal(t, highlightOpacity, highlight.Opacity)
	assert.False(t, highlight.Bordered)
	assert.False(t, highlight.Badge)

	note := boxes[1]
	assert.Equal(t, noteOpacity, note.Opacity)
	assert.True(t, note.Bordered)
	assert.True(t, note.Badge)
	assert.Equal(t, "check this citation", note.Note)

	flashcard := boxes[2]
	assert.True(t, flashcard.Bordered)
	assert.False(t, flashcard.Badge)
}
