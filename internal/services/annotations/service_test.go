package annotations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/ternarybob/marginalia/internal/services/events"
)

// memStorage is an in-memory AnnotationStorage for service tests
type memStorage struct {
	annotations map[string]*models.Annotation
	failSave    bool
}

func newMemStorage() *memStorage {
	return &memStorage{annotations: make(map[string]*models.Annotation)}
}

func (m *memStorage) SaveAnnotation(ctx context.Context, a *models.Annotation) error {
	if m.failSave {
		return errors.New("store unavailable")
	}
	stored := *a
	m.annotations[a.ID] = &stored
	return nil
}

func (m *memStorage) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	a, ok := m.annotations[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return a, nil
}

func (m *memStorage) ListAnnotationsByPaper(ctx context.Context, paperID string) ([]*models.Annotation, error) {
	var out []*models.Annotation
	for _, a := range m.annotations {
		if a.PaperID == paperID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStorage) DeleteAnnotation(ctx context.Context, id string) error {
	if _, ok := m.annotations[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(m.annotations, id)
	return nil
}

func (m *memStorage) DeleteAnnotationsByPaper(ctx context.Context, paperID string) error {
	for id, a := range m.annotations {
		if a.PaperID == paperID {
			delete(m.annotations, id)
		}
	}
	return nil
}

func (m *memStorage) CountAnnotations(ctx context.Context) (int, error) {
	return len(m.annotations), nil
}

func newTestService(storage interfaces.AnnotationStorage) *Service {
	logger := arbor.NewLogger()
	return NewService(storage, events.NewService(logger), logger)
}

func selection(areas ...models.HighlightArea) *SelectionInput {
	return &SelectionInput{
		SelectedText:   "selected passage",
		Type:           models.AnnotationHighlight,
		HighlightAreas: areas,
	}
}

func TestCreateFromSelection_GeometryRoundTrip(t *testing.T) {
	storage := newMemStorage()
	svc := newTestService(storage)

	// In-range areas must survive capture -> store -> reload byte-identical
	areas := []models.HighlightArea{
		{PageIndex: 2, Left: 9.166666667, Top: 11.5, Width: 6.666666667, Height: 1.5},
		{PageIndex: 2, Left: 12.25, Top: 13.0, Width: 30.125, Height: 1.5},
	}

	created, err := svc.CreateFromSelection(context.Background(), "paper_1", selection(areas...))
	require.NoError(t, err)

	reloaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, areas, reloaded.HighlightAreas)
}

func TestCreateFromSelection_ClampsNoisyAreas(t *testing.T) {
	svc := newTestService(newMemStorage())

	created, err := svc.CreateFromSelection(context.Background(), "paper_1", selection(
		models.HighlightArea{PageIndex: 0, Left: 98, Top: 10, Width: 10, Height: 2},
	))
	require.NoError(t, err)

	area := created.HighlightAreas[0]
	assert.Equal(t, 98.0, area.Left)
	assert.Equal(t, 2.0, area.Width)
	assert.LessOrEqual(t, area.Left+area.Width, 100.0)
}

func TestCreateFromSelection_DerivesPageNumber(t *testing.T) {
	svc := newTestService(newMemStorage())

	created, err := svc.CreateFromSelection(context.Background(), "paper_1", selection(
		models.HighlightArea{PageIndex: 4, Left: 10, Top: 10, Width: 5, Height: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, 5, created.PageNumber)
}

func TestCreateFromSelection_DefaultColors(t *testing.T) {
	tests := []struct {
		annotationType models.AnnotationType
		wantColor      string
	}{
		{models.AnnotationHighlight, defaultHighlightColor},
		{models.AnnotationNote, defaultNoteColor},
		{models.AnnotationFlashcard, defaultFlashcardColor},
	}

	for _, tt := range tests {
		t.Run(string(tt.annotationType), func(t *testing.T) {
			svc := newTestService(newMemStorage())
			input := selection(models.HighlightArea{PageIndex: 0, Left: 1, Top: 1, Width: 1, Height: 1})
			input.Type = tt.annotationType

			created, err := svc.CreateFromSelection(context.Background(), "paper_1", input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantColor, created.Color)
		})
	}
}

func TestCreateFromSelection_KeepsExplicitColor(t *testing.T) {
	svc := newTestService(newMemStorage())
	input := selection(models.HighlightArea{PageIndex: 0, Left: 1, Top: 1, Width: 1, Height: 1})
	input.Color = "#FF0000"

	created, err := svc.CreateFromSelection(context.Background(), "paper_1", input)
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", created.Color)
}

func TestCreateFromSelection_Validation(t *testing.T) {
	svc := newTestService(newMemStorage())

	tests := []struct {
		name  string
		input *SelectionInput
	}{
		{"missing text", &SelectionInput{
			Type:           models.AnnotationHighlight,
			HighlightAreas: []models.HighlightArea{{PageIndex: 0, Width: 1, Height: 1}},
		}},
		{"no areas", &SelectionInput{
			SelectedText: "text",
			Type:         models.AnnotationHighlight,
		}},
		{"unknown type", &SelectionInput{
			SelectedText:   "text",
			Type:           models.AnnotationType("sticker"),
			HighlightAreas: []models.HighlightArea{{PageIndex: 0, Width: 1, Height: 1}},
		}},
		{"bad color", &SelectionInput{
			SelectedText:   "text",
			Type:           models.AnnotationHighlight,
			HighlightAreas: []models.HighlightArea{{PageIndex: 0, Width: 1, Height: 1}},
			Color:          "yellow-ish",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateFromSelection(context.Background(), "paper_1", tt.input)
			assert.Error(t, err)
		})
	}
}

func TestCreateFromSelection_StoreFailureReturnsError(t *testing.T) {
	storage := newMemStorage()
	storage.failSave = true
	svc := newTestService(storage)

	_, err := svc.CreateFromSelection(context.Background(), "paper_1", selection(
		models.HighlightArea{PageIndex: 0, Left: 1, Top: 1, Width: 1, Height: 1},
	))
	assert.Error(t, err)
	assert.Empty(t, storage.annotations)
}

func TestDelete(t *testing.T) {
	storage := newMemStorage()
	svc := newTestService(storage)

	created, err := svc.CreateFromSelection(context.Background(), "paper_1", selection(
		models.HighlightArea{PageIndex: 0, Left: 1, Top: 1, Width: 1, Height: 1},
	))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), interfaces.ErrNotFound)
}
