package annotations

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
)

// Default colors per annotation type, applied when the client sends none
const (
	defaultHighlightColor = "#FFEB3B"
	defaultNoteColor      = "#2196F3"
	defaultFlashcardColor = "#4CAF50"
)

// SelectionInput is the capture-path request: the selected source text plus
// the selection rectangles the rendering library produced, already in
// percentage form. Fields are validated with go-playground/validator tags.
type SelectionInput struct {
	SelectedText   string                 `json:"selectedText" validate:"required"`
	Type           models.AnnotationType  `json:"type" validate:"required"`
	HighlightAreas []models.HighlightArea `json:"highlightAreas" validate:"required,min=1"`
	Color          string                 `json:"color" validate:"omitempty,hexcolor"`
	Note           string                 `json:"note"`
	Label          string                 `json:"label"`
}

// Validate validates the input using go-playground/validator
func (in *SelectionInput) Validate() error {
	if !in.Type.IsValid() {
		return fmt.Errorf("invalid annotation type: %s", in.Type)
	}
	validate := validator.New()
	return validate.Struct(in)
}

// Service owns the annotation capture path and lifecycle. Selection
// rectangles and the persisted format share the same percentage convention,
// so geometry is copied verbatim (clamped, never transformed) - the
// capture -> store path is lossless.
type Service struct {
	storage interfaces.AnnotationStorage
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewService creates an annotation service
func NewService(storage interfaces.AnnotationStorage, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// CreateFromSelection builds an annotation from a captured selection and
// persists it. The in-memory/UI annotation list is only updated after the
// store succeeds (persisted-then-applied), which callers get for free by
// using the returned record.
func (s *Service) CreateFromSelection(ctx context.Context, paperID string, input *SelectionInput) (*models.Annotation, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection: %w", err)
	}

	areas := make([]models.HighlightArea, len(input.HighlightAreas))
	for i, area := range input.HighlightAreas {
		areas[i] = area.Clamp()
	}

	color := input.Color
	if color == "" {
		color = defaultColorFor(input.Type)
	}

	annotation := &models.Annotation{
		ID:             common.NewAnnotationID(),
		PaperID:        paperID,
		Type:           input.Type,
		Text:           input.SelectedText,
		HighlightAreas: areas,
		PageNumber:     areas[0].PageIndex + 1,
		Color:          color,
		Note:           input.Note,
		Label:          input.Label,
	}

	if err := s.storage.SaveAnnotation(ctx, annotation); err != nil {
		return nil, fmt.Errorf("failed to persist annotation: %w", err)
	}

	s.logger.Debug().
		Str("annotation_id", annotation.ID).
		Str("paper_id", paperID).
		Str("type", string(annotation.Type)).
		Int("areas", len(areas)).
		Msg("Annotation created")

	s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventAnnotationCreated,
		Payload: annotation,
	})

	return annotation, nil
}

// List returns all annotations of one paper
func (s *Service) List(ctx context.Context, paperID string) ([]*models.Annotation, error) {
	return s.storage.ListAnnotationsByPaper(ctx, paperID)
}

// Get returns one annotation by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Annotation, error) {
	return s.storage.GetAnnotation(ctx, id)
}

// Delete removes one annotation by ID
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteAnnotation(ctx, id); err != nil {
		return err
	}

	s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventAnnotationDeleted,
		Payload: id,
	})
	return nil
}

// DeleteByPaper removes all annotations owned by a paper (paper deletion)
func (s *Service) DeleteByPaper(ctx context.Context, paperID string) error {
	return s.storage.DeleteAnnotationsByPaper(ctx, paperID)
}

func defaultColorFor(annotationType models.AnnotationType) string {
	switch annotationType {
	case models.AnnotationNote:
		return defaultNoteColor
	case models.AnnotationFlashcard:
		return defaultFlashcardColor
	default:
		return defaultHighlightColor
	}
}
