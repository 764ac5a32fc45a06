package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnnotationStorage implements the AnnotationStorage interface for Badger
type AnnotationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnnotationStorage creates a new AnnotationStorage instance
func NewAnnotationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnnotationStorage {
	return &AnnotationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AnnotationStorage) SaveAnnotation(ctx context.Context, annotation *models.Annotation) error {
	if annotation.ID == "" {
		return fmt.Errorf("annotation ID is required")
	}
	if annotation.PaperID == "" {
		return fmt.Errorf("annotation paper ID is required")
	}
	if !annotation.Type.IsValid() {
		return fmt.Errorf("invalid annotation type: %s", annotation.Type)
	}

	now := time.Now()
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = now
	}
	annotation.UpdatedAt = now

	if err := s.db.Store().Upsert(annotation.ID, annotation); err != nil {
		return fmt.Errorf("failed to save annotation: %w", err)
	}
	return nil
}

func (s *AnnotationStorage) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	var annotation models.Annotation
	if err := s.db.Store().Get(id, &annotation); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}
	return &annotation, nil
}

func (s *AnnotationStorage) ListAnnotationsByPaper(ctx context.Context, paperID string) ([]*models.Annotation, error) {
	var annotations []models.Annotation
	err := s.db.Store().Find(&annotations, badgerhold.Where("PaperID").Eq(paperID).Index("PaperID"))
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}

	result := make([]*models.Annotation, len(annotations))
	for i := range annotations {
		result[i] = &annotations[i]
	}
	return result, nil
}

func (s *AnnotationStorage) DeleteAnnotation(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Annotation{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to delete annotation: %w", err)
	}
	return nil
}

func (s *AnnotationStorage) DeleteAnnotationsByPaper(ctx context.Context, paperID string) error {
	err := s.db.Store().DeleteMatching(&models.Annotation{}, badgerhold.Where("PaperID").Eq(paperID).Index("PaperID"))
	if err != nil {
		return fmt.Errorf("failed to delete annotations for paper %s: %w", paperID, err)
	}
	return nil
}

func (s *AnnotationStorage) CountAnnotations(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Annotation{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count annotations: %w", err)
	}
	return int(count), nil
}
