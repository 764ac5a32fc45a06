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

// PaperStorage implements the PaperStorage interface for Badger
type PaperStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPaperStorage creates a new PaperStorage instance
func NewPaperStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PaperStorage {
	return &PaperStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PaperStorage) SavePaper(ctx context.Context, paper *models.Paper) error {
	if paper.ID == "" {
		return fmt.Errorf("paper ID is required")
	}
	if paper.URL == "" {
		return fmt.Errorf("paper URL is required")
	}

	now := time.Now()
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	paper.UpdatedAt = now

	if err := s.db.Store().Upsert(paper.ID, paper); err != nil {
		return fmt.Errorf("failed to save paper: %w", err)
	}
	return nil
}

func (s *PaperStorage) GetPaper(ctx context.Context, id string) (*models.Paper, error) {
	var paper models.Paper
	if err := s.db.Store().Get(id, &paper); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get paper: %w", err)
	}
	return &paper, nil
}

func (s *PaperStorage) GetPaperByURL(ctx context.Context, url string) (*models.Paper, error) {
	var papers []models.Paper
	err := s.db.Store().Find(&papers, badgerhold.Where("URL").Eq(url).Index("URL"))
	if err != nil {
		return nil, fmt.Errorf("failed to find paper by URL: %w", err)
	}
	if len(papers) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &papers[0], nil
}

func (s *PaperStorage) ListPapers(ctx context.Context, collectionID string, limit, offset int) ([]*models.Paper, error) {
	query := badgerhold.Where("ID").Ne("") // Select all
	if collectionID != "" {
		query = query.And("CollectionID").Eq(collectionID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var papers []models.Paper
	if err := s.db.Store().Find(&papers, query); err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}

	result := make([]*models.Paper, len(papers))
	for i := range papers {
		result[i] = &papers[i]
	}
	return result, nil
}

func (s *PaperStorage) DeletePaper(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Paper{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete paper: %w", err)
	}
	return nil
}

func (s *PaperStorage) CountPapers(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Paper{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count papers: %w", err)
	}
	return int(count), nil
}
