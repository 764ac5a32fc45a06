package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/marginalia/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrKeyNotFound is returned by key/value lookups for missing keys
var ErrKeyNotFound = errors.New("key not found")

// PaperStorage - interface for paper registry persistence
type PaperStorage interface {
	SavePaper(ctx context.Context, paper *models.Paper) error
	GetPaper(ctx context.Context, id string) (*models.Paper, error)
	GetPaperByURL(ctx context.Context, url string) (*models.Paper, error)
	ListPapers(ctx context.Context, collectionID string, limit, offset int) ([]*models.Paper, error)
	DeletePaper(ctx context.Context, id string) error
	CountPapers(ctx context.Context) (int, error)
}

// AnnotationStorage - interface for annotation persistence
type AnnotationStorage interface {
	SaveAnnotation(ctx context.Context, annotation *models.Annotation) error
	GetAnnotation(ctx context.Context, id string) (*models.Annotation, error)
	ListAnnotationsByPaper(ctx context.Context, paperID string) ([]*models.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
	DeleteAnnotationsByPaper(ctx context.Context, paperID string) error
	CountAnnotations(ctx context.Context) (int, error)
}

// CacheEntry is a stored blob with bookkeeping, used for the proxied-PDF cache
type CacheEntry struct {
	Key       string `badgerhold:"key"`
	Value     []byte
	SourceURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KeyValueStorage - interface for binary blob caching (proxied PDFs)
type KeyValueStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, sourceURL string) error
	Delete(ctx context.Context, key string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// StorageManager aggregates the per-entity stores over one database
type StorageManager interface {
	PaperStorage() PaperStorage
	AnnotationStorage() AnnotationStorage
	KeyValueStorage() KeyValueStorage

	// RunGC triggers a value-log garbage collection pass on the underlying store
	RunGC() error
	Close() error
}
