package badger

import (
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	paper      interfaces.PaperStorage
	annotation interfaces.AnnotationStorage
	kv         interfaces.KeyValueStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		paper:      NewPaperStorage(db, logger),
		annotation: NewAnnotationStorage(db, logger),
		kv:         NewKVStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// PaperStorage returns the Paper storage interface
func (m *Manager) PaperStorage() interfaces.PaperStorage {
	return m.paper
}

// AnnotationStorage returns the Annotation storage interface
func (m *Manager) AnnotationStorage() interfaces.AnnotationStorage {
	return m.annotation
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// RunGC runs one value-log garbage collection pass. Badger returns
// ErrNoRewrite when there is nothing to collect; that is not an error here.
func (m *Manager) RunGC() error {
	err := m.db.Store().Badger().RunValueLogGC(0.5)
	if err == badgerdb.ErrNoRewrite {
		return nil
	}
	return err
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
