// Package storage selects and wires the configured Repository backend.
// Badger is the only implemented backend; SQL storage is
// an external collaborator out of scope for this module.
package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/common"
	"github.com/sertantai/lrt-engine/internal/interfaces"
	"github.com/sertantai/lrt-engine/internal/storage/badger"
)

// Closer is implemented by backends that hold an open connection.
type Closer interface {
	Close() error
}

// New constructs the configured Repository backend and a Closer to
// release its resources on shutdown.
func New(logger arbor.ILogger, config *common.Config) (interfaces.Repository, Closer, error) {
	switch config.Storage.Backend {
	case "", "badger":
		db, err := badger.New(logger, &config.Storage.Badger)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger backend: %w", err)
		}
		return badger.NewRepository(db, logger), db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", config.Storage.Backend)
	}
}
