// Package badger implements the Badger/badgerhold-backed Repository
//, the sole wired storage backend — SQL storage is
// explicitly out of scope.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sertantai/lrt-engine/internal/common"
)

// DB manages the Badger database connection.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// New opens a Badger database connection at config.Path, optionally
// wiping any existing data when config.ResetOnStartup is set.
func New(logger arbor.ILogger, config *common.BadgerConfig) (*DB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("opening badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &DB{store: store, logger: logger, config: config}, nil
}

// Store returns the underlying badgerhold store.
func (b *DB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection.
func (b *DB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
