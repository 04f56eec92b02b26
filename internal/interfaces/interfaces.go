// Package interfaces declares the contracts the engine's components
// depend on but do not implement directly: the upstream fetcher, the
// pluggable repository, and the session scratchpad. Concrete implementations live in internal/fetcher,
// internal/storage, and internal/session.
package interfaces

import (
	"context"

	"github.com/sertantai/lrt-engine/internal/models"
)

// Fetcher retrieves a resource at path, relative to the upstream base
// URL.
type Fetcher interface {
	Get(ctx context.Context, path string) ([]byte, error)
	GetWithMadeFallback(ctx context.Context, path string) ([]byte, error)
}

// Repository is the pluggable persistence contract.
type Repository interface {
	GetByName(ctx context.Context, name string) (*models.LRTRow, bool, error)
	GetByID(ctx context.Context, id string) (*models.LRTRow, bool, error)
	Upsert(ctx context.Context, row *models.LRTRow) error
	UpdateEnacting(ctx context.Context, name string, enacting []string, isEnacting bool, fn map[string]bool) error
	LookupIsMaking(ctx context.Context, names []string) (map[string]bool, error)

	InsertLATBatch(ctx context.Context, rows []models.LATRow) error
	LATByLawName(ctx context.Context, lawName string) ([]models.LATRow, error)
}

// SessionStore persists the on-disk per-session scratchpad layout.
type SessionStore interface {
	AppendRaw(sessionID string, record models.ParsedLaw) error
	AppendGroup(sessionID, group string, record models.ParsedLaw) error
	WriteMetadata(sessionID string, metadata map[string]interface{}) error
	AppendAffectedLaw(sessionID, lawName string) error
}
