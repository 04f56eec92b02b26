// Package cascade implements the session-scoped Cascade Tracker
//: recording, upgrading, and processing the affected-law
// rows a newly parsed law's graph edges trigger downstream.
package cascade

import (
	"sync"

	"github.com/sertantai/lrt-engine/internal/models"
)

// Tracker holds cascade rows for one or more sessions in memory, keyed
// by the unique (session, affected_law) constraint. A mutex serializes concurrent record calls so
// the append-or-upgrade path never races.
type Tracker struct {
	mu   sync.Mutex
	rows map[string]map[string]*models.CascadeEntry // session -> affected_law -> entry
	// order preserves per-session insertion order for the by_session* queries.
	order map[string][]string
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		rows:  map[string]map[string]*models.CascadeEntry{},
		order: map[string][]string{},
	}
}

// Record finds-or-creates the (session, affectedLaw) row and folds in
// sourceLaw, promoting enacting_link to reparse when a reparse update
// arrives for an existing row.
func (t *Tracker) Record(session, affectedLaw string, updateType models.UpdateType, sourceLaw string) *models.CascadeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	bySession, ok := t.rows[session]
	if !ok {
		bySession = map[string]*models.CascadeEntry{}
		t.rows[session] = bySession
	}

	entry, exists := bySession[affectedLaw]
	if !exists {
		entry = &models.CascadeEntry{
			SessionID:   session,
			AffectedLaw: affectedLaw,
			UpdateType:  updateType,
			SourceLaws:  []string{sourceLaw},
			Status:      models.CascadePending,
		}
		bySession[affectedLaw] = entry
		t.order[session] = append(t.order[session], affectedLaw)
		return entry
	}

	if !containsString(entry.SourceLaws, sourceLaw) {
		entry.SourceLaws = append(entry.SourceLaws, sourceLaw)
	}
	if updateType == models.UpdateReparse && entry.UpdateType == models.UpdateEnactingLink {
		entry.UpdateType = models.UpdateReparse
	}
	return entry
}

// UpgradeToReparse sets update_type to reparse; a no-op when already set.
func (t *Tracker) UpgradeToReparse(entry *models.CascadeEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.UpdateType = models.UpdateReparse
}

// MarkProcessed performs the idempotent terminal transition.
func (t *Tracker) MarkProcessed(entry *models.CascadeEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry.Status = models.CascadeProcessed
}

// BySession returns every row for session, in insertion order.
func (t *Tracker) BySession(session string) []*models.CascadeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.collect(session, func(*models.CascadeEntry) bool { return true })
}

// BySessionAndType filters BySession by update_type.
func (t *Tracker) BySessionAndType(session string, updateType models.UpdateType) []*models.CascadeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.collect(session, func(e *models.CascadeEntry) bool { return e.UpdateType == updateType })
}

// BySessionAndStatus filters BySession by status.
func (t *Tracker) BySessionAndStatus(session string, status models.CascadeStatus) []*models.CascadeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.collect(session, func(e *models.CascadeEntry) bool { return e.Status == status })
}

// PendingForSession returns every pending row for session.
func (t *Tracker) PendingForSession(session string) []*models.CascadeEntry {
	return t.BySessionAndStatus(session, models.CascadePending)
}

// BySessionAndLaw returns the single row for (session, affectedLaw), if any.
func (t *Tracker) BySessionAndLaw(session, affectedLaw string) (*models.CascadeEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bySession, ok := t.rows[session]
	if !ok {
		return nil, false
	}
	entry, ok := bySession[affectedLaw]
	return entry, ok
}

// collect must be called with t.mu held.
func (t *Tracker) collect(session string, predicate func(*models.CascadeEntry) bool) []*models.CascadeEntry {
	bySession := t.rows[session]
	var out []*models.CascadeEntry
	for _, affectedLaw := range t.order[session] {
		entry := bySession[affectedLaw]
		if entry != nil && predicate(entry) {
			out = append(out, entry)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
