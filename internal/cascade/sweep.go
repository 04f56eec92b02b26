package cascade

import (
	"context"

	"github.com/sertantai/lrt-engine/internal/function"
	"github.com/sertantai/lrt-engine/internal/models"
)

// Repository is the narrow slice of internal/interfaces.Repository the
// sweep needs: existence checks, upsert, and the enacting-array update
// dynamic function updates apply.
type Repository interface {
	GetByName(ctx context.Context, name string) (*models.LRTRow, bool, error)
	Upsert(ctx context.Context, row *models.LRTRow) error
	UpdateEnacting(ctx context.Context, name string, enacting []string, isEnacting bool, fn map[string]bool) error
	LookupIsMaking(ctx context.Context, names []string) (map[string]bool, error)
}

// Reparser re-runs StagedParser for an existing law by name, returning
// the freshly parsed row to persist. Injected to avoid a dependency
// cycle between this package and the staged-parser orchestrator, which
// itself calls into cascade.Tracker.Record while parsing.
type Reparser func(ctx context.Context, lawName string) (*models.LRTRow, error)

// MetadataFetcher fetches just enough to create a new stub row for a
// law that does not yet exist in the repository.
type MetadataFetcher func(ctx context.Context, lawName string) (*models.LRTRow, error)

// Sweep runs the end-of-session cascade sweep: reparse
// existing affected laws, create missing ones through fetchMetadata, and extend
// enacting links, marking every entry processed as it completes.
func Sweep(ctx context.Context, tracker *Tracker, repo Repository, session string, reparse Reparser, fetchMetadata MetadataFetcher) error {
	for _, entry := range tracker.BySessionAndType(session, models.UpdateReparse) {
		if entry.Status == models.CascadeProcessed {
			continue
		}

		_, exists, err := repo.GetByName(ctx, entry.AffectedLaw)
		if err != nil {
			return err
		}

		var row *models.LRTRow
		if exists {
			row, err = reparse(ctx, entry.AffectedLaw)
		} else {
			row, err = fetchMetadata(ctx, entry.AffectedLaw)
		}
		if err != nil {
			return err
		}

		if err := repo.Upsert(ctx, row); err != nil {
			return err
		}
		tracker.MarkProcessed(entry)
	}

	for _, entry := range tracker.BySessionAndType(session, models.UpdateEnactingLink) {
		if entry.Status == models.CascadeProcessed {
			continue
		}
		if err := applyEnactingLink(ctx, repo, entry); err != nil {
			return err
		}
		tracker.MarkProcessed(entry)
	}

	return nil
}

// applyEnactingLink extends the parent's enacting array with the
// entry's source_laws and monotonically unions Enacting/Enacting Maker
// into the parent's function map.
func applyEnactingLink(ctx context.Context, repo Repository, entry *models.CascadeEntry) error {
	parent, exists, err := repo.GetByName(ctx, entry.AffectedLaw)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	extended := parent.Enacting
	for _, source := range entry.SourceLaws {
		if !containsString(extended, source) {
			extended = append(extended, source)
		}
	}

	isMaking, err := repo.LookupIsMaking(ctx, entry.SourceLaws)
	if err != nil {
		return err
	}

	addition := function.ForEnacting(function.Record{Name: parent.Name, Enacting: entry.SourceLaws}, func([]string) map[string]bool {
		return isMaking
	})
	union := function.MonotonicUnion(parent.Function, addition)

	return repo.UpdateEnacting(ctx, entry.AffectedLaw, extended, true, union)
}
