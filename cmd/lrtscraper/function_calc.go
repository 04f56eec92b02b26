package main

import (
	"context"

	"github.com/sertantai/lrt-engine/internal/function"
	"github.com/sertantai/lrt-engine/internal/interfaces"
	"github.com/sertantai/lrt-engine/internal/models"
)

// deriveIsMaking reports whether record should be flagged a "Maker".
// StagedParser has no stage dedicated to this flag, so the signal is
// derived here from the taxa stage's own output: a law the classifier
// attached at least one duty, right, responsibility, or power to is one
// that makes substantive content, as opposed to a pure amending/revoking
// instrument.
func deriveIsMaking(record models.ParsedLaw) bool {
	for _, field := range []string{"duties", "rights", "responsibilities", "powers"} {
		entries, ok := record.Get(field).(models.TaxaEntries)
		if ok && len(entries.Entries) > 0 {
			return true
		}
	}
	return false
}

// deriveIsCommencing reports whether record brings other laws into force
// without modifying them. The LAT walk tallies `I`-type commentary
// references as Commencement counts per row; a law whose body carries
// any such reference is itself acting as a commencement instrument for
// those provisions.
func deriveIsCommencing(latRows []models.LATRow) bool {
	for _, row := range latRows {
		if row.Commentary.Commencement > 0 {
			return true
		}
	}
	return false
}

// functionRecordFor builds the function.Record Immediate needs
// from a freshly parsed LRT row, pairing the derived is_making/
// is_commencing flags with the graph edges Deferred and ForEnacting
// later batch over.
func functionRecordFor(row *models.LRTRow) function.Record {
	return function.Record{
		Name:         row.Name,
		IsMaking:     row.IsMaking,
		IsCommencing: row.IsCommencing,
		Enacting:     row.Enacting,
		Amending:     row.Amending,
		Rescinding:   row.Rescinding,
	}
}

// lookupIsMaking adapts interfaces.Repository.LookupIsMaking to
// function.IsMakingLookup's synchronous, context-free shape.
func lookupIsMaking(ctx context.Context, repo interfaces.Repository) function.IsMakingLookup {
	return func(names []string) map[string]bool {
		out, err := repo.LookupIsMaking(ctx, names)
		if err != nil {
			return map[string]bool{}
		}
		return out
	}
}
