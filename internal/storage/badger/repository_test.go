package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/common"
	"github.com/sertantai/lrt-engine/internal/models"
)

// newTestDB opens a Badger store in a temporary directory that is removed
// once the test completes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "badger-repo-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db, err := New(arbor.NewLogger(), &common.BadgerConfig{Path: tmpDir})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRow(name string) *models.LRTRow {
	return &models.LRTRow{
		TypeCode: "uksi", Year: 2024, Number: "50", Name: name,
		Title:      "The Example Regulations 2024",
		Live:       models.LiveInForce,
		LiveSource: models.LiveSourceBoth,
		Family:     "regulation",
		GeoRegion:  []string{"England", "Wales"},
		Enacting:   []string{"UK_ukpga_1974_37"},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestLRTRowToParsedLawRoundTrip(t *testing.T) {
	row := sampleRow("UK_uksi_2024_50")
	row.LiveConflictInfo = &models.ConflictDetail{Reason: "disagreement", Winner: "metadata", ChangesSeverity: 1, MetadataSeverity: 3}
	row.Function = map[string]bool{"amending": true}
	row.Duties = models.TaxaEntries{Articles: []string{"regulation-1"}}

	p := LRTRowToParsedLaw(row)
	assert.Equal(t, "UK_uksi_2024_50", p.GetString("name"))
	assert.Equal(t, string(models.LiveInForce), p.GetString("live"))
	assert.Equal(t, []string{"England", "Wales"}, p.GetStringSlice("geo_region"))

	detail, ok := p.Get("live_conflict_detail").(models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, "metadata", detail.Winner)

	back := ParsedLawToLRTRow(p)
	assert.Equal(t, row.Name, back.Name)
	assert.Equal(t, row.Live, back.Live)
	assert.Equal(t, row.GeoRegion, back.GeoRegion)
	assert.Equal(t, row.Function, back.Function)
	require.NotNil(t, back.LiveConflictInfo)
	assert.Equal(t, row.LiveConflictInfo.Winner, back.LiveConflictInfo.Winner)
	assert.Equal(t, row.Duties.Articles, back.Duties.Articles)
}

func TestMergeLRTRowsPreservesExistingWhenNewIsBlank(t *testing.T) {
	existing := sampleRow("UK_uksi_2024_50")
	existing.MDDescription = "Original description"
	existing.RecordChangeLog = []models.ChangeLogEntry{{Field: "live", Old: "", New: string(models.LiveInForce)}}

	next := sampleRow("UK_uksi_2024_50")
	next.MDDescription = ""
	next.Live = models.LiveRevoked
	next.RecordChangeLog = []models.ChangeLogEntry{{Field: "live", Old: string(models.LiveInForce), New: string(models.LiveRevoked)}}

	merged := mergeLRTRows(existing, next)
	assert.Equal(t, "Original description", merged.MDDescription, "blank incoming field should not clobber existing value")
	assert.Equal(t, models.LiveRevoked, merged.Live, "non-blank incoming field should win")
	assert.Equal(t, existing.CreatedAt, merged.CreatedAt)
	assert.Equal(t, next.UpdatedAt, merged.UpdatedAt)
	assert.Len(t, merged.RecordChangeLog, 2, "change log entries accumulate across merges")
}

func TestRepositoryUpsertAndGetByName(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, arbor.NewLogger())
	ctx := context.Background()

	row := sampleRow("UK_uksi_2024_50")
	require.NoError(t, repo.Upsert(ctx, row))

	got, found, err := repo.GetByName(ctx, "UK_uksi_2024_50")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "The Example Regulations 2024", got.Title)

	_, found, err = repo.GetByName(ctx, "UK_uksi_2099_1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRepositoryUpsertMergesExistingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, arbor.NewLogger())
	ctx := context.Background()

	first := sampleRow("UK_uksi_2024_50")
	first.MDDescription = "First pass description"
	require.NoError(t, repo.Upsert(ctx, first))

	second := sampleRow("UK_uksi_2024_50")
	second.MDDescription = ""
	second.Live = models.LiveRevoked
	require.NoError(t, repo.Upsert(ctx, second))

	got, found, err := repo.GetByName(ctx, "UK_uksi_2024_50")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "First pass description", got.MDDescription)
	assert.Equal(t, models.LiveRevoked, got.Live)
}

func TestRepositoryUpdateEnacting(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, arbor.NewLogger())
	ctx := context.Background()

	row := sampleRow("UK_uksi_2024_50")
	require.NoError(t, repo.Upsert(ctx, row))

	err := repo.UpdateEnacting(ctx, "UK_uksi_2024_50", []string{"UK_ukpga_1974_37", "UK_ukpga_2010_1"}, true, map[string]bool{"amending": true})
	require.NoError(t, err)

	got, found, err := repo.GetByName(ctx, "UK_uksi_2024_50")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"UK_ukpga_1974_37", "UK_ukpga_2010_1"}, got.Enacting)
	assert.True(t, got.IsEnacting)

	err = repo.UpdateEnacting(ctx, "UK_uksi_2099_1", nil, true, nil)
	assert.Error(t, err)
}

func TestRepositoryLookupIsMaking(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, arbor.NewLogger())
	ctx := context.Background()

	making := sampleRow("UK_uksi_2024_50")
	making.IsMaking = true
	require.NoError(t, repo.Upsert(ctx, making))

	notMaking := sampleRow("UK_uksi_2024_51")
	notMaking.IsMaking = false
	require.NoError(t, repo.Upsert(ctx, notMaking))

	out, err := repo.LookupIsMaking(ctx, []string{"UK_uksi_2024_50", "UK_uksi_2024_51", "UK_uksi_2099_1"})
	require.NoError(t, err)
	assert.True(t, out["UK_uksi_2024_50"])
	assert.False(t, out["UK_uksi_2024_51"])
	assert.False(t, out["UK_uksi_2099_1"], "unknown names default to false")

	out, err = repo.LookupIsMaking(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRepositoryLATBatchInsertAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, arbor.NewLogger())
	ctx := context.Background()

	rows := []models.LATRow{
		{SectionID: "UK_uksi_2024_50:reg.2", LawName: "UK_uksi_2024_50", SortKey: "0002", Position: 2},
		{SectionID: "UK_uksi_2024_50:reg.1", LawName: "UK_uksi_2024_50", SortKey: "0001", Position: 1},
		{SectionID: "UK_uksi_2024_51:reg.1", LawName: "UK_uksi_2024_51", SortKey: "0001", Position: 1},
	}
	require.NoError(t, repo.InsertLATBatch(ctx, rows))

	got, err := repo.LATByLawName(ctx, "UK_uksi_2024_50")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "UK_uksi_2024_50:reg.1", got[0].SectionID, "rows sorted by sort_key")
	assert.Equal(t, "UK_uksi_2024_50:reg.2", got[1].SectionID)
}
