package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImmediateSetsMakingAndCommencing(t *testing.T) {
	fn := Immediate(Record{IsMaking: true, IsCommencing: true})
	assert.True(t, fn[Making])
	assert.True(t, fn[Commencing])
}

func TestImmediateEmptyWhenNeitherFlagSet(t *testing.T) {
	fn := Immediate(Record{})
	assert.Empty(t, fn)
}

func TestDeferredBatchesLookupAcrossRecords(t *testing.T) {
	var lookedUp []string
	calls := 0
	lookup := func(names []string) map[string]bool {
		calls++
		lookedUp = append(lookedUp, names...)
		return map[string]bool{
			"UK_uksi_2016_1154": false,
			"UK_ukpga_1974_37":  true,
		}
	}

	records := []Record{
		{Name: "UK_uksi_2024_1", Amending: []string{"UK_uksi_2016_1154", "UK_ukpga_1974_37"}},
	}
	result := Deferred(records, lookup)

	assert.Equal(t, 1, calls, "expected a single batched lookup call")
	assert.Len(t, lookedUp, 2, "expected the batched lookup to cover both targets")
	fn := result["UK_uksi_2024_1"]
	assert.True(t, fn[Amending])
	assert.True(t, fn[AmendingMaker])
}

func TestMonotonicUnionNeverClearsExistingKeys(t *testing.T) {
	existing := map[string]bool{Enacting: true}
	updated := MonotonicUnion(existing, map[string]bool{EnactingMaker: true})

	assert.True(t, updated[Enacting])
	assert.True(t, updated[EnactingMaker])
}

func TestMergeReturnsNilWhenEmpty(t *testing.T) {
	assert.Nil(t, Merge(map[string]bool{}, nil))
}

func TestMergeCombinesNonEmptyMaps(t *testing.T) {
	merged := Merge(map[string]bool{Making: true}, map[string]bool{Amending: true})
	assert.True(t, merged[Making])
	assert.True(t, merged[Amending])
}
