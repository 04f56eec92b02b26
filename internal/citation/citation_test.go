package citation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sertantai/lrt-engine/internal/citation"
)

func TestIdentityNameAndShortPath(t *testing.T) {
	id := citation.Identity{TypeCode: "uksi", Year: 2024, Number: "1001"}
	assert.Equal(t, "UK_uksi_2024_1001", id.Name())
	assert.Equal(t, "uksi/2024/1001", id.ShortPath())
	assert.Equal(t, "https://www.legislation.gov.uk/uksi/2024/1001", id.URL("https://www.legislation.gov.uk/"))
}

func TestCanonicalizeIdempotent(t *testing.T) {
	assert.Equal(t, "UK_uksi_2024_1", citation.Canonicalize("uksi/2024/1"))
	once := citation.Canonicalize("uksi/2024/1")
	twice := citation.Canonicalize(once)
	assert.Equal(t, once, twice)
}

func TestCanonicalizeAlreadyCanonical(t *testing.T) {
	assert.Equal(t, "UK_uksi_2024_1", citation.Canonicalize("UK_uksi_2024_1"))
}

func TestParseIdentityRoundTrip(t *testing.T) {
	id, ok := citation.ParseIdentity("UK_ukpga_1974_37")
	assert.True(t, ok)
	assert.Equal(t, citation.Identity{TypeCode: "ukpga", Year: 1974, Number: "37"}, id)
}

func TestParseIdentityRejectsMalformed(t *testing.T) {
	_, ok := citation.ParseIdentity("not-a-citation")
	assert.False(t, ok)
}

func TestIsPrimaryLegislation(t *testing.T) {
	assert.True(t, citation.IsPrimaryLegislation("ukpga"))
	assert.True(t, citation.IsPrimaryLegislation("ASP"))
	assert.False(t, citation.IsPrimaryLegislation("uksi"))
}
