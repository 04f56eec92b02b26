package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContentsXML = `<Legislation>
  <Contents>
    <ContentsItem ContentRef="s.1">
      <ContentsItem ContentRef="s.1.1" RestrictExtent="E+W"/>
    </ContentsItem>
    <ContentsItem ContentRef="s.2" RestrictExtent="N.I."/>
  </Contents>
</Legislation>`

func TestParseExtentDerivesRegionAndPanRegion(t *testing.T) {
	p, err := ParseExtent([]byte(sampleContentsXML))
	require.NoError(t, err)

	assert.Equal(t, []string{"England", "Wales", "Northern Ireland"}, p.GetStringSlice("geo_region"))
	assert.Equal(t, "E+W+NI", p.GetString("geo_extent"))
	assert.Contains(t, p.GetString("geo_detail"), "E+W → s.1.1")
	assert.Contains(t, p.GetString("geo_detail"), "NI → s.2")
}

func TestNormalizeExtentCodeMapsNIVariant(t *testing.T) {
	assert.Equal(t, "NI", normalizeExtentCode("N.I."))
	assert.Equal(t, "E+W", normalizeExtentCode("E+W"))
}

func TestPanRegionCodeUKWhenAllFourPresent(t *testing.T) {
	letters := map[string]bool{"E": true, "W": true, "S": true, "NI": true}
	assert.Equal(t, "UK", panRegionCode(letters))
}

func TestPanRegionCodeGBWhenNoNI(t *testing.T) {
	letters := map[string]bool{"E": true, "W": true, "S": true}
	assert.Equal(t, "GB", panRegionCode(letters))
}
