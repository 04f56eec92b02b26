package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIntroductionXML = `<Legislation>
  <Primary>
    <dc>
      <title>The Example Regulations 2024</title>
      <description>Regulations to consolidate and update environmental controls.</description>
      <modified>2024-11-01</modified>
      <subject>Environment, England and Wales</subject>
      <subject>SI Code: ENVIRONMENT; POLLUTION</subject>
    </dc>
    <Restrict RestrictExtent="E+W" RestrictStartDate="2024-01-01"/>
    <EnactmentDate Date="2024-12-01"/>
  </Primary>
  <AlternativeFormats>
    <Format URI="https://www.legislation.gov.uk/uksi/2024/1234/pdfs/uksi_20241234_en.pdf"/>
  </AlternativeFormats>
</Legislation>`

func TestParseMetadataExtractsFields(t *testing.T) {
	p, err := ParseMetadata([]byte(sampleIntroductionXML), "")
	require.NoError(t, err)

	assert.Equal(t, "The Example Regulations 2024", p.GetString("title_en"))
	assert.Contains(t, p.GetString("md_description"), "consolidate and update")
	assert.ElementsMatch(t, []string{"ENVIRONMENT", "POLLUTION"}, p.GetStringSlice("si_code"))
	assert.Equal(t, "2024-12-01", p.GetString("md_enactment_date"))
	assert.Equal(t, "2024-12-01", p.GetString("md_date"))
}

func TestParseMetadataPreservesExistingTitle(t *testing.T) {
	p, err := ParseMetadata([]byte(sampleIntroductionXML), "The Registry's Own Title")
	require.NoError(t, err)
	assert.Equal(t, "The Registry's Own Title", p.GetString("title_en"))
}

func TestParseMetadataStripsTrailingGeoQualifier(t *testing.T) {
	p, err := ParseMetadata([]byte(sampleIntroductionXML), "")
	require.NoError(t, err)
	assert.Contains(t, p.GetStringSlice("md_subjects"), "Environment")
}
