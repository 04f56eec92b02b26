package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnactingXML = `<Legislation>
  <Primary>
    <Body>
      <IntroductoryText>Made under the Health and Safety at Work etc. Act 1974, and with reference to footnote f00001.</IntroductoryText>
      <EnactingText>The Secretary of State makes the following Regulations.</EnactingText>
      <Footnotes>
        <Footnote id="f00001">
          <Citation URI="http://www.legislation.gov.uk/european/directive/2010/75"/>
        </Footnote>
      </Footnotes>
    </Body>
  </Primary>
</Legislation>`

func TestParseEnactingSkipsPrimaryLegislation(t *testing.T) {
	p, err := ParseEnacting([]byte(sampleEnactingXML), "ukpga")
	require.NoError(t, err)
	assert.Nil(t, p.Get("enacted_by"))
}

func TestParseEnactingFindsDictionaryPhrase(t *testing.T) {
	p, err := ParseEnacting([]byte(sampleEnactingXML), "uksi")
	require.NoError(t, err)
	assert.Contains(t, p.GetStringSlice("enacted_by"), "UK_ukpga_1974_37")
}

func TestParseEnactingFindsFootnoteDirective(t *testing.T) {
	p, err := ParseEnacting([]byte(sampleEnactingXML), "uksi")
	require.NoError(t, err)
	assert.Contains(t, p.GetStringSlice("enacted_by"), "UK_eudr_2010_75")
}

func TestCitationPathFromFootnoteURLMapsDirective(t *testing.T) {
	path, ok := citationPathFromFootnoteURL("http://www.legislation.gov.uk/european/directive/2010/75")
	require.True(t, ok)
	assert.Equal(t, "eudr/2010/75", path)
}
