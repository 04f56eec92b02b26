package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sertantai/lrt-engine/internal/models"
)

const sampleBodyXML = `<Body>
  <Part Number="1">
    <P1 id="1"><Text>Citation and commencement.</Text></P1>
    <P1 id="23" RestrictExtent="E+W+S"><Text>Provision 23 for Great Britain.</Text></P1>
    <P1 id="23" RestrictExtent="NI"><Text>Provision 23 for Northern Ireland.</Text></P1>
  </Part>
  <Schedule Number="1">
    <P1 id="1"><Text>Schedule paragraph one.</Text></P1>
  </Schedule>
  <BlockAmendment>
    <P1 id="99"><Text>Should never appear.</Text></P1>
  </BlockAmendment>
</Body>`

func TestParseLATAssignsDensePositionsAndUniqueSectionIDs(t *testing.T) {
	rows, err := ParseLAT([]byte(sampleBodyXML), "UK_ukpga_2024_50")
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	seen := map[string]bool{}
	for i, row := range rows {
		assert.Equal(t, i+1, row.Position)
		assert.False(t, seen[row.SectionID], "duplicate section_id %s", row.SectionID)
		seen[row.SectionID] = true
	}
}

func TestParseLATSkipsBlockAmendmentSubtree(t *testing.T) {
	rows, err := ParseLAT([]byte(sampleBodyXML), "UK_ukpga_2024_50")
	require.NoError(t, err)
	for _, row := range rows {
		assert.NotContains(t, row.Text, "Should never appear")
	}
}

func TestParseLATParallelExtentSuffixesBothSiblings(t *testing.T) {
	rows, err := ParseLAT([]byte(sampleBodyXML), "UK_ukpga_2024_50")
	require.NoError(t, err)

	var ewsRow, niRow *models.LATRow
	for i := range rows {
		switch rows[i].SectionID {
		case "UK_ukpga_2024_50:s.23[E+W+S]":
			ewsRow = &rows[i]
		case "UK_ukpga_2024_50:s.23[NI]":
			niRow = &rows[i]
		}
	}
	require.NotNil(t, ewsRow, "expected an E+W+S suffixed row, got rows: %+v", rows)
	require.NotNil(t, niRow, "expected an NI suffixed row, got rows: %+v", rows)
	assert.Contains(t, ewsRow.SortKey, "~E+W+S")
	assert.Contains(t, niRow.SortKey, "~NI")
}

func TestParseLATScheduleSectionID(t *testing.T) {
	rows, err := ParseLAT([]byte(sampleBodyXML), "UK_ukpga_2024_50")
	require.NoError(t, err)

	var scheduleRow *models.LATRow
	for i := range rows {
		if rows[i].SectionType == models.SectionSchedule {
			scheduleRow = &rows[i]
		}
	}
	require.NotNil(t, scheduleRow)
	assert.Equal(t, "UK_ukpga_2024_50:sch.1", scheduleRow.SectionID)
}

func TestZeroPadSortKeyOrdersNumericSegments(t *testing.T) {
	ten := zeroPadSortKey("10")
	two := zeroPadSortKey("2")
	tenA := zeroPadSortKey("10A")
	assert.Less(t, two, ten)
	assert.Less(t, ten, tenA)
}

const sampleSIBodyXML = `<Body>
  <P1 id="1"><Text>Citation, commencement and interpretation.</Text></P1>
  <P1 id="2">
    <P2 id="1"><Text>Every employer must assess the workstation.</Text></P2>
  </P1>
</Body>`

func TestParseLATUsesRegPrefixForSILaw(t *testing.T) {
	rows, err := ParseLAT([]byte(sampleSIBodyXML), "UK_uksi_2024_100")
	require.NoError(t, err)

	var articleRow, subArticleRow *models.LATRow
	for i := range rows {
		switch rows[i].SectionType {
		case models.SectionArticle:
			if rows[i].Provision == "1" {
				articleRow = &rows[i]
			}
		case models.SectionSubArticle:
			subArticleRow = &rows[i]
		}
	}
	require.NotNil(t, articleRow, "expected an article row, got rows: %+v", rows)
	require.NotNil(t, subArticleRow, "expected a sub_article row, got rows: %+v", rows)
	assert.Equal(t, "UK_uksi_2024_100:reg.1", articleRow.SectionID)
	assert.Equal(t, "UK_uksi_2024_100:reg.2(1)", subArticleRow.SectionID)
}

const sampleNestedParagraphBodyXML = `<Body>
  <P1 id="2">
    <P2 id="1">
      <P3 id="a"><Text>Paragraph a under section 2 sub-section 1.</Text></P3>
    </P2>
  </P1>
  <P1 id="3">
    <P2 id="1">
      <P3 id="a"><Text>Paragraph a under section 3 sub-section 1.</Text></P3>
    </P2>
  </P1>
</Body>`

func TestParseLATNestsParagraphCitationOnParentProvision(t *testing.T) {
	rows, err := ParseLAT([]byte(sampleNestedParagraphBodyXML), "UK_ukpga_1974_37")
	require.NoError(t, err)

	var paraUnderTwo, paraUnderThree *models.LATRow
	for i := range rows {
		if rows[i].SectionType != models.SectionParagraph {
			continue
		}
		switch rows[i].Provision {
		case "2":
			paraUnderTwo = &rows[i]
		case "3":
			paraUnderThree = &rows[i]
		}
	}
	require.NotNil(t, paraUnderTwo, "expected a paragraph row under section 2, got rows: %+v", rows)
	require.NotNil(t, paraUnderThree, "expected a paragraph row under section 3, got rows: %+v", rows)

	assert.Equal(t, "UK_ukpga_1974_37:s.2(1)(a)", paraUnderTwo.SectionID)
	assert.Equal(t, "UK_ukpga_1974_37:s.3(1)(a)", paraUnderThree.SectionID)
	assert.NotEqual(t, paraUnderTwo.SectionID, paraUnderThree.SectionID,
		"paragraph 'a' under different sections must not collide")
}
