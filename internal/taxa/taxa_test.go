package taxa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSourceTextPrefersLongerBody(t *testing.T) {
	text, source := SelectSourceText("short intro", "a much longer body of legislative text than the intro")
	assert.Equal(t, "body", source)
	assert.Contains(t, text, "much longer body")
}

func TestSelectSourceTextFallsBackToIntroduction(t *testing.T) {
	text, source := SelectSourceText("a longer introduction than the body", "short")
	assert.Equal(t, "introduction", source)
	assert.Equal(t, "a longer introduction than the body", text)
}

func TestClassifyDetectsEmployerDuty(t *testing.T) {
	c := New()
	result := c.Classify(t.Context(), "The employer shall ensure that every workstation is assessed.", "UK_uksi_2024_1")

	assert.Contains(t, result.DutyHolder, "Employer")
	assert.Contains(t, result.DutyType, "Duty Imposed")
	assert.Len(t, result.Duties.Entries, 1)
	assert.Equal(t, "Employer", result.Duties.Entries[0].Holder)
}

func TestClassifyDetectsMinisterialPower(t *testing.T) {
	c := New()
	result := c.Classify(t.Context(), "The Secretary of State may by regulations make further provision.", "UK_uksi_2024_1")

	assert.Contains(t, result.PowerHolder, "Minister")
	assert.Contains(t, result.Role, "Power Conferred")
}

func TestClassifyDetectsPOPIMARTraining(t *testing.T) {
	c := New()
	result := c.Classify(t.Context(), "The employer shall provide training to every worker.", "UK_uksi_2024_1")
	assert.Contains(t, result.POPIMAR, "Organisation - Competence")
}

func TestClassifyRecordsSourceAndLength(t *testing.T) {
	c := New()
	result := c.Classify(t.Context(), "some text", "tag")
	assert.Equal(t, "tag", result.TaxaTextSource)
	assert.Equal(t, len("some text"), result.TaxaTextLength)
}

func TestClassifyChunkedMergesArticlesAcrossSections(t *testing.T) {
	c := New()
	sections := []Section{
		{SectionID: "s.1", Text: "The employer shall ensure safe access."},
		{SectionID: "s.2", Text: "The operator shall ensure safe egress."},
	}
	result := c.ClassifyChunked(t.Context(), "The employer shall ensure safe access. The operator shall ensure safe egress.", sections, "UK_uksi_2024_1")

	assert.Len(t, result.Duties.Entries, 2)
	var articles []string
	for _, e := range result.Duties.Entries {
		articles = append(articles, e.Article)
	}
	assert.Contains(t, articles, "s.1")
	assert.Contains(t, articles, "s.2")
}

func TestClassifyLargeTextTriggersChunkedPathWithoutSections(t *testing.T) {
	c := New(WithLargeTextThreshold(10))
	result := c.Classify(t.Context(), "The employer shall ensure safety at all times throughout the workplace.", "tag")
	assert.Equal(t, "tag", result.TaxaTextSource)
}
