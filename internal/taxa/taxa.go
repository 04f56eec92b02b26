// Package taxa implements the dictionary-driven Taxa Classifier
//: flat canonical-label fields plus four JSON "entry"
// fields (duties/rights/responsibilities/powers), with a chunked mode
// for large-law per-section parallel classification.
package taxa

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/telemetry"
)

// Classifier classifies body text into the flat role/duty/holder fields
// and the four entry objects.
type Classifier struct {
	largeTextThreshold int
	telemetry          telemetry.Sink
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLargeTextThreshold overrides the default 200,000-character
// chunked-mode gate.
func WithLargeTextThreshold(n int) Option {
	return func(c *Classifier) { c.largeTextThreshold = n }
}

// WithTelemetry attaches a telemetry sink; nil disables emission.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(c *Classifier) { c.telemetry = sink }
}

// New creates a Classifier with the default 200,000-character large-law
// threshold.
func New(opts ...Option) *Classifier {
	c := &Classifier{largeTextThreshold: 200_000}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the full classify_text output.
type Result struct {
	Role                 []string
	RoleGvt              []string
	DutyType             []string
	DutyHolder           []string
	RightsHolder         []string
	ResponsibilityHolder []string
	PowerHolder          []string
	POPIMAR              []string
	Duties               models.TaxaEntries
	Rights               models.TaxaEntries
	Responsibilities     models.TaxaEntries
	Powers               models.TaxaEntries
	Purpose              string
	TaxaTextSource       string
	TaxaTextLength       int
}

// SelectSourceText chooses body over introduction when body is longer,
// recording provenance.
func SelectSourceText(introductionText, bodyText string) (text, source string) {
	if len(bodyText) > len(introductionText) {
		return bodyText, "body"
	}
	return introductionText, "introduction"
}

// Classify runs classify_text over a single block of text.
func (c *Classifier) Classify(ctx context.Context, text, sourceTag string) Result {
	start := time.Now()
	large := len(text) >= c.largeTextThreshold

	var result Result
	if large {
		result = c.classifyChunked(ctx, text, nil)
	} else {
		result = classifyFragment(text, "")
	}
	result.TaxaTextSource = sourceTag
	result.TaxaTextLength = len(text)

	if c.telemetry != nil {
		c.telemetry.Emit(telemetry.Event{
			Category:    "taxa",
			Action:      "classify",
			Status:      "complete",
			Measurements: map[string]float64{"duration_us": float64(time.Since(start).Microseconds()), "text_length": float64(len(text))},
			Metadata:    map[string]interface{}{"large_law": large, "law_name": sourceTag},
		})
	}
	return result
}

// Section is one (section_id, section_text) pair for chunked
// classification.
type Section struct {
	SectionID string
	Text      string
}

// ClassifyChunked classifies each section independently (optionally in
// parallel, bounded by errgroup) and merges per-label articles, then
// separately extracts actors from the full, unsectioned text.
func (c *Classifier) ClassifyChunked(ctx context.Context, fullText string, sections []Section, sourceTag string) Result {
	start := time.Now()
	result := c.classifyChunked(ctx, fullText, sections)
	result.TaxaTextSource = sourceTag
	result.TaxaTextLength = len(fullText)

	if c.telemetry != nil {
		c.telemetry.Emit(telemetry.Event{
			Category:     "taxa",
			Action:       "classify",
			Status:       "complete",
			Measurements: map[string]float64{"duration_us": float64(time.Since(start).Microseconds()), "text_length": float64(len(fullText))},
			Metadata:     map[string]interface{}{"large_law": true, "law_name": sourceTag},
		})
	}
	return result
}

func (c *Classifier) classifyChunked(ctx context.Context, fullText string, sections []Section) Result {
	perSection := make([]Result, len(sections))

	if len(sections) > 0 {
		group, _ := errgroup.WithContext(ctx)
		group.SetLimit(8)
		for i, section := range sections {
			i, section := i, section
			group.Go(func() error {
				perSection[i] = classifyFragment(section.Text, section.SectionID)
				return nil
			})
		}
		_ = group.Wait() // classification is pure/CPU-bound; no error path to propagate
	} else {
		// No sections: the whole text is the one fragment, so duty_type and
		// the entry fields are still produced.
		perSection = []Result{classifyFragment(fullText, "")}
	}

	merged := mergeResults(perSection)

	actors := classifyFragment(fullText, "")
	merged.Role = actors.Role
	merged.RoleGvt = actors.RoleGvt
	merged.DutyHolder = actors.DutyHolder
	merged.RightsHolder = actors.RightsHolder
	merged.ResponsibilityHolder = actors.ResponsibilityHolder
	merged.PowerHolder = actors.PowerHolder
	merged.POPIMAR = actors.POPIMAR
	merged.Purpose = actors.Purpose

	return merged
}

func mergeResults(results []Result) Result {
	var merged Result
	type entryKey struct{ holder, dutyType, clause, article string }
	seenDuties := map[entryKey]bool{}
	seenRights := map[entryKey]bool{}
	seenResp := map[entryKey]bool{}
	seenPowers := map[entryKey]bool{}

	appendUnique := func(dst *models.TaxaEntries, seen map[entryKey]bool, src models.TaxaEntries) {
		for _, e := range src.Entries {
			key := entryKey{e.Holder, e.DutyType, e.Clause, e.Article}
			if seen[key] {
				continue
			}
			seen[key] = true
			dst.Entries = append(dst.Entries, e)
			if e.Article != "" {
				dst.Articles = appendStringUnique(dst.Articles, e.Article)
			}
		}
		for _, h := range src.Holders {
			dst.Holders = appendStringUnique(dst.Holders, h)
		}
	}

	for _, r := range results {
		appendUnique(&merged.Duties, seenDuties, r.Duties)
		appendUnique(&merged.Rights, seenRights, r.Rights)
		appendUnique(&merged.Responsibilities, seenResp, r.Responsibilities)
		appendUnique(&merged.Powers, seenPowers, r.Powers)
		merged.DutyType = appendStringsUnique(merged.DutyType, r.DutyType)
	}
	return merged
}

func appendStringUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func appendStringsUnique(list, additions []string) []string {
	for _, a := range additions {
		list = appendStringUnique(list, a)
	}
	return list
}

// classifyFragment applies the curated dictionary patterns to one block
// of text (whole law or one section), tagging produced entries with
// article when sectionID is non-empty.
func classifyFragment(text, sectionID string) Result {
	var result Result
	lower := strings.ToLower(text)

	for _, pattern := range dutyPatterns {
		if strings.Contains(lower, pattern.phrase) {
			result.DutyType = appendStringUnique(result.DutyType, pattern.dutyType)
			result.DutyHolder = appendStringUnique(result.DutyHolder, pattern.holder)
			result.Duties.Entries = append(result.Duties.Entries, models.TaxaEntry{
				Holder: pattern.holder, DutyType: pattern.dutyType, Clause: pattern.phrase, Article: sectionID,
			})
			result.Duties.Holders = appendStringUnique(result.Duties.Holders, pattern.holder)
		}
	}

	for _, pattern := range rightsPatterns {
		if strings.Contains(lower, pattern.phrase) {
			result.RightsHolder = appendStringUnique(result.RightsHolder, pattern.holder)
			result.Rights.Entries = append(result.Rights.Entries, models.TaxaEntry{
				Holder: pattern.holder, Clause: pattern.phrase, Article: sectionID,
			})
			result.Rights.Holders = appendStringUnique(result.Rights.Holders, pattern.holder)
		}
	}

	for _, pattern := range powerPatterns {
		if strings.Contains(lower, pattern.phrase) {
			result.Role = appendStringUnique(result.Role, pattern.dutyType)
			result.RoleGvt = appendStringUnique(result.RoleGvt, pattern.dutyType)
			result.PowerHolder = appendStringUnique(result.PowerHolder, pattern.holder)
			result.Powers.Entries = append(result.Powers.Entries, models.TaxaEntry{
				Holder: pattern.holder, Clause: pattern.phrase, Article: sectionID,
			})
			result.Powers.Holders = appendStringUnique(result.Powers.Holders, pattern.holder)
		}
	}

	for _, pattern := range responsibilityPatterns {
		if strings.Contains(lower, pattern.phrase) {
			result.ResponsibilityHolder = appendStringUnique(result.ResponsibilityHolder, pattern.holder)
			result.Responsibilities.Entries = append(result.Responsibilities.Entries, models.TaxaEntry{
				Holder: pattern.holder, Clause: pattern.phrase, Article: sectionID,
			})
			result.Responsibilities.Holders = appendStringUnique(result.Responsibilities.Holders, pattern.holder)
		}
	}

	for _, pattern := range popimarPatterns {
		if strings.Contains(lower, pattern.phrase) {
			result.POPIMAR = appendStringUnique(result.POPIMAR, pattern.label)
		}
	}

	return result
}

type phrasePattern struct {
	phrase   string
	dutyType string
	holder   string
}

type popimarPattern struct {
	phrase string
	label  string
}

// dutyPatterns is the curated duty-phrase dictionary.
var dutyPatterns = []phrasePattern{
	{phrase: "employer shall", dutyType: "Duty Imposed", holder: "Employer"},
	{phrase: "operator shall", dutyType: "Duty Imposed", holder: "Operator"},
	{phrase: "must ensure", dutyType: "Duty Imposed", holder: "Duty Holder"},
	{phrase: "shall not permit", dutyType: "Duty Imposed", holder: "Duty Holder"},
}

var rightsPatterns = []phrasePattern{
	{phrase: "entitled to", dutyType: "", holder: "Employee"},
	{phrase: "right to appeal", dutyType: "", holder: "Applicant"},
}

// powerPatterns maps "may" discretionary phrases to the Power Conferred
// role.
var powerPatterns = []phrasePattern{
	{phrase: "secretary of state may", dutyType: "", holder: "Minister"},
	{phrase: "the authority may", dutyType: "", holder: "Enforcing Authority"},
}

var responsibilityPatterns = []phrasePattern{
	{phrase: "responsible for ensuring", dutyType: "", holder: "Duty Holder"},
	{phrase: "shall be responsible", dutyType: "", holder: "Duty Holder"},
}

// popimarPatterns maps phrases onto POPIMAR category labels.
var popimarPatterns = []popimarPattern{
	{phrase: "shall provide training", label: "Organisation - Competence"},
	{phrase: "shall keep a record", label: "Monitoring - Record Keeping"},
	{phrase: "risk assessment", label: "Planning - Risk Assessment"},
	{phrase: "emergency procedure", label: "Implementation - Emergency Preparedness"},
}

func init() {
	// powerPatterns entries all carry dutyType "Power Conferred", which
	// classifyFragment uses for Role/RoleGvt; it is set here at init so the
	// literals above stay terse.
	for i := range powerPatterns {
		powerPatterns[i].dutyType = "Power Conferred"
	}
}
