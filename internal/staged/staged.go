// Package staged implements the StagedParser orchestrator: a fixed seven-stage pipeline that fetches, parses, and merges
// one law's fields into a canonical working record, with progress
// callbacks, cooperative cancellation, and live-status reconciliation.
package staged

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/cascade"
	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/interfaces"
	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/normalizer"
	"github.com/sertantai/lrt-engine/internal/parsers"
	"github.com/sertantai/lrt-engine/internal/taxa"
	"github.com/sertantai/lrt-engine/internal/telemetry"
)

// Stage names the fixed pipeline order.
const (
	StageMetadata     = "metadata"
	StageExtent       = "extent"
	StageEnactedBy    = "enacted_by"
	StageAmending     = "amending"
	StageAmendedBy    = "amended_by"
	StageRepealRevoke = "repeal_revoke"
	StageTaxa         = "taxa"
)

var stageOrder = []string{
	StageMetadata, StageExtent, StageEnactedBy,
	StageAmending, StageAmendedBy, StageRepealRevoke, StageTaxa,
}

// StageStatus is the per-stage result's lifecycle state.
type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusError   StageStatus = "error"
	StatusSkipped StageStatus = "skipped"
)

// StageResult is one stage's outcome, merged into the working record
// when Status is StatusOK.
type StageResult struct {
	Status StageStatus      `json:"status"`
	Data   models.ParsedLaw `json:"data,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// EventType distinguishes the two progress-callback shapes of §4.8.
type EventType string

const (
	EventStageStart    EventType = "stage_start"
	EventStageComplete EventType = "stage_complete"
)

// Event is passed to a ProgressFunc before and after each stage.
type Event struct {
	Type    EventType
	Stage   string
	I, N    int
	Summary string
}

// ProgressFunc observes pipeline progress. Returning "abort" from a
// stage_start callback cancels the remaining pipeline.
type ProgressFunc func(Event) string

const abortSignal = "abort"

// Result is everything Parse produces for one law.
type Result struct {
	Record    models.ParsedLaw
	Stages    map[string]StageResult
	Cancelled bool
}

// Parser runs the fixed seven-stage pipeline for one law at a time. It
// is safe for concurrent use across different laws; a single Parse call
// is itself sequential.
type Parser struct {
	fetcher    interfaces.Fetcher
	classifier *taxa.Classifier
	logger     arbor.ILogger
	telemetry  telemetry.Sink
	timeout    time.Duration
	cascade    *cascade.Tracker
	session    string
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger attaches a logger used for stage-level warnings.
func WithLogger(logger arbor.ILogger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithTelemetry attaches a sink for the §6.4 staged_parser events.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(p *Parser) { p.telemetry = sink }
}

// WithTimeout bounds each stage's upstream I/O.
func WithTimeout(d time.Duration) Option {
	return func(p *Parser) { p.timeout = d }
}

// WithCascade attaches the session-scoped Cascade Tracker a parsed
// law's outgoing edges are recorded against: every law
// this one amends or rescinds is queued for reparse, and every enabling
// parent it cites is queued for an enacting-array extension.
func WithCascade(tracker *cascade.Tracker, session string) Option {
	return func(p *Parser) { p.cascade = tracker; p.session = session }
}

// New constructs a Parser. fetcher and classifier are required.
func New(fetcher interfaces.Fetcher, classifier *taxa.Classifier, opts ...Option) *Parser {
	if fetcher == nil {
		panic("staged: fetcher is required")
	}
	if classifier == nil {
		panic("staged: classifier is required")
	}
	p := &Parser{fetcher: fetcher, classifier: classifier, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// parseState carries the intermediate fetched documents a single Parse
// call shares across stages, so the body XML is fetched once rather
// than once per stage that needs it.
type parseState struct {
	identity citation.Identity
	introXML []byte
	bodyXML  []byte
}

// Parse runs all seven stages for identity in fixed order, merging each
// stage's output into the working record via the normalizer's merge
// rule, and returns once complete, cancelled, or fatally blocked.
//
// A NotFound on the introduction XML (the metadata stage) is fatal —
// no record can be built — and is returned as an error rather than
// folded into the stage result.
func (p *Parser) Parse(ctx context.Context, identity citation.Identity, existingTitle string, progress ProgressFunc) (Result, error) {
	state := &parseState{identity: identity}
	record := models.ParsedLaw{}
	stages := make(map[string]StageResult, len(stageOrder))

	for i, stage := range stageOrder {
		if progress != nil {
			start := Event{Type: EventStageStart, Stage: stage, I: i + 1, N: len(stageOrder)}
			if progress(start) == abortSignal {
				cancelled := StageResult{Status: StatusSkipped, Error: "Cancelled by client"}
				for _, remaining := range stageOrder[i:] {
					stages[remaining] = cancelled
				}
				return Result{Record: record, Stages: stages, Cancelled: true}, nil
			}
		}

		result, err := p.runStage(ctx, stage, state, existingTitle, record)
		if err != nil && errs.Is(err, errs.KindNotFound) && stage == StageMetadata {
			return Result{}, fmt.Errorf("fatal: introduction xml not found for %s: %w", identity.Name(), err)
		}

		stages[stage] = result
		if result.Status == StatusOK {
			record = normalizer.Merge(record, result.Data)
		}

		p.emitStageTelemetry(stage, result, identity.Name())
		if progress != nil {
			progress(Event{Type: EventStageComplete, Stage: stage, Summary: summarizeStage(stage, result)})
		}
	}

	p.reconcileLiveStatus(record)
	p.emitParseTelemetry(identity.Name())

	if p.cascade != nil {
		p.recordCascadeEntries(identity.Name(), record)
	}

	return Result{Record: record, Stages: stages}, nil
}

// recordCascadeEntries queues the downstream updates this law's edges
// trigger: laws it amends or rescinds need a reparse,
// and enabling parents it cites need their enacting array extended.
func (p *Parser) recordCascadeEntries(lawName string, record models.ParsedLaw) {
	for _, affected := range record.GetStringSlice("amending") {
		p.cascade.Record(p.session, affected, models.UpdateReparse, lawName)
	}
	for _, affected := range record.GetStringSlice("rescinding") {
		p.cascade.Record(p.session, affected, models.UpdateReparse, lawName)
	}
	for _, parent := range record.GetStringSlice("enacted_by") {
		p.cascade.Record(p.session, parent, models.UpdateEnactingLink, lawName)
	}
}

func (p *Parser) runStage(ctx context.Context, stage string, state *parseState, existingTitle string, record models.ParsedLaw) (StageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch stage {
	case StageMetadata:
		return p.stageMetadata(ctx, state, existingTitle)
	case StageExtent:
		return p.stageExtent(ctx, state)
	case StageEnactedBy:
		return p.stageEnactedBy(ctx, state, record)
	case StageAmending:
		return p.stageAmending(ctx, state)
	case StageAmendedBy:
		return p.stageAmendedBy(ctx, state)
	case StageRepealRevoke:
		return p.stageRepealRevoke(record), nil
	case StageTaxa:
		return p.stageTaxa(ctx, state), nil
	default:
		return StageResult{Status: StatusError, Error: fmt.Sprintf("unknown stage %q", stage)}, nil
	}
}

func (p *Parser) stageMetadata(ctx context.Context, state *parseState, existingTitle string) (StageResult, error) {
	path := state.identity.ShortPath() + "/introduction/data.xml"
	body, err := p.fetcher.GetWithMadeFallback(ctx, path)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return StageResult{Status: StatusError, Error: err.Error()}, err
		}
		return p.errorResult(err), nil
	}
	state.introXML = body

	data, err := parsers.ParseMetadata(body, existingTitle)
	if err != nil {
		return p.errorResult(err), nil
	}
	return StageResult{Status: StatusOK, Data: data}, nil
}

func (p *Parser) stageExtent(ctx context.Context, state *parseState) (StageResult, error) {
	path := state.identity.ShortPath() + "/contents/data.xml"
	body, err := p.fetcher.Get(ctx, path)
	if err != nil {
		return p.errorResult(err), nil
	}

	data, err := parsers.ParseExtent(body)
	if err != nil {
		return p.errorResult(err), nil
	}
	return StageResult{Status: StatusOK, Data: data}, nil
}

func (p *Parser) fetchBody(ctx context.Context, state *parseState) ([]byte, error) {
	if state.bodyXML != nil {
		return state.bodyXML, nil
	}
	body, err := p.fetcher.Get(ctx, state.identity.ShortPath()+"/data.xml")
	if err != nil {
		return nil, err
	}
	state.bodyXML = body
	return body, nil
}

func (p *Parser) stageEnactedBy(ctx context.Context, state *parseState, record models.ParsedLaw) (StageResult, error) {
	if citation.IsPrimaryLegislation(state.identity.TypeCode) {
		return StageResult{Status: StatusOK, Data: models.ParsedLaw{}}, nil
	}

	body, err := p.fetchBody(ctx, state)
	if err != nil {
		return p.errorResult(err), nil
	}

	data, err := parsers.ParseEnacting(body, state.identity.TypeCode)
	if err != nil {
		return p.errorResult(err), nil
	}
	return StageResult{Status: StatusOK, Data: data}, nil
}

func (p *Parser) stageAmending(ctx context.Context, state *parseState) (StageResult, error) {
	body, err := p.fetcher.Get(ctx, parsers.AffectingTablePath(state.identity))
	if err != nil {
		return p.errorResult(err), nil
	}

	rows, err := parsers.ParseAmendingTable(body, p.logger)
	if err != nil {
		return p.errorResult(err), nil
	}
	return StageResult{Status: StatusOK, Data: parsers.BuildOutgoing(rows)}, nil
}

func (p *Parser) stageAmendedBy(ctx context.Context, state *parseState) (StageResult, error) {
	body, err := p.fetcher.Get(ctx, parsers.AffectedTablePath(state.identity))
	if err != nil {
		return p.errorResult(err), nil
	}

	rows, err := parsers.ParseAmendingTable(body, p.logger)
	if err != nil {
		return p.errorResult(err), nil
	}
	return StageResult{Status: StatusOK, Data: parsers.BuildIncoming(rows)}, nil
}

// stageRepealRevoke derives the metadata-side live signal from the
// md_restrict_start_date/md_restrict_extent pair the metadata stage
// already wrote. md_restrict_extent carries a geographic letter code
// (e.g. "E+W+S", "NI"), not a revocation marker, so a restriction can
// only be dated here, not geographically scoped to "whole": a start
// date with no accompanying region letters restricts the entire
// document from that date (whole revocation); a start date paired with
// specific region letters restricts only those regions (partial).
func (p *Parser) stageRepealRevoke(record models.ParsedLaw) StageResult {
	startDate := record.GetString("md_restrict_start_date")
	extent := record.GetString("md_restrict_extent")
	live := string(models.LiveInForce)
	switch {
	case startDate == "":
		live = string(models.LiveInForce)
	case extent == "":
		live = string(models.LiveRevoked)
	default:
		live = string(models.LivePartialRevoked)
	}
	return StageResult{Status: StatusOK, Data: models.ParsedLaw{"live_from_metadata": live}}
}

func (p *Parser) stageTaxa(ctx context.Context, state *parseState) StageResult {
	introText := stripTags(state.introXML)
	bodyText := stripTags(state.bodyXML)

	text, source := taxa.SelectSourceText(introText, bodyText)
	result := p.classifier.Classify(ctx, text, source)

	data := models.ParsedLaw{
		"role": result.Role, "role_gvt": result.RoleGvt, "duty_type": result.DutyType, "popimar": result.POPIMAR,
		"duty_holder": result.DutyHolder, "rights_holder": result.RightsHolder,
		"responsibility_holder": result.ResponsibilityHolder, "power_holder": result.PowerHolder,
		"duties": result.Duties, "rights": result.Rights, "responsibilities": result.Responsibilities, "powers": result.Powers,
		"purpose": result.Purpose, "taxa_text_source": result.TaxaTextSource, "taxa_text_length": result.TaxaTextLength,
	}
	return StageResult{Status: StatusOK, Data: data}
}

func (p *Parser) errorResult(err error) StageResult {
	if p.logger != nil {
		p.logger.Warn().Err(err).Msg("staged parser: stage failed, continuing with partial data")
	}
	return StageResult{Status: StatusError, Error: err.Error()}
}

// reconcileLiveStatus reconciles severity between amended_by's
// changes-side signal and repeal_revoke's metadata-side signal.
func (p *Parser) reconcileLiveStatus(record models.ParsedLaw) {
	changesLive := record.GetString("live_from_changes")
	if changesLive == "" {
		changesLive = string(models.LiveInForce)
	}
	metadataLive := record.GetString("live_from_metadata")
	if metadataLive == "" {
		metadataLive = string(models.LiveInForce)
	}

	changesSeverity := liveSeverity(changesLive)
	metadataSeverity := liveSeverity(metadataLive)

	var live string
	var source models.LiveSource
	switch {
	case changesSeverity == metadataSeverity:
		live = changesLive
		source = models.LiveSourceBoth
	case changesSeverity > metadataSeverity:
		live = changesLive
		source = models.LiveSourceChanges
	default:
		live = metadataLive
		source = models.LiveSourceMetadata
	}

	record["live"] = live
	record["live_source"] = string(source)

	if changesSeverity != metadataSeverity {
		record["live_conflict"] = true
		record["live_conflict_detail"] = models.ConflictDetail{
			Reason:           "amended_by and repeal_revoke disagree on live status",
			Winner:           string(source),
			ChangesSeverity:  changesSeverity,
			MetadataSeverity: metadataSeverity,
		}
	} else {
		record["live_conflict"] = false
	}
}

func liveSeverity(live string) int {
	switch models.LiveStatus(live) {
	case models.LiveRevoked:
		return 3
	case models.LivePartialRevoked:
		return 2
	case models.LiveInForce:
		return 1
	default:
		return 0
	}
}

func summarizeStage(stage string, result StageResult) string {
	if result.Status == StatusError {
		return fmt.Sprintf("%s: %s", stage, result.Error)
	}
	return fmt.Sprintf("%s: %s", stage, result.Status)
}

func (p *Parser) emitStageTelemetry(stage string, result StageResult, lawName string) {
	if p.telemetry == nil {
		return
	}
	p.telemetry.Emit(telemetry.Event{
		Category: "staged_parser",
		Action:   "stage",
		Status:   string(result.Status),
		Metadata: map[string]interface{}{"stage": stage, "law_name": lawName},
	})
}

func (p *Parser) emitParseTelemetry(lawName string) {
	if p.telemetry == nil {
		return
	}
	p.telemetry.Emit(telemetry.Event{
		Category: "staged_parser",
		Action:   "parse",
		Status:   "complete",
		Metadata: map[string]interface{}{"law_name": lawName},
	})
}

var markdownSyntaxPattern = regexp.MustCompile(`[#*_\x60>\[\]()|-]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// stripTags reduces an XML document to the bare text content
// TaxaClassifier classifies against. It runs the body through the
// html-to-markdown converter, then strips the remaining markdown
// punctuation, rather than a hand-rolled tag stripper: the converter
// already knows how to drop attributes and collapse nested elements
// sanely.
func stripTags(xmlBody []byte) string {
	if len(xmlBody) == 0 {
		return ""
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(string(xmlBody))
	if err != nil {
		markdown = string(xmlBody)
	}
	text := markdownSyntaxPattern.ReplaceAllString(markdown, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
