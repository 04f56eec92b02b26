package staged

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sertantai/lrt-engine/internal/cascade"
	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/taxa"
)

const sampleIntroXML = `<Legislation>
  <Primary TotalParagraphs="12" Images="0">
    <dc>
      <title>The Example Regulations 2024</title>
      <description>These Regulations impose duties on employers.</description>
    </dc>
    <EnactmentDate Date="2024-01-01"/>
  </Primary>
</Legislation>`

const sampleContentsXML = `<Legislation>
  <Contents>
    <ContentsItem ContentRef="regulation-1" RestrictExtent="E+W+S"/>
  </Contents>
</Legislation>`

const sampleBodyXML = `<Legislation>
  <Primary>
    <Body>
      <IntroductoryText>Made under the Health and Safety at Work etc. Act 1974.</IntroductoryText>
      <EnactingText>The Secretary of State makes these Regulations.</EnactingText>
    </Body>
  </Primary>
</Legislation>`

const sampleChangesTableHTML = `<table class="table-borders"><tbody>
<tr><td><a href="/ukpga/2023/5">The 2023 Act</a></td><td>s.1</td><td>amended</td><td>yes</td></tr>
</tbody></table>`

// stubFetcher implements interfaces.Fetcher against a fixed path->body
// map, for deterministic StagedParser tests.
type stubFetcher struct {
	responses map[string][]byte
	errors    map[string]error
}

func (s *stubFetcher) Get(ctx context.Context, path string) ([]byte, error) {
	if err, ok := s.errors[path]; ok {
		return nil, err
	}
	if body, ok := s.responses[path]; ok {
		return body, nil
	}
	return nil, errs.Newf(errs.KindNotFound, "no stub for %s", path)
}

func (s *stubFetcher) GetWithMadeFallback(ctx context.Context, path string) ([]byte, error) {
	return s.Get(ctx, path)
}

func newTestIdentity() citation.Identity {
	return citation.Identity{TypeCode: "uksi", Year: 2024, Number: "50"}
}

func fullStubFetcher(id citation.Identity) *stubFetcher {
	return &stubFetcher{
		responses: map[string][]byte{
			id.ShortPath() + "/introduction/data.xml":              []byte(sampleIntroXML),
			id.ShortPath() + "/contents/data.xml":                  []byte(sampleContentsXML),
			id.ShortPath() + "/data.xml":                           []byte(sampleBodyXML),
			"/changes/affecting/" + id.ShortPath() + "?results-count=1000&sort=affecting-year-number": []byte(sampleChangesTableHTML),
			"/changes/affected/" + id.ShortPath() + "?results-count=1000&sort=affected-year-number":   []byte(sampleChangesTableHTML),
		},
	}
}

func TestParseRunsAllStagesAndMergesRecord(t *testing.T) {
	id := newTestIdentity()
	fetcher := fullStubFetcher(id)
	parser := New(fetcher, taxa.New())

	result, err := parser.Parse(context.Background(), id, "", nil)
	require.NoError(t, err)
	require.False(t, result.Cancelled)

	assert.Equal(t, "The Example Regulations 2024", result.Record.GetString("title_en"))
	assert.Contains(t, result.Record.GetStringSlice("geo_region"), "England")
	assert.Contains(t, result.Record.GetStringSlice("enacted_by"), "UK_ukpga_1974_37")
	assert.Contains(t, result.Record.GetStringSlice("amending"), "UK_ukpga_2023_5")

	for _, stage := range stageOrder {
		require.Equal(t, StatusOK, result.Stages[stage].Status, "stage %s", stage)
	}
}

func TestParseExistingTitleIsPreserved(t *testing.T) {
	id := newTestIdentity()
	fetcher := fullStubFetcher(id)
	parser := New(fetcher, taxa.New())

	result, err := parser.Parse(context.Background(), id, "Previously Assigned Title", nil)
	require.NoError(t, err)
	assert.Equal(t, "Previously Assigned Title", result.Record.GetString("title_en"))
}

func TestParseFatalOnMissingIntroduction(t *testing.T) {
	id := newTestIdentity()
	fetcher := &stubFetcher{responses: map[string][]byte{}}
	parser := New(fetcher, taxa.New())

	_, err := parser.Parse(context.Background(), id, "", nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestParseCancellationSkipsRemainingStages(t *testing.T) {
	id := newTestIdentity()
	fetcher := fullStubFetcher(id)
	parser := New(fetcher, taxa.New())

	seen := []string{}
	progress := func(e Event) string {
		seen = append(seen, string(e.Type)+":"+e.Stage)
		if e.Type == EventStageStart && e.Stage == StageExtent {
			return "abort"
		}
		return ""
	}

	result, err := parser.Parse(context.Background(), id, "", progress)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, StatusOK, result.Stages[StageMetadata].Status)
	assert.Equal(t, StatusSkipped, result.Stages[StageExtent].Status)
	assert.Equal(t, "Cancelled by client", result.Stages[StageExtent].Error)
	assert.Equal(t, StatusSkipped, result.Stages[StageTaxa].Status)

	for _, event := range seen {
		assert.False(t, strings.HasPrefix(event, "stage_complete:"+StageTaxa), "taxa should never have completed")
	}
}

func TestParseContinuesPastNonFatalStageErrors(t *testing.T) {
	id := newTestIdentity()
	fetcher := fullStubFetcher(id)
	delete(fetcher.responses, id.ShortPath()+"/contents/data.xml")

	parser := New(fetcher, taxa.New())
	result, err := parser.Parse(context.Background(), id, "", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusError, result.Stages[StageExtent].Status)
	assert.Equal(t, StatusOK, result.Stages[StageTaxa].Status, "taxa stage always attempted even if earlier stages error")
}

func TestParseRecordsCascadeEntriesForOutgoingEdges(t *testing.T) {
	id := newTestIdentity()
	fetcher := fullStubFetcher(id)
	tracker := cascade.New()
	parser := New(fetcher, taxa.New(), WithCascade(tracker, "sess_1"))

	_, err := parser.Parse(context.Background(), id, "", nil)
	require.NoError(t, err)

	entry, ok := tracker.BySessionAndLaw("sess_1", "UK_ukpga_2023_5")
	require.True(t, ok, "law this one amends should be queued for reparse")
	assert.Equal(t, models.UpdateReparse, entry.UpdateType)
	assert.Contains(t, entry.SourceLaws, id.Name())

	parentEntry, ok := tracker.BySessionAndLaw("sess_1", "UK_ukpga_1974_37")
	require.True(t, ok, "enabling parent should be queued for an enacting-link update")
	assert.Equal(t, models.UpdateEnactingLink, parentEntry.UpdateType)
}

func TestStageRepealRevokeNoStartDateIsInForce(t *testing.T) {
	parser := New(&stubFetcher{}, taxa.New())
	result := parser.stageRepealRevoke(models.ParsedLaw{})
	assert.Equal(t, "✔ In force", result.Data.GetString("live_from_metadata"))
}

func TestStageRepealRevokeStartDateWithNoExtentIsWholeRevocation(t *testing.T) {
	parser := New(&stubFetcher{}, taxa.New())
	record := models.ParsedLaw{"md_restrict_start_date": "2024-06-01", "md_restrict_extent": ""}
	result := parser.stageRepealRevoke(record)
	assert.Equal(t, "✗ Revoked", result.Data.GetString("live_from_metadata"))
}

func TestStageRepealRevokeStartDateWithExtentIsPartialRevocation(t *testing.T) {
	parser := New(&stubFetcher{}, taxa.New())
	record := models.ParsedLaw{"md_restrict_start_date": "2024-06-01", "md_restrict_extent": "NI"}
	result := parser.stageRepealRevoke(record)
	assert.Equal(t, "Partially revoked", result.Data.GetString("live_from_metadata"))
}

func TestReconcileLiveStatusMetadataWins(t *testing.T) {
	parser := New(&stubFetcher{}, taxa.New())
	record := map[string]interface{}{
		"live_from_changes":  "✔ In force",
		"live_from_metadata": "✗ Revoked",
	}
	parser.reconcileLiveStatus(record)

	assert.Equal(t, "✗ Revoked", record["live"])
	assert.Equal(t, "metadata", record["live_source"])
	assert.Equal(t, true, record["live_conflict"])

	detail := record["live_conflict_detail"]
	require.NotNil(t, detail)
}

func TestReconcileLiveStatusBothAgree(t *testing.T) {
	parser := New(&stubFetcher{}, taxa.New())
	record := map[string]interface{}{
		"live_from_changes":  "✔ In force",
		"live_from_metadata": "✔ In force",
	}
	parser.reconcileLiveStatus(record)

	assert.Equal(t, "✔ In force", record["live"])
	assert.Equal(t, "both", record["live_source"])
	assert.Equal(t, false, record["live_conflict"])
}
