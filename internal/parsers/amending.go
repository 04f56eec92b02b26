package parsers

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
)

// AmendmentRow is one parsed row of a changes/affecting or
// changes/affected HTML table.
type AmendmentRow struct {
	TitleEn  string
	Path     string
	TypeCode string
	Year     int
	Number   string
	Name     string
	Target   string
	Affect   string
	Applied  string
}

// ParseAmendingTable parses one HTML changes table (either the
// "affecting" or "affected" endpoint) into its rows.
func ParseAmendingTable(html []byte, logger arbor.ILogger) ([]AmendmentRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, errs.Newf(errs.KindParseError, "parse changes table: %w", err)
	}

	var rows []AmendmentRow
	doc.Find("table.table-borders tbody tr, table.changesTable tbody tr").Each(func(i int, s *goquery.Selection) {
		row, ok := parseAmendmentRow(s, logger)
		if ok {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

func parseAmendmentRow(s *goquery.Selection, logger arbor.ILogger) (AmendmentRow, bool) {
	cells := s.Find("td")
	if cells.Length() < 3 {
		return AmendmentRow{}, false
	}

	titleCell := cells.Eq(0)
	titleEn := strings.TrimSpace(titleCell.Find("a").First().Text())
	path, _ := titleCell.Find("a").First().Attr("href")
	path = strings.TrimSpace(path)

	target := strings.TrimSpace(cells.Eq(1).Text())
	affect := strings.TrimSpace(cells.Eq(2).Text())

	var applied string
	if cells.Length() > 3 {
		applied = strings.TrimSpace(cells.Eq(3).Text())
	}

	id, ok := citation.ParseIdentity(path)
	if !ok {
		if logger != nil {
			logger.Warn().Str("path", path).Msg("amending row: could not parse citation path")
		}
		return AmendmentRow{}, false
	}

	return AmendmentRow{
		TitleEn:  titleEn,
		Path:     path,
		TypeCode: id.TypeCode,
		Year:     id.Year,
		Number:   id.Number,
		Name:     id.Name(),
		Target:   target,
		Affect:   affect,
		Applied:  applied,
	}, true
}

// BuildOutgoing folds "affecting" rows (things this law changes) into the
// amending/rescinding half of §4.5's fields, for callers that fetch the
// two changes tables as independent pipeline stages.
func BuildOutgoing(affecting []AmendmentRow) models.ParsedLaw {
	amending, rescinding := routeRows(affecting)
	return models.ParsedLaw{
		"amending":       amending,
		"rescinding":     rescinding,
		"amending_stats": buildStats(affecting),
	}
}

// BuildIncoming folds "affected" rows (things done to this law) into the
// amended_by/rescinded_by half of §4.5's fields, including the
// live_from_changes derivation.
func BuildIncoming(affected []AmendmentRow) models.ParsedLaw {
	amendedBy, rescindedBy := routeRows(affected)
	out := models.ParsedLaw{
		"amended_by":       amendedBy,
		"rescinded_by":     rescindedBy,
		"amended_by_stats": buildStats(affected),
	}
	if wholeLawRevoked(affected) {
		out["live_from_changes"] = string(models.LiveRevoked)
	}
	return out
}

func isRevocation(affect string) bool {
	lower := strings.ToLower(affect)
	return strings.Contains(lower, "revoked") || strings.Contains(lower, "repealed")
}

func routeRows(rows []AmendmentRow) (amending, rescinding []string) {
	seenAmending := map[string]bool{}
	seenRescinding := map[string]bool{}
	for _, r := range rows {
		if r.Name == "" {
			continue
		}
		if isRevocation(r.Affect) {
			if !seenRescinding[r.Name] {
				seenRescinding[r.Name] = true
				rescinding = append(rescinding, r.Name)
			}
			continue
		}
		if !seenAmending[r.Name] {
			seenAmending[r.Name] = true
			amending = append(amending, r.Name)
		}
	}
	return amending, rescinding
}

func buildStats(rows []AmendmentRow) map[string]models.AmendmentStats {
	if len(rows) == 0 {
		return nil
	}
	stats := map[string]models.AmendmentStats{}
	for _, r := range rows {
		if r.Name == "" {
			continue
		}
		entry := stats[r.Name]
		if entry.Title == "" {
			entry.Title = r.TitleEn
		}
		entry.Count++
		entry.Details = append(entry.Details, models.AmendmentStatLine{
			Target:  r.Target,
			Affect:  r.Affect,
			Applied: r.Applied,
		})
		stats[r.Name] = entry
	}
	return stats
}

// wholeLawRevoked reports whether the affected-endpoint rows contain any
// revocation whose target does not say "in part". The target is not
// checked for naming the whole law, so a revocation of a single
// provision also counts.
func wholeLawRevoked(affected []AmendmentRow) bool {
	for _, r := range affected {
		if isRevocation(r.Affect) && !strings.Contains(strings.ToLower(r.Target), "in part") {
			return true
		}
	}
	return false
}

// AffectingTablePath builds the canonical query path for the "affecting"
// changes table.
func AffectingTablePath(id citation.Identity) string {
	return fmt.Sprintf("/changes/affecting/%s?results-count=1000&sort=affecting-year-number", id.ShortPath())
}

// AffectedTablePath builds the canonical query path for the "affected"
// changes table.
func AffectedTablePath(id citation.Identity) string {
	return fmt.Sprintf("/changes/affected/%s?results-count=1000&sort=affected-year-number", id.ShortPath())
}
