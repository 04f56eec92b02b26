package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/errs"
)

// DiscoveredLaw is one entry of the "newly published" list returned by
// the `/new/<yyyy>/<mm>/<dd>` endpoint.
type DiscoveredLaw struct {
	Identity citation.Identity
	TitleEn  string
	Path     string
}

// DiscoveryPath builds the canonical path for the daily "new legislation"
// list, optionally narrowed to a single type code.
func DiscoveryPath(date time.Time, typeCode string) string {
	path := fmt.Sprintf("/new/%04d/%02d/%02d", date.Year(), date.Month(), date.Day())
	if typeCode != "" {
		path += "?type=" + typeCode
	}
	return path
}

// ParseDiscoveryList parses the HTML list of newly published laws into
// their identities, deduplicated by canonical name. It
// reuses AmendingParser's link-then-ParseIdentity approach since both
// endpoints serve the same "table of law links" shape.
func ParseDiscoveryList(html []byte, logger arbor.ILogger) ([]DiscoveredLaw, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, errs.Newf(errs.KindParseError, "parse discovery list: %w", err)
	}

	seen := map[string]bool{}
	var laws []DiscoveredLaw
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		path, _ := s.Attr("href")
		path = strings.TrimSpace(path)
		if len(strings.Split(strings.Trim(path, "/"), "/")) != 3 {
			return // skip links to sub-pages (contents, made, changes, ...)
		}
		id, ok := citation.ParseIdentity(path)
		if !ok {
			return
		}
		if seen[id.Name()] {
			return
		}
		seen[id.Name()] = true
		laws = append(laws, DiscoveredLaw{
			Identity: id,
			TitleEn:  strings.TrimSpace(s.Text()),
			Path:     path,
		})
	})

	if logger != nil {
		logger.Debug().Int("count", len(laws)).Msg("discovery list parsed")
	}
	return laws, nil
}
