package parsers

import (
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/sertantai/lrt-engine/internal/citation"
	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
)

// enactingDoc mirrors the elements EnactingParser needs from the body
// XML: the introductory/enacting prose and the footnote citations it
// references.
type enactingDoc struct {
	IntroductoryText string `xml:"Primary>Body>IntroductoryText"`
	EnactingText     string `xml:"Primary>Body>EnactingText"`
	Footnotes        []struct {
		ID       string `xml:"id,attr"`
		Citation struct {
			URI string `xml:"URI,attr"`
		} `xml:"Citation"`
	} `xml:"Primary>Body>Footnotes>Footnote"`
}

// parentLawPhrases is the hard-coded dictionary of canonical parent-law
// phrases EnactingParser scans for in introductory/enacting prose.
// Extend as new recurring citations are observed.
var parentLawPhrases = map[string]string{
	"Health and Safety at Work etc. Act 1974": "ukpga/1974/37",
	"European Communities Act 1972":          "ukpga/1972/68",
	"Environmental Protection Act 1990":       "ukpga/1990/43",
	"Consumer Protection Act 1987":            "ukpga/1987/43",
}

var footnoteRefPattern = regexp.MustCompile(`/(ukpga|uksi|asp|anaw|nia|ukla|eu|european)/(directive/)?(\d{4})/([A-Za-z0-9]+)`)

// ParseEnacting scans the introductory/enacting text for parent-law
// citations, for secondary legislation only. typeCode
// determines eligibility; callers must skip calling this for primary
// legislation types.
func ParseEnacting(xmlBody []byte, typeCode string) (models.ParsedLaw, error) {
	if citation.IsPrimaryLegislation(typeCode) {
		return models.ParsedLaw{}, nil
	}

	var doc enactingDoc
	if err := xml.Unmarshal(xmlBody, &doc); err != nil {
		return nil, errs.Newf(errs.KindParseError, "decode enacting XML: %w", err)
	}

	text := doc.IntroductoryText + " " + doc.EnactingText

	footnoteURLs := map[string][]string{}
	for _, fn := range doc.Footnotes {
		if fn.Citation.URI != "" {
			footnoteURLs[fn.ID] = append(footnoteURLs[fn.ID], fn.Citation.URI)
		}
	}

	seen := map[string]bool{}
	var enactedBy []string
	sourceURLs := map[string]models.EnactingMeta{}

	addCanonical := func(name string, urls []string) {
		canon := citation.Canonicalize(name)
		if seen[canon] {
			if len(urls) > 0 {
				meta := sourceURLs[canon]
				meta.SourceURLs = append(meta.SourceURLs, urls...)
				sourceURLs[canon] = meta
			}
			return
		}
		seen[canon] = true
		enactedBy = append(enactedBy, canon)
		sourceURLs[canon] = models.EnactingMeta{SourceURLs: urls}
	}

	for phrase, path := range parentLawPhrases {
		if strings.Contains(text, phrase) {
			addCanonical(pathToName(path), nil)
		}
	}

	for footnoteID, urls := range footnoteURLs {
		if !strings.Contains(text, footnoteID) {
			continue
		}
		for _, url := range urls {
			if path, ok := citationPathFromFootnoteURL(url); ok {
				addCanonical(pathToName(path), []string{url})
			}
		}
	}

	out := models.ParsedLaw{
		"enacted_by":      enactedBy,
		"enacted_by_meta": sourceURLs,
		"is_enacting":     false,
	}
	return out, nil
}

// citationPathFromFootnoteURL extracts a type/year/number path from a
// footnote <Citation URI> value, mapping the EU directive shape
// "european/directive/<year>/<number>" onto "eudr/<year>/<number>".
func citationPathFromFootnoteURL(url string) (string, bool) {
	m := footnoteRefPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	typeCode, isDirective, year, number := m[1], m[2] != "", m[3], m[4]
	if typeCode == "european" || typeCode == "eu" {
		if isDirective {
			typeCode = "eudr"
		}
	}
	return typeCode + "/" + year + "/" + number, true
}

func pathToName(path string) string {
	return citation.Canonicalize(path)
}
