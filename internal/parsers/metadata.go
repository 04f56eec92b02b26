// Package parsers implements the fixed family of per-stage document
// parsers StagedParser drives: metadata, extent, enacting, amending, and
// the hierarchical LAT body-text walk.
package parsers

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
	"github.com/sertantai/lrt-engine/internal/normalizer"
)

// introductionDoc mirrors the Dublin-Core-annotated <introduction> XML
// shape legislation.gov.uk serves at .../introduction/data.xml. Only the
// elements MetadataParser consumes are modelled; everything else is
// dropped by encoding/xml on decode.
type introductionDoc struct {
	XMLName xml.Name `xml:"Legislation"`
	Meta    struct {
		Primary struct {
			DocumentMainType string `xml:"DocumentMainType,attr"`
		} `xml:"PrimaryMetadata"`
		DC struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
			Modified    string `xml:"modified"`
			Subject     []string `xml:"subject"`
		} `xml:"dc"`
		Restrict struct {
			Extent    string `xml:"RestrictExtent,attr"`
			StartDate string `xml:"RestrictStartDate,attr"`
		} `xml:"Restrict"`
		TotalParagraphs string `xml:"TotalParagraphs,attr"`
		Images          string `xml:"Images,attr"`
		EnactmentDate   struct {
			Date string `xml:"Date,attr"`
		} `xml:"EnactmentDate"`
		Made struct {
			Date string `xml:"Date,attr"`
		} `xml:"Made"`
		ComingIntoForce struct {
			Date     string `xml:"Date,attr"`
			DateText string `xml:"DateText,attr"`
		} `xml:"ComingIntoForce"`
	} `xml:"Primary"`
	PDFHref string `xml:"AlternativeFormats>Format>URI"`
}

var siCodeSubjectPattern = regexp.MustCompile(`(?i)^si code[:\s]+(.+)$`)
var trailingGeoQualifier = regexp.MustCompile(`(?i),\s*(england( and wales)?|wales|scotland|northern ireland)\s*$`)

// ParseMetadata parses Dublin-Core introduction XML into a ParsedLaw
// fragment. existingTitle, when non-empty, is preserved
// verbatim — title_en is never overwritten once set.
func ParseMetadata(xmlBody []byte, existingTitle string) (models.ParsedLaw, error) {
	var doc introductionDoc
	if err := xml.Unmarshal(xmlBody, &doc); err != nil {
		return nil, errs.Newf(errs.KindParseError, "decode introduction XML: %w", err)
	}

	out := models.ParsedLaw{}

	if existingTitle != "" {
		out["title_en"] = existingTitle
	} else if doc.Meta.DC.Title != "" {
		out["title_en"] = doc.Meta.DC.Title
	}

	out["md_description"] = doc.Meta.DC.Description
	out["md_modified"] = doc.Meta.DC.Modified

	var subjects, siCodes []string
	for _, s := range doc.Meta.DC.Subject {
		clean := trailingGeoQualifier.ReplaceAllString(strings.TrimSpace(s), "")
		if m := siCodeSubjectPattern.FindStringSubmatch(clean); m != nil {
			for _, code := range strings.Split(m[1], ";") {
				code = strings.TrimSpace(code)
				if code != "" {
					siCodes = append(siCodes, code)
				}
			}
			continue
		}
		if clean != "" {
			subjects = append(subjects, clean)
		}
	}
	out["md_subjects"] = subjects
	out["si_code"] = siCodes

	out["md_total_paras"] = atoiOrZero(doc.Meta.TotalParagraphs)
	out["md_images"] = atoiOrZero(doc.Meta.Images)
	out["md_restrict_extent"] = normalizeExtentCode(doc.Meta.Restrict.Extent)
	out["md_restrict_start_date"] = doc.Meta.Restrict.StartDate
	out["pdf_href"] = doc.PDFHref

	out["md_enactment_date"] = resolveDate(doc.Meta.EnactmentDate.Date, "")
	out["md_made_date"] = resolveDate(doc.Meta.Made.Date, "")
	out["md_coming_into_force"] = resolveDate(doc.Meta.ComingIntoForce.Date, doc.Meta.ComingIntoForce.DateText)

	switch {
	case out["md_enactment_date"] != "":
		out["md_date"] = out["md_enactment_date"]
	case out["md_made_date"] != "":
		out["md_date"] = out["md_made_date"]
	case out["md_coming_into_force"] != "":
		out["md_coming_into_force"] = out["md_coming_into_force"]
		out["md_date"] = out["md_coming_into_force"]
	}

	return normalizer.FromMap(out), nil
}

func resolveDate(iso, freeText string) string {
	if iso != "" {
		return iso
	}
	if freeText == "" {
		return ""
	}
	if parsed, ok := normalizer.ParseFreeTextDate(freeText); ok {
		return parsed
	}
	return ""
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func normalizeExtentCode(code string) string {
	if strings.EqualFold(code, "N.I.") {
		return "NI"
	}
	return code
}
