package parsers

import (
	"encoding/xml"
	"sort"
	"strings"

	"github.com/sertantai/lrt-engine/internal/errs"
	"github.com/sertantai/lrt-engine/internal/models"
)

// contentsDoc mirrors the .../contents/data.xml structural document:
// a tree of ContentsItem elements, each optionally carrying a
// RestrictExtent attribute.
type contentsDoc struct {
	Items []contentsItem `xml:"Contents>ContentsItem"`
}

type contentsItem struct {
	ContentRef    string         `xml:"ContentRef,attr"`
	RestrictExtent string        `xml:"RestrictExtent,attr"`
	Children      []contentsItem `xml:"ContentsItem"`
}

var geoLetterOrder = []string{"E", "W", "S", "NI"}
var geoLetterName = map[string]string{
	"E":  "England",
	"W":  "Wales",
	"S":  "Scotland",
	"NI": "Northern Ireland",
}

// ParseExtent walks <ContentsItem ContentRef RestrictExtent> pairs and
// derives geo_region, geo_extent (pan-region code), and geo_detail.
func ParseExtent(xmlBody []byte) (models.ParsedLaw, error) {
	var doc contentsDoc
	if err := xml.Unmarshal(xmlBody, &doc); err != nil {
		return nil, errs.Newf(errs.KindParseError, "decode contents XML: %w", err)
	}

	byExtent := map[string][]string{}
	letters := map[string]bool{}

	var walk func(items []contentsItem)
	walk = func(items []contentsItem) {
		for _, item := range items {
			extent := normalizeExtentCode(item.RestrictExtent)
			if extent != "" && item.ContentRef != "" {
				byExtent[extent] = append(byExtent[extent], item.ContentRef)
				for _, letter := range splitExtentLetters(extent) {
					letters[letter] = true
				}
			}
			walk(item.Children)
		}
	}
	walk(doc.Items)

	var region []string
	for _, letter := range geoLetterOrder {
		if letters[letter] {
			region = append(region, geoLetterName[letter])
		}
	}

	out := models.ParsedLaw{
		"geo_region": region,
		"geo_extent": panRegionCode(letters),
		"geo_detail": buildGeoDetail(byExtent),
	}
	return out, nil
}

// splitExtentLetters decomposes a composite extent code such as "E+W+S"
// into its constituent single-region letters, treating "NI" as one unit.
func splitExtentLetters(extent string) []string {
	if extent == "NI" {
		return []string{"NI"}
	}
	parts := strings.Split(extent, "+")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// panRegionCode maps the union of present letters to the conventional
// pan-region shorthand.
func panRegionCode(letters map[string]bool) string {
	switch {
	case letters["E"] && letters["W"] && letters["S"] && letters["NI"]:
		return "UK"
	case letters["E"] && letters["W"] && letters["S"] && !letters["NI"]:
		return "GB"
	case letters["E"] && letters["W"] && !letters["S"] && !letters["NI"]:
		return "E+W"
	case letters["E"] && !letters["W"] && !letters["S"] && !letters["NI"]:
		return "E"
	case letters["W"] && !letters["E"] && !letters["S"] && !letters["NI"]:
		return "W"
	case letters["S"] && !letters["E"] && !letters["W"] && !letters["NI"]:
		return "S"
	case letters["NI"] && !letters["E"] && !letters["W"] && !letters["S"]:
		return "NI"
	}
	var present []string
	for _, letter := range geoLetterOrder {
		if letters[letter] {
			present = append(present, letter)
		}
	}
	return strings.Join(present, "+")
}

// buildGeoDetail renders the "extent → comma-separated section refs"
// human-readable summary, grouped by extent in a stable order.
func buildGeoDetail(byExtent map[string][]string) string {
	if len(byExtent) == 0 {
		return ""
	}
	extents := make([]string, 0, len(byExtent))
	for extent := range byExtent {
		extents = append(extents, extent)
	}
	sort.Strings(extents)

	var parts []string
	for _, extent := range extents {
		parts = append(parts, extent+" → "+strings.Join(byExtent[extent], ", "))
	}
	return strings.Join(parts, "; ")
}
