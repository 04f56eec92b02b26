// Package normalizer implements the ParsedLaw normalizer & merger
//: a single place that absorbs heterogeneous input key
// shapes, JSON-value polymorphism, and the existing/new merge rule used
// both by StagedParser's stage merges and by repository upsert.
package normalizer

import (
	"strconv"
	"strings"
	"time"

	"github.com/sertantai/lrt-engine/internal/models"
)

// aliases maps legacy/alternate field spellings onto the canonical field
// name. Keys are lower-cased and snake_cased before lookup so both
// "Revoking" and "revoking" and "REVOKING" resolve the same way.
var aliases = map[string]string{
	"actor":            "role",
	"actor_gvt":        "role_gvt",
	"revoking":         "rescinding",
	"revoking_maker":   "rescinding",
	"revoked":          "rescinding",
	"revoked_by":       "rescinded_by",
	"is_revoking":      "is_rescinding",
	"enacted_date":     "md_enactment_date",
	"enactment_date":   "md_enactment_date",
	"made_date":        "md_made_date",
	"coming_into_force": "md_coming_into_force",
	"description":      "md_description",
	"subjects":         "md_subjects",
	"total_paras":      "md_total_paras",
	"images":           "md_images",
	"date":             "md_date",
	"restrict_extent":  "md_restrict_extent",
	"restrict_start_date": "md_restrict_start_date",
	"pdf":              "pdf_href",
	"title":            "title_en",
}

// toSnakeKey lower-cases and converts CapitalizedKeys / mixedCase keys to
// snake_case so "SICode", "si_code", and "siCode" all resolve to the same
// canonical field.
func toSnakeKey(key string) string {
	runes := []rune(key)
	var b strings.Builder
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			// Start a new word after a lower-case letter or digit, or at the
			// last capital of an acronym run ("SICode" -> "si_code").
			if i > 0 && runes[i-1] != '_' {
				prev := runes[i-1]
				prevLowerOrDigit := (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9')
				nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
				if prevLowerOrDigit || nextLower {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// canonicalFieldName resolves any accepted key spelling to its canonical
// ParsedLaw field name.
func canonicalFieldName(key string) string {
	snake := toSnakeKey(key)
	if canon, ok := aliases[snake]; ok {
		return canon
	}
	return snake
}

// FromMap normalizes a heterogeneous input map — atomic or string keys,
// capitalized or snake_case, JSON-wrapped list variants — into a flat
// ParsedLaw with canonical field names and coerced value types.
func FromMap(m map[string]interface{}) models.ParsedLaw {
	out := models.ParsedLaw{}
	for k, v := range m {
		field := canonicalFieldName(k)
		out[field] = coerceValue(field, unwrapJSONVariant(v))
	}
	return out
}

// unwrapJSONVariant collapses the four JSON-value shapes list fields can
// arrive in into a plain []string: a bare array, a
// {"values": [...]} wrapper, a {"entries": [...]} wrapper, or a key-set
// map {"key": true, ...} (decoded, or as the map[string]bool ToDB writes).
func unwrapJSONVariant(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if values, ok := t["values"]; ok {
			return unwrapJSONVariant(values)
		}
		if entries, ok := t["entries"]; ok {
			return unwrapJSONVariant(entries)
		}
		// Key-set map: every value is a bool => treat keys as a set.
		isKeySet := len(t) > 0
		for _, vv := range t {
			if _, ok := vv.(bool); !ok {
				isKeySet = false
				break
			}
		}
		if isKeySet {
			keys := make([]string, 0, len(t))
			for key, enabled := range t {
				if b, _ := enabled.(bool); b {
					keys = append(keys, key)
				}
			}
			return keys
		}
		return t
	case map[string]bool:
		keys := make([]string, 0, len(t))
		for key, enabled := range t {
			if enabled {
				keys = append(keys, key)
			}
		}
		return keys
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return v
	}
}

// coerceValue applies the value coercions: year-field strings to int,
// "true"/"false" strings to bool, empty strings to
// nil, and YYYY-MM-DD date strings left as strings (dates are stored as
// ISO strings throughout this module, never as a distinct date type, to
// keep JSON round-tripping lossless).
func coerceValue(field string, v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		if t == "true" {
			return true
		}
		if t == "false" {
			return false
		}
		if field == "year" {
			if n, err := strconv.Atoi(t); err == nil {
				return n
			}
		}
		return t
	case []string:
		if len(t) == 0 {
			return nil
		}
		return t
	case float64:
		if field == "year" || strings.HasPrefix(field, "md_total") || field == "md_images" || field == "taxa_text_length" {
			return int(t)
		}
		return t
	default:
		return v
	}
}

// Merge applies the rule used both by StagedParser's stage merges and by
// repository upsert: for every field, keep existing
// when new is null, an empty list, or an empty string; otherwise take new.
func Merge(existing, next models.ParsedLaw) models.ParsedLaw {
	out := models.ParsedLaw{}
	for k, v := range existing {
		out[k] = v
	}
	for _, field := range models.CanonicalFields {
		nv, present := next[field]
		if !present {
			continue
		}
		if isEmptyValue(nv) {
			continue
		}
		out[field] = nv
	}
	// Also absorb any field next carries that isn't in CanonicalFields,
	// so stage-specific scratch data (e.g. "live_from_changes") survives
	// the merge even though it is not part of the persisted row.
	for k, v := range next {
		if isEmptyValue(v) {
			continue
		}
		if _, known := out[k]; !known {
			out[k] = v
		} else if contains(models.CanonicalFields, k) {
			continue // already handled above
		} else {
			out[k] = v
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case map[string]bool:
		return len(t) == 0
	}
	return false
}

// dbWrappedListFields are the fields the DB representation wraps as
// {"values": [...]} rather than a bare array.
var dbWrappedListFields = map[string]bool{
	"si_code":      true,
	"md_subjects":  true,
	"duty_type":    true,
}

// dbKeySetFields are the holder fields the DB representation wraps as a
// key-set map {label: true}.
var dbKeySetFields = map[string]bool{
	"duty_holder":           true,
	"rights_holder":         true,
	"responsibility_holder": true,
	"power_holder":          true,
	"popimar":               true,
}

// ToDB wraps the in-memory plain-list representation back into the
// storage-boundary JSON shapes.
func ToDB(p models.ParsedLaw) map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		if dbWrappedListFields[k] {
			if list, ok := v.([]string); ok {
				out[k] = map[string]interface{}{"values": list}
				continue
			}
		}
		if dbKeySetFields[k] {
			if list, ok := v.([]string); ok {
				set := make(map[string]bool, len(list))
				for _, label := range list {
					set[label] = true
				}
				out[k] = set
				continue
			}
		}
		out[k] = v
	}
	return out
}

// FromDB inverts ToDB, restoring the plain-list in-memory representation.
func FromDB(m map[string]interface{}) models.ParsedLaw {
	out := models.ParsedLaw{}
	for k, v := range m {
		if dbWrappedListFields[k] || dbKeySetFields[k] {
			out[k] = unwrapJSONVariant(v)
			continue
		}
		out[k] = v
	}
	return out
}

// ParseFreeTextDate recognizes the free-text date shapes MetadataParser
// falls back to when no ISO date is present: ordinals
// ("10th September 2024") and times ("at 3.32 p.m. on 10th September
// 2024"). Returns the date in ISO (YYYY-MM-DD) form.
func ParseFreeTextDate(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if idx := strings.Index(strings.ToLower(s), " on "); idx >= 0 {
		s = s[idx+4:]
	}
	s = strings.TrimSpace(s)

	// Strip ordinal suffixes: "10th" -> "10", "1st" -> "1", "2nd" -> "2", "3rd" -> "3".
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return "", false
	}
	day := stripOrdinalSuffix(fields[0])
	month := fields[1]
	year := fields[2]

	dayNum, err := strconv.Atoi(day)
	if err != nil {
		return "", false
	}
	monthNum, ok := monthNumber(month)
	if !ok {
		return "", false
	}
	yearNum, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}

	t := time.Date(yearNum, time.Month(monthNum), dayNum, 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02"), true
}

func stripOrdinalSuffix(s string) string {
	suffixes := []string{"st", "nd", "rd", "th"}
	lower := strings.ToLower(s)
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, suf) {
			return s[:len(s)-len(suf)]
		}
	}
	return s
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

func monthNumber(name string) (int, bool) {
	n, ok := monthNames[strings.ToLower(name)]
	return n, ok
}
