// Package citation builds and normalizes the canonical identifiers used
// throughout the engine: citation_name, short_path, and
// the HTTP path derived from them.
package citation

import (
	"fmt"
	"strings"
)

// Identity is the (type_code, year, number) triple that uniquely
// addresses a law on legislation.gov.uk.
type Identity struct {
	TypeCode string
	Year     int
	Number   string
}

// Name returns the canonical citation_name: UK_<type_code>_<year>_<number>.
func (id Identity) Name() string {
	return fmt.Sprintf("UK_%s_%d_%s", id.TypeCode, id.Year, id.Number)
}

// ShortPath returns the <type_code>/<year>/<number> form used to build
// upstream HTTP paths.
func (id Identity) ShortPath() string {
	return fmt.Sprintf("%s/%d/%s", id.TypeCode, id.Year, id.Number)
}

// URL returns the full legislation.gov.uk URL for this identity given a base URL.
func (id Identity) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + id.ShortPath()
}

// Canonicalize normalizes either accepted input form (short_path or
// citation_name) into the canonical UK_<type>_<year>_<number> form.
// Canonicalize is idempotent: Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(nameOrPath string) string {
	s := strings.Trim(strings.TrimSpace(nameOrPath), "/")
	if s == "" {
		return s
	}
	if strings.Contains(s, "/") {
		return "UK_" + strings.ReplaceAll(s, "/", "_")
	}
	if strings.HasPrefix(s, "UK_") {
		return s
	}
	// Bare underscore-separated form without the UK_ prefix is treated as
	// already-canonical content missing only the prefix.
	return "UK_" + s
}

// ParseIdentity extracts the (type_code, year, number) triple from a
// canonical citation_name such as "UK_uksi_2024_1234". Returns false if
// the name does not have the expected shape.
func ParseIdentity(name string) (Identity, bool) {
	s := strings.TrimPrefix(Canonicalize(name), "UK_")
	parts := strings.SplitN(s, "_", 3)
	if len(parts) != 3 {
		return Identity{}, false
	}
	var year int
	if _, err := fmt.Sscanf(parts[1], "%d", &year); err != nil {
		return Identity{}, false
	}
	return Identity{TypeCode: parts[0], Year: year, Number: parts[2]}, true
}

// primaryLegislationTypes are type codes EnactingParser skips, since
// primary legislation has no enabling parent.
var primaryLegislationTypes = map[string]bool{
	"ukpga": true,
	"asp":   true,
	"anaw":  true,
	"nia":   true,
}

// IsPrimaryLegislation reports whether typeCode names a primary
// legislation type (Act of Parliament, Act of the Scottish Parliament,
// Act of Senedd Cymru, or Act of the Northern Ireland Assembly).
func IsPrimaryLegislation(typeCode string) bool {
	return primaryLegislationTypes[strings.ToLower(typeCode)]
}
