package models

// ParsedLaw is the canonical working record StagedParser accumulates
// into across its seven stages, and the shape the normalizer produces
// from heterogeneous upstream input. Internally every
// list-shaped field is a plain Go slice/map — JSON-wrapped storage
// variants ({"values": [...]}, key-set maps) are a storage-boundary
// concern handled by the normalizer's ToDB/FromDB, never by callers.
//
// A map is used (rather than a fixed struct) because a stage can
// legitimately produce a subset of fields, and the merge rule in
// normalizer.Merge operates generically over "whatever keys are present" —
// the kind of heterogeneity that needs handling centrally rather than
// per caller.
type ParsedLaw map[string]interface{}

// Get returns the raw value stored for a canonical field name, or nil.
func (p ParsedLaw) Get(field string) interface{} {
	if p == nil {
		return nil
	}
	return p[field]
}

// GetString returns field as a string, or "" if absent/wrong type.
func (p ParsedLaw) GetString(field string) string {
	v, _ := p.Get(field).(string)
	return v
}

// GetBool returns field as a bool, or false if absent/wrong type.
func (p ParsedLaw) GetBool(field string) bool {
	v, _ := p.Get(field).(bool)
	return v
}

// GetStringSlice returns field as a []string, or nil if absent/wrong type.
func (p ParsedLaw) GetStringSlice(field string) []string {
	v, ok := p.Get(field).([]string)
	if !ok {
		return nil
	}
	return v
}

// GetInt returns field as an int, or 0 if absent/wrong type.
func (p ParsedLaw) GetInt(field string) int {
	v, _ := p.Get(field).(int)
	return v
}

// Set assigns field to value, creating the map if necessary. Returns the
// (possibly newly-allocated) receiver so it can be chained from a nil map.
func (p ParsedLaw) Set(field string, value interface{}) ParsedLaw {
	if p == nil {
		p = ParsedLaw{}
	}
	p[field] = value
	return p
}

// CanonicalFields lists every field name the normalizer recognizes.
// normalizer.Merge iterates it first; FromMap resolves keys through its
// own alias table and does not consult this list.
var CanonicalFields = []string{
	"type_code", "year", "number", "name", "title_en",
	"live", "live_source", "live_conflict", "live_conflict_detail",
	"family", "family_ii", "function",
	"amending", "amended_by", "rescinding", "rescinded_by", "enacting", "enacted_by",
	"enacted_by_meta", "amending_stats", "amended_by_stats",
	"is_making", "is_commencing", "is_amending", "is_rescinding", "is_enacting",
	"geo_extent", "geo_region", "geo_pan_region", "geo_detail",
	"role", "role_gvt", "duty_type", "popimar",
	"duty_holder", "rights_holder", "responsibility_holder", "power_holder",
	"duties", "rights", "responsibilities", "powers",
	"purpose", "taxa_text_source", "taxa_text_length",
	"md_description", "md_modified", "md_subjects", "si_code", "md_total_paras",
	"md_images", "md_date", "md_enactment_date", "md_made_date", "md_coming_into_force",
	"md_restrict_extent", "md_restrict_start_date", "pdf_href",
}
