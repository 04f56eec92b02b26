// Package models defines the core record types of the Legal Register
// Table (LRT) engine: the LRT row itself, the Legal Articles Table (LAT)
// row, the cascade tracker's affected-law row, and the ParsedLaw working
// record StagedParser accumulates into across its seven stages.
package models

import "time"

// LiveStatus is the status string stored on an LRT row.
type LiveStatus string

const (
	LiveInForce        LiveStatus = "✔ In force"
	LiveRevoked        LiveStatus = "✗ Revoked"
	LivePartialRevoked LiveStatus = "Partially revoked"
)

// LiveSource records provenance of the live status decision.
type LiveSource string

const (
	LiveSourceBoth     LiveSource = "both"
	LiveSourceChanges  LiveSource = "changes"
	LiveSourceMetadata LiveSource = "metadata"
)

// ChangeLogEntry is one append-only record-change diff entry.
type ChangeLogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Field     string      `json:"field"`
	Old       interface{} `json:"old"`
	New       interface{} `json:"new"`
}

// ConflictDetail carries the winner and severities recorded when live
// status reconciliation finds a conflict.
type ConflictDetail struct {
	Reason           string `json:"reason"`
	Winner           string `json:"winner"` // "changes" or "metadata"
	ChangesSeverity  int    `json:"changes_severity"`
	MetadataSeverity int    `json:"metadata_severity"`
}

// AmendmentStats is the per-counterparty stats object AmendingParser
// builds, keyed by the counterparty's canonical name.
type AmendmentStats struct {
	Title   string              `json:"title"`
	Count   int                 `json:"count"`
	Details []AmendmentStatLine `json:"details"`
}

// AmendmentStatLine is one "target affect [applied?]" entry within an
// AmendmentStats.Details list.
type AmendmentStatLine struct {
	Target  string `json:"target"`
	Affect  string `json:"affect"`
	Applied string `json:"applied,omitempty"`
}

// HolderSet is a POPIMAR/duty/rights/responsibility/power holder label
// set, stored as an ordered list internally and wrapped as a key-set map
// {label: true} at the storage boundary.
type HolderSet []string

// EnactingMeta carries the source footnote URLs behind an enacted_by edge.
type EnactingMeta struct {
	SourceURLs []string `json:"source_urls"`
}

// LRTRow is one row of the Legal Register Table.
type LRTRow struct {
	// Identity
	TypeCode string `json:"type_code"`
	Year     int    `json:"year"`
	Number   string `json:"number"`
	Name     string `json:"name"` // canonical citation_name, globally unique

	Title string `json:"title_en"`

	// Status
	Live             LiveStatus       `json:"live"`
	LiveSource       LiveSource       `json:"live_source"`
	LiveConflict     bool             `json:"live_conflict"`
	LiveConflictInfo *ConflictDetail  `json:"live_conflict_detail,omitempty"`

	// Classification
	Family   string          `json:"family"`
	FamilyII string          `json:"family_ii"`
	Function map[string]bool `json:"function"` // nil means "no function asserted" (persisted as null)

	// Graph edges — always the canonical UK_... form
	Amending     []string `json:"amending"`
	AmendedBy    []string `json:"amended_by"`
	Rescinding   []string `json:"rescinding"`
	RescindedBy  []string `json:"rescinded_by"`
	Enacting     []string `json:"enacting"`
	EnactedBy    []string `json:"enacted_by"`
	EnactedByMeta map[string]EnactingMeta `json:"enacted_by_meta,omitempty"`

	// Per-law amendment stats, keyed by counterparty canonical name
	AmendingStats  map[string]AmendmentStats `json:"amending_stats,omitempty"`
	AmendedByStats map[string]AmendmentStats `json:"amended_by_stats,omitempty"`

	// Flags
	IsMaking     bool `json:"is_making"`
	IsCommencing bool `json:"is_commencing"`
	IsAmending   bool `json:"is_amending"`
	IsRescinding bool `json:"is_rescinding"`
	IsEnacting   bool `json:"is_enacting"`

	// Territorial extent
	GeoExtent    string   `json:"geo_extent"`
	GeoRegion    []string `json:"geo_region"` // ordered: England, Wales, Scotland, Northern Ireland
	GeoDetail    string   `json:"geo_detail"`

	// Taxonomy
	Role                  []string               `json:"role"`
	RoleGvt               []string               `json:"role_gvt"`
	DutyType              []string               `json:"duty_type"`
	POPIMAR               []string               `json:"popimar"`
	DutyHolder            HolderSet              `json:"duty_holder"`
	RightsHolder          HolderSet              `json:"rights_holder"`
	ResponsibilityHolder  HolderSet              `json:"responsibility_holder"`
	PowerHolder           HolderSet              `json:"power_holder"`
	Duties                TaxaEntries            `json:"duties"`
	Rights                TaxaEntries            `json:"rights"`
	Responsibilities      TaxaEntries            `json:"responsibilities"`
	Powers                TaxaEntries            `json:"powers"`
	Purpose               string                 `json:"purpose"`
	TaxaTextSource        string                 `json:"taxa_text_source"`
	TaxaTextLength        int                    `json:"taxa_text_length"`

	// Metadata
	MDDescription        string   `json:"md_description"`
	MDModified           string   `json:"md_modified"`
	MDSubjects           []string `json:"md_subjects"`
	SICode               []string `json:"si_code"`
	MDTotalParas         int      `json:"md_total_paras"`
	MDImages             int      `json:"md_images"`
	MDDate               string   `json:"md_date"` // resolved ISO date
	MDEnactmentDate      string   `json:"md_enactment_date"`
	MDMadeDate           string   `json:"md_made_date"`
	MDComingIntoForce    string   `json:"md_coming_into_force"`
	MDRestrictExtent     string   `json:"md_restrict_extent"`
	MDRestrictStartDate  string   `json:"md_restrict_start_date"`
	PDFHref              string   `json:"pdf_href"`

	RecordChangeLog []ChangeLogEntry `json:"record_change_log"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaxaEntries is the {articles, entries, holders} JSON object shape for
// duties/rights/responsibilities/powers.
type TaxaEntries struct {
	Articles []string          `json:"articles"`
	Entries  []TaxaEntry       `json:"entries"`
	Holders  []string          `json:"holders"`
}

// TaxaEntry is one classified provision within a TaxaEntries list.
type TaxaEntry struct {
	Holder   string `json:"holder"`
	DutyType string `json:"duty_type"`
	Clause   string `json:"clause"`
	Article  string `json:"article"`
}
