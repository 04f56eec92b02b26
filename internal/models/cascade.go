package models

// UpdateType names the two cascade operations a CascadeEntry can carry.
type UpdateType string

const (
	UpdateReparse      UpdateType = "reparse"
	UpdateEnactingLink UpdateType = "enacting_link"
)

// CascadeStatus is the lifecycle state of a CascadeEntry.
type CascadeStatus string

const (
	CascadePending   CascadeStatus = "pending"
	CascadeProcessed CascadeStatus = "processed"
)

// CascadeEntry is one row of the cascade affected-law tracker: a pending
// (or processed) downstream update triggered by a newly parsed law
// naming an old law as a target.
type CascadeEntry struct {
	SessionID    string        `json:"session_id"`
	AffectedLaw  string        `json:"affected_law"` // unique-together with SessionID
	UpdateType   UpdateType    `json:"update_type"`
	SourceLaws   []string      `json:"source_laws"` // insertion order, de-duplicated
	Status       CascadeStatus `json:"status"`
}
