package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSessionID generates a unique scrape session identifier keyed by the
// date range it covers, with a short random suffix to disambiguate
// same-day re-runs. Format: sess_<yyyymmdd>_<yyyymmdd>_<suffix>.
func NewSessionID(from, to time.Time) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("sess_%s_%s_%s", from.Format("20060102"), to.Format("20060102"), suffix)
}
