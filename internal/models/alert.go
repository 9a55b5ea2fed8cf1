package models

import (
	"fmt"
	"strings"
	"time"
)

// MagUnknown is the sentinel magnitude for alerts whose response shape
// carries no photometry.
const MagUnknown = -999

// Alert is the canonical broker-independent alert shape stored in
// Elasticsearch and consumed by downstream target creation.
type Alert struct {
	Source   string  `json:"source"`
	SourceID string  `json:"source_id"`
	URL      string  `json:"display_url"`
	Name     string  `json:"name"`
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	MJD      float64 `json:"detection_time"`
	Mag      float64 `json:"magnitude"`
	Score    float64 `json:"score"`
}

// Validate checks the invariants every normalized alert must satisfy.
func (a Alert) Validate() error {
	if strings.TrimSpace(a.SourceID) == "" {
		return fmt.Errorf("alert has empty source_id")
	}
	if a.RA < 0 || a.RA >= 360 {
		return fmt.Errorf("alert %s: ra %.6f outside [0, 360)", a.SourceID, a.RA)
	}
	if a.Dec < -90 || a.Dec > 90 {
		return fmt.Errorf("alert %s: dec %.6f outside [-90, 90]", a.SourceID, a.Dec)
	}
	return nil
}

// DocID builds the deterministic document identifier for an alert.
// The same object re-fetched from the same broker overwrites in place.
func (a Alert) DocID() string {
	return a.Source + ":" + a.SourceID
}

// MJDFromTime converts a wall-clock time to a modified Julian date.
func MJDFromTime(t time.Time) float64 {
	return float64(t.UnixMilli())/86400000 + 40587
}

// TimeFromMJD converts a modified Julian date back to wall-clock time.
func TimeFromMJD(mjd float64) time.Time {
	return time.UnixMilli(int64((mjd - 40587) * 86400000)).UTC()
}
