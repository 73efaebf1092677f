package reports

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Status is the review state of a report. The set is closed and ordered for
// display.
type Status string

const (
	StatusNew      Status = "new"
	StatusInReview Status = "in_review"
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"

	// StatusAll is a filter sentinel, never a record state.
	StatusAll Status = "all"
)

// StatusOrder is the display order of record states.
var StatusOrder = []Status{StatusNew, StatusInReview, StatusResolved, StatusRejected}

// Known reports whether s is a real record state.
func (s Status) Known() bool {
	for _, st := range StatusOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Label renders a status for display ("in_review" -> "in review").
func (s Status) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// Rating is a 0..5 star rating. Every value crossing the wire is clamped by
// the same rule: non-numeric becomes 0, out-of-range saturates, fractional
// values round half-up.
type Rating int

// ClampRating applies the uniform clamp rule.
func ClampRating(v float64) Rating {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return Rating(math.Floor(v + 0.5))
}

// UnmarshalJSON never fails: anything that does not parse as a number is
// treated as zero, matching the clamp rule for non-numeric input.
func (r *Rating) UnmarshalJSON(data []byte) error {
	*r = ClampRating(looseNumber(data))
	return nil
}

// Score is a CVSS v3.1 score. The backend serializes decimals as strings,
// so decoding accepts both forms.
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score(looseNumber(data))
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(s))
}

func looseNumber(data []byte) float64 {
	raw := strings.TrimSpace(string(data))
	raw = strings.Trim(raw, `"`)
	if raw == "" || raw == "null" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// Record is the authoritative copy of one vulnerability report, plus any
// local edits not yet committed. Transient dirty/saving state is tracked
// separately and never serialized.
type Record struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Target      string    `json:"target,omitempty"`
	CWE         string    `json:"cwe,omitempty"`
	CVSSScore   Score     `json:"cvss_score,omitempty"`
	Description string    `json:"description,omitempty"`
	Impact      string    `json:"impact,omitempty"`
	POCFile     string    `json:"poc_file,omitempty"`
	Status      Status    `json:"status"`
	Rating      Rating    `json:"rating"`
	CreatedBy   int64     `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CanDelete   bool      `json:"can_delete"`
}

// Patch is a partial update of the reviewable fields.
type Patch struct {
	Status *Status `json:"status,omitempty"`
	Rating *Rating `json:"rating,omitempty"`
}

// Draft carries the fields of a new report. POC is an opaque binary payload
// passed through to the backend untouched.
type Draft struct {
	Title       string
	Target      string
	CWE         string
	CVSSScore   string
	Description string
	Impact      string
	POCName     string
	POC         []byte
}
