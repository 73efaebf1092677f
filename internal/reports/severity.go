package reports

import "fmt"

// Severity buckets a CVSS v3.1 score for display.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityOf maps a score to its bucket.
func SeverityOf(score Score) Severity {
	s := float64(score)
	switch {
	case s >= 9.0:
		return SeverityCritical
	case s >= 7.0:
		return SeverityHigh
	case s >= 4.0:
		return SeverityMedium
	case s > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// SeverityLabel renders "5.5 (Medium)", or "" when no score is set.
func SeverityLabel(score Score) string {
	if score == 0 {
		return ""
	}
	sev := SeverityOf(score)
	name := map[Severity]string{
		SeverityNone:     "None",
		SeverityLow:      "Low",
		SeverityMedium:   "Medium",
		SeverityHigh:     "High",
		SeverityCritical: "Critical",
	}[sev]
	return fmt.Sprintf("%.1f (%s)", float64(score), name)
}
