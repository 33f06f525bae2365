package model

// Severity orders findings and alerts.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityAlert   Severity = "alert"
)

// Rank is 3 for alert, 2 for warning, 1 for info and 0 otherwise.
func (s Severity) Rank() int {
	switch s {
	case SeverityAlert:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}
