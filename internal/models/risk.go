package models

import "fmt"

// Severity of a clause risk
type Severity int

const (
	SeverityMedium Severity = iota
	SeverityHigh
	SeverityCritical
)

// MarshalText encodes the label form used in reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	default:
		return "UNKNOWN"
	}
}

// Risk is one finding of the clause scanner.
type Risk struct {
	Check       string   `json:"check"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Citation    string   `json:"citation"`
}

func (r Risk) String() string {
	return fmt.Sprintf("[%s] %s (Cite: %s)", r.Severity, r.Description, r.Citation)
}
