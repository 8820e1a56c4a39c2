package ward

import (
	"errors"
	"fmt"
	"time"
)

// Severity is the clinical urgency of an alert. The order is total and
// fixed: Monitoring < Warning < Critical.
type Severity string

const (
	SeverityMonitoring Severity = "Monitoring"
	SeverityWarning    Severity = "Warning"
	SeverityCritical   Severity = "Critical"
)

// rank returns the position of s in the severity order. Unknown
// severities rank below Monitoring.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityMonitoring:
		return 1
	default:
		return 0
	}
}

// ErrInvalidCriteria marks malformed filter input: an unknown severity or
// category token. It indicates a caller bug and is surfaced rather than
// silently ignored.
var ErrInvalidCriteria = errors.New("invalid criteria")

// ParseSeverity validates a severity token.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityMonitoring, SeverityWarning, SeverityCritical:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("%w: unknown severity %q", ErrInvalidCriteria, s)
	}
}

// Category groups alerts by the clinical system they concern.
type Category string

const (
	CategoryAirway      Category = "Airway"
	CategoryBreathing   Category = "Breathing"
	CategoryCirculation Category = "Circulation"
)

// ParseCategory validates a category token.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryAirway, CategoryBreathing, CategoryCirculation:
		return Category(s), nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidCriteria, s)
	}
}

// AlertStatus tracks where an alert is in its lifecycle.
type AlertStatus string

const (
	// AlertActive means raised and not yet handled by an operator.
	AlertActive AlertStatus = "Active"

	// AlertAcknowledged means an operator has seen it. Terminal within a
	// session.
	AlertAcknowledged AlertStatus = "Acknowledged"
)

// PatientStatus is the derived headline state of a patient: the maximum
// severity among the patient's currently visible alerts, or Stable if
// none survive the filter.
type PatientStatus string

const (
	StatusCritical   PatientStatus = "Critical"
	StatusWarning    PatientStatus = "Warning"
	StatusMonitoring PatientStatus = "Monitoring"
	StatusStable     PatientStatus = "Stable"
)

// statusFor maps a severity to the patient status it implies.
func statusFor(s Severity) PatientStatus {
	switch s {
	case SeverityCritical:
		return StatusCritical
	case SeverityWarning:
		return StatusWarning
	case SeverityMonitoring:
		return StatusMonitoring
	default:
		return StatusStable
	}
}

// Patient is one monitored bed on the ward roster. Created once at
// session start; never mutated or deleted by the engine.
type Patient struct {
	ID        int    `json:"patient_id"`
	Name      string `json:"name"`
	Room      int    `json:"room"`
	Diagnosis string `json:"diagnosis"`
}

// Alert is a single clinical observation tied to a patient.
type Alert struct {
	ID        string      `json:"id"`
	PatientID int         `json:"patient_id"`
	Category  Category    `json:"category"`
	Severity  Severity    `json:"severity"`
	Timestamp time.Time   `json:"timestamp"`
	Status    AlertStatus `json:"status"`
}

// JoinedAlert is an alert joined with the descriptive attributes of its
// patient, as produced by the filter pipeline.
type JoinedAlert struct {
	Alert
	Name string `json:"name"`
	Room int    `json:"room"`
}
