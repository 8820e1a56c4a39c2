package ward

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// FeedGenerator produces a fresh schema-valid alert batch for the roster.
// The caller supplies it; the engine makes no assumptions about how
// alerts are produced.
type FeedGenerator interface {
	Generate(ctx context.Context, roster []Patient) ([]Alert, error)
}

// Escalation is the notification payload emitted when an operator
// escalates a patient. Escalate does not mutate alert state.
type Escalation struct {
	PatientID    int
	Name         string
	Room         int
	Diagnosis    string
	ActiveAlerts int
	At           time.Time
}

// Notifier delivers escalation notices to an external paging sink.
type Notifier interface {
	Send(ctx context.Context, esc *Escalation) error
}

// View is the output of one triage cycle: a consistent snapshot for
// presentation. Alerts is the filtered, patient-joined list sorted by
// timestamp descending for drill-down views.
type View struct {
	PerPatient map[int]PatientSummary `json:"per_patient"`
	Summary    Summary                `json:"summary"`
	Alerts     []JoinedAlert          `json:"alerts"`
}

// Service is the business boundary for triage operations. It owns the
// roster for the session and composes the filter pipeline and status
// aggregator into request/response cycles.
type Service struct {
	store    Store
	roster   []Patient
	byID     map[int]Patient
	feed     FeedGenerator
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics
}

// NewService creates a triage service over the given store and roster.
// notifier and metrics may be nil.
func NewService(store Store, roster []Patient, feed FeedGenerator, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	byID := make(map[int]Patient, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}
	return &Service{
		store:    store,
		roster:   append([]Patient(nil), roster...),
		byID:     byID,
		feed:     feed,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Patients returns a copy of the session roster.
func (s *Service) Patients(_ context.Context) []Patient {
	return append([]Patient(nil), s.roster...)
}

// TriageView runs one triage cycle: snapshot the store, apply the filter
// pipeline, aggregate per-patient status and headline counts.
func (s *Service) TriageView(ctx context.Context, c Criteria) (*View, error) {
	start := time.Now()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	alerts, err := s.store.Alerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read alerts: %w", err)
	}

	filtered := ApplyFilter(alerts, s.roster, c)
	per, sum := Aggregate(filtered, s.roster)

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	if s.metrics != nil {
		s.metrics.ObserveView(time.Since(start), sum)
	}

	return &View{PerPatient: per, Summary: sum, Alerts: filtered}, nil
}

// AlertHistory returns every alert for the patient regardless of the
// current filter, sorted by timestamp descending. Unknown patients yield
// an empty list.
func (s *Service) AlertHistory(ctx context.Context, patientID int) ([]Alert, error) {
	alerts, err := s.store.Alerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read alerts: %w", err)
	}

	history := make([]Alert, 0, 8)
	for _, al := range alerts {
		if al.PatientID == patientID {
			history = append(history, al)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	return history, nil
}

// AcknowledgeActive marks every Active alert for the patient as
// Acknowledged. Idempotent; unknown patients are a silent no-op.
func (s *Service) AcknowledgeActive(ctx context.Context, patientID int) (int, error) {
	n, err := s.store.AcknowledgeActive(ctx, patientID)
	if s.metrics != nil {
		s.metrics.ObserveAction("acknowledge", err, n)
	}
	if err != nil {
		return 0, fmt.Errorf("acknowledge patient %d: %w", patientID, err)
	}
	s.logger.Info(ctx, "acknowledged active alerts", "patient_id", patientID, "alerts", n)
	return n, nil
}

// SnoozeActive advances the timestamp of every Active alert for the
// patient by d. Consecutive snoozes are additive. Unknown patients are a
// silent no-op; a non-positive duration is a caller bug.
func (s *Service) SnoozeActive(ctx context.Context, patientID int, d time.Duration) (int, error) {
	if d <= 0 {
		return 0, fmt.Errorf("%w: snooze duration must be positive, got %s", ErrInvalidCriteria, d)
	}
	n, err := s.store.SnoozeActive(ctx, patientID, d)
	if s.metrics != nil {
		s.metrics.ObserveAction("snooze", err, n)
	}
	if err != nil {
		return 0, fmt.Errorf("snooze patient %d: %w", patientID, err)
	}
	s.logger.Info(ctx, "snoozed active alerts", "patient_id", patientID, "alerts", n, "duration", d)
	return n, nil
}

// Escalate emits a notification for the patient without mutating alert
// state. Delivery is fire-and-forget on a detached context; failures are
// logged, not returned. Unknown patients are a silent no-op.
func (s *Service) Escalate(ctx context.Context, patientID int) error {
	p, ok := s.byID[patientID]
	if !ok {
		s.logger.Info(ctx, "escalate for unknown patient ignored", "patient_id", patientID)
		if s.metrics != nil {
			s.metrics.ObserveEscalation("unknown_patient")
		}
		return nil
	}

	alerts, err := s.store.Alerts(ctx)
	if err != nil {
		return fmt.Errorf("read alerts: %w", err)
	}
	var active int
	for _, al := range alerts {
		if al.PatientID == patientID && al.Status == AlertActive {
			active++
		}
	}

	esc := &Escalation{
		PatientID:    p.ID,
		Name:         p.Name,
		Room:         p.Room,
		Diagnosis:    p.Diagnosis,
		ActiveAlerts: active,
		At:           time.Now(),
	}

	s.logger.Info(ctx, "escalating alerts", "patient_id", p.ID, "patient", p.Name, "active_alerts", active)

	if s.notifier == nil {
		if s.metrics != nil {
			s.metrics.ObserveEscalation("no_notifier")
		}
		return nil
	}

	// fire-and-forget so a slow paging sink never blocks the operator
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := s.notifier.Send(ctx, esc); err != nil {
			s.logger.Error(ctx, err, "escalation notification failed", "patient_id", p.ID)
			if s.metrics != nil {
				s.metrics.ObserveEscalation("error")
			}
			return
		}
		if s.metrics != nil {
			s.metrics.ObserveEscalation("sent")
		}
	}()
	return nil
}

// RegenerateFeed asks the feed collaborator for a fresh batch, validates
// it, and atomically replaces the store contents. Generator failures
// propagate to the caller; retry policy stays with the caller. Safe to
// repeat idempotently.
func (s *Service) RegenerateFeed(ctx context.Context) ([]Alert, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("feed generation: no generator configured")
	}

	alerts, err := s.feed.Generate(ctx, s.Patients(ctx))
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveFeedRegen("error", 0)
		}
		return nil, fmt.Errorf("feed generation: %w", err)
	}
	if err := s.validateBatch(alerts); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveFeedRegen("invalid", 0)
		}
		return nil, fmt.Errorf("feed generation: %w", err)
	}

	if err := s.store.ReplaceAll(ctx, alerts); err != nil {
		return nil, fmt.Errorf("replace alerts: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveFeedRegen("ok", len(alerts))
	}
	s.logger.Info(ctx, "feed regenerated", "alerts", len(alerts), "patients", len(s.roster))
	return alerts, nil
}

// validateBatch enforces the feed contract: every alert references a
// roster patient and carries known enum values.
func (s *Service) validateBatch(alerts []Alert) error {
	for i, al := range alerts {
		if _, ok := s.byID[al.PatientID]; !ok {
			return fmt.Errorf("alert %d references unknown patient %d", i, al.PatientID)
		}
		if _, err := ParseSeverity(string(al.Severity)); err != nil {
			return fmt.Errorf("alert %d: %w", i, err)
		}
		if _, err := ParseCategory(string(al.Category)); err != nil {
			return fmt.Errorf("alert %d: %w", i, err)
		}
		if al.Status != AlertActive && al.Status != AlertAcknowledged {
			return fmt.Errorf("alert %d has unknown status %q", i, al.Status)
		}
	}
	return nil
}
