package ward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu        sync.Mutex
	alerts    []Alert
	readErr   error
	mutateErr error
}

func newMockStore(alerts ...Alert) *mockStore {
	return &mockStore{alerts: alerts}
}

func (m *mockStore) Alerts(_ context.Context) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	cp := make([]Alert, len(m.alerts))
	copy(cp, m.alerts)
	return cp, nil
}

func (m *mockStore) ReplaceAll(_ context.Context, alerts []Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.alerts = append([]Alert(nil), alerts...)
	return nil
}

func (m *mockStore) AcknowledgeActive(_ context.Context, patientID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutateErr != nil {
		return 0, m.mutateErr
	}
	var n int
	for i := range m.alerts {
		if m.alerts[i].PatientID == patientID && m.alerts[i].Status == AlertActive {
			m.alerts[i].Status = AlertAcknowledged
			n++
		}
	}
	return n, nil
}

func (m *mockStore) SnoozeActive(_ context.Context, patientID int, d time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutateErr != nil {
		return 0, m.mutateErr
	}
	var n int
	for i := range m.alerts {
		if m.alerts[i].PatientID == patientID && m.alerts[i].Status == AlertActive {
			m.alerts[i].Timestamp = m.alerts[i].Timestamp.Add(d)
			n++
		}
	}
	return n, nil
}

// mockGenerator implements FeedGenerator for testing.
type mockGenerator struct {
	alerts []Alert
	err    error
	calls  int
}

func (g *mockGenerator) Generate(_ context.Context, _ []Patient) ([]Alert, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.alerts, nil
}

// mockNotifier implements Notifier for testing.
type mockNotifier struct {
	sent chan *Escalation
	err  error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{sent: make(chan *Escalation, 1)}
}

func (n *mockNotifier) Send(_ context.Context, esc *Escalation) error {
	n.sent <- esc
	return n.err
}

func newTestService(store Store) *Service {
	return NewService(store, testRoster(), nil, nil, log.Nop(), nil)
}

func TestTriageView_CriticalScenario(t *testing.T) {
	t.Parallel()

	store := newMockStore(mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive))
	svc := newTestService(store)

	view, err := svc.TriageView(context.Background(), AllCriteria())
	if err != nil {
		t.Fatalf("TriageView: %v", err)
	}

	if view.PerPatient[1].Status != StatusCritical {
		t.Errorf("patient 1 status = %q, want Critical", view.PerPatient[1].Status)
	}
	if view.Summary.Critical != 1 {
		t.Errorf("critical count = %d, want 1", view.Summary.Critical)
	}
	if len(view.Alerts) != 1 {
		t.Errorf("filtered alerts = %d, want 1", len(view.Alerts))
	}
}

func TestTriageView_AcknowledgeKeepsComputedStatus(t *testing.T) {
	t.Parallel()

	store := newMockStore(mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive))
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.AcknowledgeActive(ctx, 1); err != nil {
		t.Fatalf("AcknowledgeActive: %v", err)
	}

	view, err := svc.TriageView(ctx, AllCriteria())
	if err != nil {
		t.Fatalf("TriageView: %v", err)
	}

	// the aggregator considers filter membership, not Active/Acknowledged
	if view.Alerts[0].Status != AlertAcknowledged {
		t.Errorf("alert status = %q, want Acknowledged", view.Alerts[0].Status)
	}
	if view.PerPatient[1].Status != StatusCritical {
		t.Errorf("patient 1 status = %q, want Critical after acknowledge", view.PerPatient[1].Status)
	}
	if view.PerPatient[1].VisibleAlerts != 1 {
		t.Errorf("visible alerts = %d, want 1", view.PerPatient[1].VisibleAlerts)
	}
}

func TestTriageView_QuietModeHidesWarningPatient(t *testing.T) {
	t.Parallel()

	store := newMockStore(mkAlert("a1", 1, CategoryAirway, SeverityWarning, AlertActive))
	svc := newTestService(store)

	c := AllCriteria()
	c.QuietMode = true
	view, err := svc.TriageView(context.Background(), c)
	if err != nil {
		t.Fatalf("TriageView: %v", err)
	}

	if len(view.Alerts) != 0 {
		t.Fatalf("filtered alerts = %d, want 0", len(view.Alerts))
	}
	if view.PerPatient[1].Status != StatusStable {
		t.Errorf("patient 1 status = %q, want Stable under quiet mode", view.PerPatient[1].Status)
	}
}

func TestTriageView_RoomSearchIsolatesPatient(t *testing.T) {
	t.Parallel()

	store := newMockStore(
		mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive),
		mkAlert("a2", 2, CategoryBreathing, SeverityWarning, AlertActive),
	)
	svc := newTestService(store)

	c := AllCriteria()
	c.Search = "102"
	view, err := svc.TriageView(context.Background(), c)
	if err != nil {
		t.Fatalf("TriageView: %v", err)
	}

	if len(view.Alerts) != 1 || view.Alerts[0].PatientID != 2 {
		t.Fatalf("expected only patient 2's alerts to survive, got %d alerts", len(view.Alerts))
	}
	if view.PerPatient[1].Status != StatusStable {
		t.Errorf("patient 1 status = %q, want Stable (filtered out)", view.PerPatient[1].Status)
	}
}

func TestTriageView_AlertsSortedByTimestampDesc(t *testing.T) {
	t.Parallel()

	old := mkAlert("old", 1, CategoryAirway, SeverityWarning, AlertActive)
	old.Timestamp = old.Timestamp.Add(-time.Hour)
	newer := mkAlert("new", 1, CategoryAirway, SeverityWarning, AlertActive)

	store := newMockStore(old, newer)
	svc := newTestService(store)

	view, err := svc.TriageView(context.Background(), AllCriteria())
	if err != nil {
		t.Fatalf("TriageView: %v", err)
	}
	if view.Alerts[0].ID != "new" || view.Alerts[1].ID != "old" {
		t.Errorf("alerts = [%s %s], want newest first", view.Alerts[0].ID, view.Alerts[1].ID)
	}
}

func TestTriageView_InvalidCriteria(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	_, err := svc.TriageView(context.Background(), Criteria{Severities: []Severity{"Fatal"}})
	if !errors.Is(err, ErrInvalidCriteria) {
		t.Fatalf("TriageView = %v, want ErrInvalidCriteria", err)
	}
}

func TestTriageView_StoreError(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.readErr = errors.New("store unavailable")
	svc := newTestService(store)

	if _, err := svc.TriageView(context.Background(), AllCriteria()); err == nil {
		t.Fatal("expected error when store read fails")
	}
}

func TestAcknowledgeActive_Idempotent(t *testing.T) {
	t.Parallel()

	store := newMockStore(
		mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive),
		mkAlert("a2", 1, CategoryBreathing, SeverityWarning, AlertActive),
	)
	svc := newTestService(store)
	ctx := context.Background()

	n1, err := svc.AcknowledgeActive(ctx, 1)
	if err != nil {
		t.Fatalf("first acknowledge: %v", err)
	}
	if n1 != 2 {
		t.Errorf("first acknowledge changed %d alerts, want 2", n1)
	}

	n2, err := svc.AcknowledgeActive(ctx, 1)
	if err != nil {
		t.Fatalf("second acknowledge: %v", err)
	}
	if n2 != 0 {
		t.Errorf("second acknowledge changed %d alerts, want 0", n2)
	}

	for _, al := range store.alerts {
		if al.Status != AlertAcknowledged {
			t.Errorf("alert %s status = %q, want Acknowledged", al.ID, al.Status)
		}
	}
}

func TestAcknowledgeActive_UnknownPatientIsNoOp(t *testing.T) {
	t.Parallel()

	store := newMockStore(mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive))
	svc := newTestService(store)

	n, err := svc.AcknowledgeActive(context.Background(), 999)
	if err != nil {
		t.Fatalf("AcknowledgeActive: %v", err)
	}
	if n != 0 {
		t.Errorf("changed %d alerts for unknown patient, want 0", n)
	}
}

func TestSnoozeActive_Additive(t *testing.T) {
	t.Parallel()

	base := mkAlert("a1", 1, CategoryAirway, SeverityWarning, AlertActive)
	store := newMockStore(base)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SnoozeActive(ctx, 1, 30*time.Minute); err != nil {
		t.Fatalf("first snooze: %v", err)
	}
	if _, err := svc.SnoozeActive(ctx, 1, 15*time.Minute); err != nil {
		t.Fatalf("second snooze: %v", err)
	}

	want := base.Timestamp.Add(45 * time.Minute)
	if !store.alerts[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v (shifted by d1+d2)", store.alerts[0].Timestamp, want)
	}
	if store.alerts[0].Status != AlertActive {
		t.Errorf("status = %q, snooze must not change status", store.alerts[0].Status)
	}
}

func TestSnoozeActive_RejectsNonPositiveDuration(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	for _, d := range []time.Duration{0, -time.Minute} {
		if _, err := svc.SnoozeActive(context.Background(), 1, d); !errors.Is(err, ErrInvalidCriteria) {
			t.Errorf("SnoozeActive(%v) = %v, want ErrInvalidCriteria", d, err)
		}
	}
}

func TestSnoozeActive_SkipsAcknowledged(t *testing.T) {
	t.Parallel()

	acked := mkAlert("a1", 1, CategoryAirway, SeverityWarning, AlertAcknowledged)
	store := newMockStore(acked)
	svc := newTestService(store)

	n, err := svc.SnoozeActive(context.Background(), 1, time.Hour)
	if err != nil {
		t.Fatalf("SnoozeActive: %v", err)
	}
	if n != 0 {
		t.Errorf("snoozed %d alerts, want 0 (only Active alerts snooze)", n)
	}
	if !store.alerts[0].Timestamp.Equal(acked.Timestamp) {
		t.Error("acknowledged alert's timestamp must not move")
	}
}

func TestEscalate_SendsNotification(t *testing.T) {
	t.Parallel()

	store := newMockStore(
		mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive),
		mkAlert("a2", 1, CategoryBreathing, SeverityWarning, AlertAcknowledged),
	)
	notifier := newMockNotifier()
	svc := NewService(store, testRoster(), nil, notifier, log.Nop(), nil)

	if err := svc.Escalate(context.Background(), 1); err != nil {
		t.Fatalf("Escalate: %v", err)
	}

	select {
	case esc := <-notifier.sent:
		if esc.Name != "John Doe" {
			t.Errorf("escalation name = %q, want %q", esc.Name, "John Doe")
		}
		if esc.Room != 101 {
			t.Errorf("escalation room = %d, want 101", esc.Room)
		}
		if esc.ActiveAlerts != 1 {
			t.Errorf("active alerts = %d, want 1 (acknowledged alerts excluded)", esc.ActiveAlerts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for escalation notification")
	}
}

func TestEscalate_UnknownPatientIsNoOp(t *testing.T) {
	t.Parallel()

	notifier := newMockNotifier()
	svc := NewService(newMockStore(), testRoster(), nil, notifier, log.Nop(), nil)

	if err := svc.Escalate(context.Background(), 999); err != nil {
		t.Fatalf("Escalate: %v", err)
	}

	select {
	case <-notifier.sent:
		t.Fatal("no notification expected for unknown patient")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEscalate_DoesNotMutateAlerts(t *testing.T) {
	t.Parallel()

	al := mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive)
	store := newMockStore(al)
	notifier := newMockNotifier()
	svc := NewService(store, testRoster(), nil, notifier, log.Nop(), nil)

	if err := svc.Escalate(context.Background(), 1); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	<-notifier.sent

	if store.alerts[0] != al {
		t.Error("escalate must not mutate alert state")
	}
}

func TestRegenerateFeed_ReplacesCollection(t *testing.T) {
	t.Parallel()

	store := newMockStore(mkAlert("stale", 1, CategoryAirway, SeverityWarning, AlertAcknowledged))
	gen := &mockGenerator{alerts: []Alert{
		mkAlert("fresh1", 2, CategoryBreathing, SeverityCritical, AlertActive),
		mkAlert("fresh2", 3, CategoryCirculation, SeverityMonitoring, AlertActive),
	}}
	svc := NewService(store, testRoster(), gen, nil, log.Nop(), nil)

	got, err := svc.RegenerateFeed(context.Background())
	if err != nil {
		t.Fatalf("RegenerateFeed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("returned %d alerts, want 2", len(got))
	}
	if len(store.alerts) != 2 || store.alerts[0].ID != "fresh1" {
		t.Error("store should hold exactly the regenerated batch")
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestRegenerateFeed_PropagatesGeneratorError(t *testing.T) {
	t.Parallel()

	store := newMockStore(mkAlert("keep", 1, CategoryAirway, SeverityWarning, AlertActive))
	gen := &mockGenerator{err: errors.New("feed upstream down")}
	svc := NewService(store, testRoster(), gen, nil, log.Nop(), nil)

	if _, err := svc.RegenerateFeed(context.Background()); err == nil {
		t.Fatal("expected generator error to propagate")
	}
	// no retry inside the engine, and nothing replaced
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	if len(store.alerts) != 1 || store.alerts[0].ID != "keep" {
		t.Error("store must be untouched when generation fails")
	}
}

func TestRegenerateFeed_RejectsInvalidBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		alert Alert
	}{
		{"unknown patient", mkAlert("bad", 99, CategoryAirway, SeverityCritical, AlertActive)},
		{"unknown severity", Alert{ID: "bad", PatientID: 1, Category: CategoryAirway, Severity: "Fatal", Status: AlertActive}},
		{"unknown category", Alert{ID: "bad", PatientID: 1, Category: "Neuro", Severity: SeverityWarning, Status: AlertActive}},
		{"unknown status", Alert{ID: "bad", PatientID: 1, Category: CategoryAirway, Severity: SeverityWarning, Status: "Muted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMockStore()
			gen := &mockGenerator{alerts: []Alert{tt.alert}}
			svc := NewService(store, testRoster(), gen, nil, log.Nop(), nil)

			if _, err := svc.RegenerateFeed(context.Background()); err == nil {
				t.Fatal("expected invalid batch to be rejected")
			}
			if len(store.alerts) != 0 {
				t.Error("store must stay empty when the batch is invalid")
			}
		})
	}
}

func TestPatients_ReturnsCopy(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	got := svc.Patients(context.Background())
	if len(got) != 3 {
		t.Fatalf("patients = %d, want 3", len(got))
	}

	got[0].Name = "mutated"
	again := svc.Patients(context.Background())
	if again[0].Name != "John Doe" {
		t.Error("Patients must return a copy of the roster")
	}
}

func TestAlertHistory_SortedDescUnfiltered(t *testing.T) {
	t.Parallel()

	old := mkAlert("old", 1, CategoryAirway, SeverityMonitoring, AlertAcknowledged)
	old.Timestamp = old.Timestamp.Add(-2 * time.Hour)
	mid := mkAlert("mid", 1, CategoryBreathing, SeverityWarning, AlertActive)
	mid.Timestamp = mid.Timestamp.Add(-time.Hour)
	newest := mkAlert("new", 1, CategoryCirculation, SeverityCritical, AlertActive)
	other := mkAlert("other", 2, CategoryAirway, SeverityCritical, AlertActive)

	store := newMockStore(old, newest, mid, other)
	svc := newTestService(store)

	history, err := svc.AlertHistory(context.Background(), 1)
	if err != nil {
		t.Fatalf("AlertHistory: %v", err)
	}

	wantOrder := []string{"new", "mid", "old"}
	if len(history) != len(wantOrder) {
		t.Fatalf("history has %d alerts, want %d", len(history), len(wantOrder))
	}
	for i, id := range wantOrder {
		if history[i].ID != id {
			t.Errorf("history[%d].ID = %q, want %q", i, history[i].ID, id)
		}
	}
}

func TestAlertHistory_UnknownPatientIsEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(mkAlert("a1", 1, CategoryAirway, SeverityCritical, AlertActive)))
	history, err := svc.AlertHistory(context.Background(), 999)
	if err != nil {
		t.Fatalf("AlertHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history has %d alerts for unknown patient, want 0", len(history))
	}
}
