// Package memstore provides the in-memory implementation of ward.Store.
// The alert collection is session-scoped by design; nothing survives a
// process restart.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/wardwatch/internal/ward"
)

// Store holds the session's alert collection in memory. Mutations and
// ReplaceAll are atomic with respect to Alerts snapshots.
type Store struct {
	mu     sync.RWMutex
	alerts []ward.Alert
}

// New initializes an empty Store.
func New() *Store {
	return &Store{}
}

// Alerts returns a snapshot copy of the full collection.
func (s *Store) Alerts(_ context.Context) ([]ward.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]ward.Alert, len(s.alerts))
	copy(cp, s.alerts)
	return cp, nil
}

// ReplaceAll atomically swaps the entire collection for a copy of alerts.
func (s *Store) ReplaceAll(_ context.Context, alerts []ward.Alert) error {
	cp := make([]ward.Alert, len(alerts))
	copy(cp, alerts)
	s.mu.Lock()
	s.alerts = cp
	s.mu.Unlock()
	return nil
}

// AcknowledgeActive marks every Active alert for the patient as
// Acknowledged. Unknown patients are a no-op.
func (s *Store) AcknowledgeActive(_ context.Context, patientID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for i := range s.alerts {
		if s.alerts[i].PatientID == patientID && s.alerts[i].Status == ward.AlertActive {
			s.alerts[i].Status = ward.AlertAcknowledged
			n++
		}
	}
	return n, nil
}

// SnoozeActive advances the timestamp of every Active alert for the
// patient by d. Unknown patients are a no-op.
func (s *Store) SnoozeActive(_ context.Context, patientID int, d time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for i := range s.alerts {
		if s.alerts[i].PatientID == patientID && s.alerts[i].Status == ward.AlertActive {
			s.alerts[i].Timestamp = s.alerts[i].Timestamp.Add(d)
			n++
		}
	}
	return n, nil
}
