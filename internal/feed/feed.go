// Package feed supplies the alert feed collaborator: a randomized batch
// generator for demo sessions and roster loading. The engine treats the
// generator as an injected capability; tests inject fixtures instead.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/wardwatch/internal/ward"
)

const (
	minAlertsPerPatient = 1
	maxAlertsPerPatient = 5
	maxAlertAge         = time.Hour
)

// Generator produces schema-valid randomized alert batches: each patient
// gets 1..5 alerts with severity drawn as 20% Critical, 30% Warning, 50%
// Monitoring, a uniform category, a timestamp within the last hour, and
// initial status Active.
type Generator struct{}

// NewGenerator returns a randomized batch generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds a fresh batch for the roster.
func (g *Generator) Generate(_ context.Context, roster []ward.Patient) ([]ward.Alert, error) {
	categories := []ward.Category{ward.CategoryAirway, ward.CategoryBreathing, ward.CategoryCirculation}

	now := time.Now()
	var alerts []ward.Alert
	for _, p := range roster {
		n := minAlertsPerPatient + rand.IntN(maxAlertsPerPatient-minAlertsPerPatient+1)
		for range n {
			alerts = append(alerts, ward.Alert{
				ID:        ulid.Make().String(),
				PatientID: p.ID,
				Category:  categories[rand.IntN(len(categories))],
				Severity:  drawSeverity(),
				Timestamp: now.Add(-time.Duration(rand.Int64N(int64(maxAlertAge)))),
				Status:    ward.AlertActive,
			})
		}
	}
	return alerts, nil
}

func drawSeverity() ward.Severity {
	switch r := rand.Float64(); {
	case r < 0.2:
		return ward.SeverityCritical
	case r < 0.5:
		return ward.SeverityWarning
	default:
		return ward.SeverityMonitoring
	}
}

// DefaultRoster is the built-in demo ward.
func DefaultRoster() []ward.Patient {
	return []ward.Patient{
		{ID: 1, Name: "John Doe", Room: 101, Diagnosis: "Sepsis"},
		{ID: 2, Name: "Jane Smith", Room: 102, Diagnosis: "ARDS"},
		{ID: 3, Name: "Bob Johnson", Room: 103, Diagnosis: "MI"},
		{ID: 4, Name: "Alice Brown", Room: 104, Diagnosis: "Stroke"},
		{ID: 5, Name: "Tom Clark", Room: 105, Diagnosis: "Post-op"},
	}
}

// LoadRoster reads a patient roster from a JSON file and validates it.
func LoadRoster(path string) ([]ward.Patient, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is from trusted config, not user input
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var roster []ward.Patient
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("roster %s is empty", path)
	}

	seen := make(map[int]bool, len(roster))
	for i, p := range roster {
		if p.ID <= 0 {
			return nil, fmt.Errorf("roster patient %d has invalid id %d", i, p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("roster patient id %d is duplicated", p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" {
			return nil, fmt.Errorf("roster patient %d has no name", p.ID)
		}
	}
	return roster, nil
}
