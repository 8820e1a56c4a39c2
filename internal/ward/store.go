package ward

import (
	"context"
	"time"
)

// Store holds the authoritative alert collection for the session.
// Mutations change fields, never cardinality; only ReplaceAll changes the
// collection size. Implementations must keep ReplaceAll and the targeted
// mutations atomic with respect to Alerts snapshots.
type Store interface {
	// Alerts returns a snapshot copy of the full collection.
	Alerts(ctx context.Context) ([]Alert, error)

	// ReplaceAll atomically swaps the entire collection.
	ReplaceAll(ctx context.Context, alerts []Alert) error

	// AcknowledgeActive sets every Active alert for the patient to
	// Acknowledged and reports how many changed. Unknown patients are a
	// no-op.
	AcknowledgeActive(ctx context.Context, patientID int) (int, error)

	// SnoozeActive advances the timestamp of every Active alert for the
	// patient by d and reports how many changed. Unknown patients are a
	// no-op.
	SnoozeActive(ctx context.Context, patientID int, d time.Duration) (int, error)
}
