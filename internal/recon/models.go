package recon

import "time"

type Job struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	Items     []JobItem
}

type JobItem struct {
	ID         int64
	JobID      int64
	Name       string
	CurrentQty int
}

// ScanRecord is append-only; it doubles as the duplicate-scan guard
// and as the audit trail for movement deductions.
type ScanRecord struct {
	ID          int64
	JobID       int64
	ItemName    string
	ScannedName string
	Location    string
	ScannedAt   time.Time
}

// ExternalItemState tracks the last known location per Sortly item so
// that zone crossings can be reconstructed from absolute snapshots.
type ExternalItemState struct {
	ID           int64
	SortlyID     int64
	Name         string
	LastLocation string
	LastSeen     time.Time
}

// MovementEvent is the validated form of a Sortly movement
// notification, shared by the webhook and pull-sync paths.
type MovementEvent struct {
	SortlyID    int64
	Name        string
	OldLocation string
	NewLocation string
	MovedQty    *float64 // nil when the payload carried none
	Verb        string
	NodeType    string
	OccurredAt  time.Time
}
