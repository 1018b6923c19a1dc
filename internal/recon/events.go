package recon

import (
	"encoding/json"
	"time"
)

const (
	EventScanApplied      = "ScanApplied"
	EventDeductionApplied = "DeductionApplied"
)

// Envelope wraps every published event; Payload carries the
// event-specific body.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // job name
	Payload       json.RawMessage `json:"payload"`
}

type ScanAppliedPayload struct {
	JobID       int64  `json:"job_id"`
	JobName     string `json:"job_name"`
	Item        string `json:"item"`
	ScannedName string `json:"scanned_name"`
	Location    string `json:"location,omitempty"`
	Remaining   int    `json:"remaining"`
}

type DeductionAppliedPayload struct {
	JobID     int64     `json:"job_id"`
	JobName   string    `json:"job_name"`
	Item      string    `json:"item"`
	SortlyID  int64     `json:"sortly_id,omitempty"`
	Direction Direction `json:"direction"`
	Deducted  int       `json:"deducted"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
}
