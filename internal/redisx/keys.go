package redisx

import "time"

const (
	// Webhook body dedup: dedup:webhook:{sha256(body)} -> 1.
	// Sortly payloads carry no stable event id, so the raw body hash
	// is the best available identity.
	KeyWebhookDedup = "dedup:webhook:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cached job view: job_view:{job_id} -> JSON job snapshot
	KeyJobView = "job_view:%d"
)

var (
	TTLDedup   = 48 * time.Hour
	TTLJobView = 5 * time.Minute
)
