package recon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetExternalState returns the last known state for a Sortly item, or
// nil when the id has never been seen.
func (r *Repo) GetExternalState(ctx context.Context, sortlyID int64) (*ExternalItemState, error) {
	var s ExternalItemState
	err := r.DB.QueryRow(ctx, `
		SELECT id, sortly_id, COALESCE(name, ''), COALESCE(last_location, ''), last_seen
		FROM sortly_item_state WHERE sortly_id = $1
	`, sortlyID).Scan(&s.ID, &s.SortlyID, &s.Name, &s.LastLocation, &s.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertExternalState refreshes the last-known-location cache. Called
// for every processed external event whether or not it deducted.
func (r *Repo) UpsertExternalState(ctx context.Context, sortlyID int64, name, location string, seenAt time.Time) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO sortly_item_state(sortly_id, name, last_location, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sortly_id) DO UPDATE
		SET name = EXCLUDED.name,
		    last_location = EXCLUDED.last_location,
		    last_seen = EXCLUDED.last_seen
	`, sortlyID, name, location, seenAt)
	return err
}

// LatestExternalSeen is the pull-sync watermark: the newest last_seen
// across all cached items. ok is false when the cache is empty.
func (r *Repo) LatestExternalSeen(ctx context.Context) (t time.Time, ok bool, err error) {
	var latest *time.Time
	if err := r.DB.QueryRow(ctx, `SELECT MAX(last_seen) FROM sortly_item_state`).Scan(&latest); err != nil {
		return time.Time{}, false, err
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}
