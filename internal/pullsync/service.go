// Package pullsync reconstructs zone exits from polled absolute
// location snapshots. It is a one-directional approximation of the
// webhook path: only cached-in-zone -> now-out-of-zone transitions
// deduct, because a poll cannot see the intermediate hop.
package pullsync

import (
	"context"
	"time"

	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/sortly"
)

type Ledger interface {
	GetJobByID(ctx context.Context, id int64) (*recon.Job, error)
	ApplyMovement(ctx context.Context, jobID int64, itemName string, amount int, scannedName, location string) (before, after int, err error)
	GetExternalState(ctx context.Context, sortlyID int64) (*recon.ExternalItemState, error)
	UpsertExternalState(ctx context.Context, sortlyID int64, name, location string, seenAt time.Time) error
	LatestExternalSeen(ctx context.Context) (time.Time, bool, error)
}

// Inventory is what the service needs from the Sortly client.
type Inventory interface {
	ListItems(ctx context.Context, updatedSince time.Time, perPage int) ([]sortly.Item, error)
}

var _ Ledger = (*recon.Repo)(nil)
var _ Inventory = (*sortly.Client)(nil)

type MatchedItem struct {
	Name   string `json:"name"`
	NewQty int    `json:"new_qty"`
}

type Report struct {
	JobID     int64         `json:"job_id"`
	Matched   []MatchedItem `json:"matched"`
	Skipped   []string      `json:"skipped"`
	Timestamp time.Time     `json:"timestamp"`
}

type Service struct {
	Repo    Ledger
	Sortly  Inventory
	Matcher *recon.Matcher
	Zones   recon.Zones
}

// Sync pulls items updated since the last watermark and deducts one
// unit from the target job for every item that left the zone. The
// location cache is refreshed for every non-folder item regardless of
// whether a deduction happened.
func (s *Service) Sync(ctx context.Context, jobID int64) (*Report, error) {
	job, err := s.Repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	if latest, ok, err := s.Repo.LatestExternalSeen(ctx); err != nil {
		return nil, err
	} else if ok {
		// Overlap by ten minutes; Sortly's updated_since filter is not
		// exact and a missed update is worse than a re-read.
		since = latest.Add(-10 * time.Minute)
	}

	items, err := s.Sortly.ListItems(ctx, since, 100)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(job.Items))
	for i, it := range job.Items {
		names[i] = it.Name
	}

	report := &Report{JobID: jobID, Timestamp: time.Now().UTC()}
	for _, it := range items {
		if it.IsFolder() {
			report.Skipped = append(report.Skipped, it.Name)
			continue
		}
		location := it.LocationName()

		state, err := s.Repo.GetExternalState(ctx, it.ID)
		if err != nil {
			return nil, err
		}

		if state != nil && s.Zones.Contains(state.LastLocation) && location != "" && !s.Zones.Contains(location) {
			if matched, ok := s.Matcher.Match(it.Name, names); ok {
				before, after, err := s.Repo.ApplyMovement(ctx, job.ID, matched, 1, it.Name, location)
				if err != nil {
					return nil, err
				}
				if before > after {
					report.Matched = append(report.Matched, MatchedItem{Name: matched, NewQty: after})
				}
			}
		}

		if err := s.Repo.UpsertExternalState(ctx, it.ID, it.Name, location, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	return report, nil
}
