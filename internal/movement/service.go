package movement

import (
	"context"
	"math"
	"strings"
	"time"

	kafkax "github.com/eargasm/sortly-recon/internal/kafka"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Ledger is the slice of the repo the detector needs.
type Ledger interface {
	JobsNewestFirst(ctx context.Context) ([]recon.Job, error)
	ApplyMovement(ctx context.Context, jobID int64, itemName string, amount int, scannedName, location string) (before, after int, err error)
	UpsertExternalState(ctx context.Context, sortlyID int64, name, location string, seenAt time.Time) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

var _ Ledger = (*recon.Repo)(nil)

type Result struct {
	Status    recon.Outcome   `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	Direction recon.Direction `json:"direction,omitempty"`
	Item      string          `json:"item,omitempty"`
	ItemName  string          `json:"item_name,omitempty"` // raw external name, on skips
	Deducted  int             `json:"deducted,omitempty"`
	Before    int             `json:"before,omitempty"`
	After     int             `json:"new_qty"`
}

type Service struct {
	Repo        Ledger
	Zones       recon.Zones
	Producer    Publisher
	ServiceName string
}

// Process reconciles one movement event. Crossing the zone boundary in
// either direction deducts: leaving the holding area means the stock is
// being consumed no matter which way it went. Non-move events are
// ignored without touching any state; everything else refreshes the
// last-known-location cache even when no deduction happens.
func (s *Service) Process(ctx context.Context, ev recon.MovementEvent, traceID string) (Result, error) {
	if !isItemMove(ev) {
		return Result{Status: recon.OutcomeIgnored, Reason: recon.ReasonNotItemMove}, nil
	}

	if ev.SortlyID != 0 {
		seen := ev.OccurredAt
		if seen.IsZero() {
			seen = time.Now().UTC()
		}
		if err := s.Repo.UpsertExternalState(ctx, ev.SortlyID, ev.Name, ev.NewLocation, seen); err != nil {
			return Result{}, err
		}
	}

	dir := s.Zones.Classify(ev.OldLocation, ev.NewLocation)
	if dir == recon.DirectionNone {
		return Result{Status: recon.OutcomeIgnored, Reason: recon.ReasonNoCrossing}, nil
	}

	amount := deductionAmount(ev.MovedQty)

	job, item, ok, err := s.resolveTarget(ctx, ev.Name)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Status: recon.OutcomeSkipped, Reason: recon.ReasonNoMatch, ItemName: ev.Name}, nil
	}

	before, after, err := s.Repo.ApplyMovement(ctx, job.ID, item, amount, ev.Name, ev.NewLocation)
	if err != nil {
		return Result{}, err
	}

	s.publishDeduction(job, item, ev.SortlyID, dir, before, after, traceID)

	return Result{
		Status:    recon.OutcomeApplied,
		Direction: dir,
		Item:      item,
		Deducted:  before - after,
		Before:    before,
		After:     after,
	}, nil
}

func isItemMove(ev recon.MovementEvent) bool {
	if !strings.EqualFold(strings.TrimSpace(ev.Verb), "move") {
		return false
	}
	// Folders and location nodes emit move events too; only items count.
	// An absent node_type passes, the webhook source doesn't always set it.
	return ev.NodeType == "" || strings.EqualFold(ev.NodeType, "item")
}

// deductionAmount floors the reported quantity; a crossing always
// deducts at least one unit, and an absent quantity counts as one.
func deductionAmount(q *float64) int {
	if q == nil {
		return 1
	}
	n := int(math.Floor(*q))
	if n < 1 {
		return 1
	}
	return n
}

// resolveTarget walks jobs newest-first and returns the first item
// whose normalized name matches the external name in either substring
// direction. Looser than the scan-time matcher on purpose: external
// display names and catalog names rarely share a clean prefix.
func (s *Service) resolveTarget(ctx context.Context, externalName string) (*recon.Job, string, bool, error) {
	jobs, err := s.Repo.JobsNewestFirst(ctx)
	if err != nil {
		return nil, "", false, err
	}
	query := recon.Normalize(externalName)
	if query == "" {
		return nil, "", false, nil
	}
	for i := range jobs {
		for _, it := range jobs[i].Items {
			candidate := recon.Normalize(it.Name)
			if candidate == "" {
				continue
			}
			if strings.Contains(query, candidate) || strings.Contains(candidate, query) {
				return &jobs[i], it.Name, true, nil
			}
		}
	}
	return nil, "", false, nil
}

func (s *Service) publishDeduction(job *recon.Job, item string, sortlyID int64, dir recon.Direction, before, after int, traceID string) {
	if s.Producer == nil {
		return
	}
	ev := recon.Envelope{
		EventID:       uuid.NewString(),
		EventType:     recon.EventDeductionApplied,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: job.Name,
		Payload: kafkax.MustMarshal(recon.DeductionAppliedPayload{
			JobID:     job.ID,
			JobName:   job.Name,
			Item:      item,
			SortlyID:  sortlyID,
			Direction: dir,
			Deducted:  before - after,
			Before:    before,
			After:     after,
		}),
	}
	s.Producer.Publish(recon.PartitionKey(job.Name), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(recon.EventDeductionApplied)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
