package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkax "github.com/eargasm/sortly-recon/internal/kafka"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Ledger is the slice of the repo the reconciler needs.
type Ledger interface {
	GetJobByName(ctx context.Context, name string) (*recon.Job, error)
	HasScan(ctx context.Context, jobID int64, scannedName string) (bool, error)
	ApplyScan(ctx context.Context, jobID int64, itemName, scannedName, location string) (before, after int, err error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

var _ Ledger = (*recon.Repo)(nil)
var _ Publisher = (*kafkax.Producer)(nil)

// ErrMissingFields is an input fault, unlike the business rejections
// carried in Result.
var ErrMissingFields = errors.New("missing job_name or scanned_name")

type Request struct {
	JobName     string `json:"job_name"`
	ScannedName string `json:"scanned_name"`
	Location    string `json:"location"`
}

type Result struct {
	Status    recon.Outcome `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Item      string        `json:"item,omitempty"`
	Remaining int           `json:"remaining"`
	Message   string        `json:"message,omitempty"`
}

type Service struct {
	Repo        Ledger
	Matcher     *recon.Matcher
	Producer    Publisher
	Redis       *redis.Client
	ServiceName string
}

// Process runs one scan through the full pipeline: validate, duplicate
// guard, fuzzy match, depletion check, decrement + audit log. Rejects
// are returned as results; only input faults, unknown jobs and
// infrastructure failures surface as errors.
func (s *Service) Process(ctx context.Context, req Request, traceID string) (Result, error) {
	if req.JobName == "" || req.ScannedName == "" {
		return Result{}, ErrMissingFields
	}

	job, err := s.Repo.GetJobByName(ctx, req.JobName)
	if err != nil {
		return Result{}, err
	}

	dup, err := s.Repo.HasScan(ctx, job.ID, req.ScannedName)
	if err != nil {
		return Result{}, err
	}
	if dup {
		return Result{Status: recon.OutcomeRejected, Reason: recon.ReasonDuplicateScan}, nil
	}

	names := make([]string, len(job.Items))
	for i, it := range job.Items {
		names[i] = it.Name
	}
	matched, ok := s.Matcher.Match(req.ScannedName, names)
	if !ok {
		return Result{Status: recon.OutcomeRejected, Reason: recon.ReasonNoMatch}, nil
	}

	_, after, err := s.Repo.ApplyScan(ctx, job.ID, matched, req.ScannedName, req.Location)
	if errors.Is(err, recon.ErrItemDepleted) {
		return Result{Status: recon.OutcomeRejected, Reason: recon.ReasonDepleted, Item: matched}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if s.Redis != nil {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyJobView, job.ID)).Err()
	}
	s.publishApplied(job, matched, req, after, traceID)

	return Result{
		Status:    recon.OutcomeApplied,
		Item:      matched,
		Remaining: after,
		Message:   fmt.Sprintf("Scan recorded for %q. Remaining: %d", matched, after),
	}, nil
}

func (s *Service) publishApplied(job *recon.Job, item string, req Request, remaining int, traceID string) {
	if s.Producer == nil {
		return
	}
	ev := recon.Envelope{
		EventID:       uuid.NewString(),
		EventType:     recon.EventScanApplied,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: job.Name,
		Payload: kafkax.MustMarshal(recon.ScanAppliedPayload{
			JobID:       job.ID,
			JobName:     job.Name,
			Item:        item,
			ScannedName: req.ScannedName,
			Location:    req.Location,
			Remaining:   remaining,
		}),
	}
	s.Producer.Publish(recon.PartitionKey(job.Name), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(recon.EventScanApplied)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
