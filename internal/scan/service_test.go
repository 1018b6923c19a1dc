package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/eargasm/sortly-recon/internal/recon"
)

type fakeLedger struct {
	job     *recon.Job
	scanned map[string]bool
	applied []string // "item|scanned|location"
}

func newFakeLedger(items map[string]int) *fakeLedger {
	job := &recon.Job{ID: 1, Name: "job-1"}
	for name, qty := range items {
		job.Items = append(job.Items, recon.JobItem{JobID: 1, Name: name, CurrentQty: qty})
	}
	return &fakeLedger{job: job, scanned: map[string]bool{}}
}

func (f *fakeLedger) GetJobByName(_ context.Context, name string) (*recon.Job, error) {
	if name != f.job.Name {
		return nil, recon.ErrJobNotFound
	}
	cp := *f.job
	cp.Items = append([]recon.JobItem(nil), f.job.Items...)
	return &cp, nil
}

func (f *fakeLedger) HasScan(_ context.Context, jobID int64, scannedName string) (bool, error) {
	return f.scanned[scannedName], nil
}

func (f *fakeLedger) ApplyScan(_ context.Context, jobID int64, itemName, scannedName, location string) (int, int, error) {
	for i := range f.job.Items {
		it := &f.job.Items[i]
		if it.Name != itemName {
			continue
		}
		if it.CurrentQty <= 0 {
			return it.CurrentQty, it.CurrentQty, recon.ErrItemDepleted
		}
		before := it.CurrentQty
		it.CurrentQty--
		f.scanned[scannedName] = true
		f.applied = append(f.applied, itemName+"|"+scannedName+"|"+location)
		return before, it.CurrentQty, nil
	}
	return 0, 0, recon.ErrItemNotFound
}

func newService(ledger Ledger) *Service {
	return &Service{Repo: ledger, Matcher: recon.NewMatcher(), ServiceName: "test"}
}

func TestProcessMissingFields(t *testing.T) {
	svc := newService(newFakeLedger(nil))
	ctx := context.Background()

	if _, err := svc.Process(ctx, Request{ScannedName: "x"}, ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := svc.Process(ctx, Request{JobName: "job-1"}, ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestProcessUnknownJob(t *testing.T) {
	svc := newService(newFakeLedger(nil))
	_, err := svc.Process(context.Background(), Request{JobName: "nope", ScannedName: "x"}, "")
	if !errors.Is(err, recon.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestProcessAppliedViaPrefix(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5, "HF-Trans": 2})
	svc := newService(ledger)

	res, err := svc.Process(context.Background(), Request{
		JobName: "job-1", ScannedName: "HF-Blue-998877", Location: "Dock 3",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != recon.OutcomeApplied {
		t.Fatalf("status = %q, want applied (reason %q)", res.Status, res.Reason)
	}
	if res.Item != "HF-Blue" || res.Remaining != 4 {
		t.Errorf("got item=%q remaining=%d, want HF-Blue remaining 4", res.Item, res.Remaining)
	}
	if len(ledger.applied) != 1 || ledger.applied[0] != "HF-Blue|HF-Blue-998877|Dock 3" {
		t.Errorf("audit record wrong: %v", ledger.applied)
	}
}

func TestProcessDuplicateScan(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	svc := newService(ledger)
	ctx := context.Background()
	req := Request{JobName: "job-1", ScannedName: "HF-Blue-998877"}

	res, err := svc.Process(ctx, req, "")
	if err != nil || res.Status != recon.OutcomeApplied {
		t.Fatalf("first scan: %v / %+v", err, res)
	}

	res, err = svc.Process(ctx, req, "")
	if err != nil {
		t.Fatalf("second scan errored: %v", err)
	}
	if res.Status != recon.OutcomeRejected || res.Reason != recon.ReasonDuplicateScan {
		t.Fatalf("second scan = %+v, want duplicate rejection", res)
	}
	// Quantity must not have moved a second time.
	if ledger.job.Items[0].CurrentQty != 4 {
		t.Errorf("qty = %d, want 4", ledger.job.Items[0].CurrentQty)
	}
}

func TestProcessNoMatch(t *testing.T) {
	svc := newService(newFakeLedger(map[string]int{"HF-Blue": 5}))
	res, err := svc.Process(context.Background(), Request{JobName: "job-1", ScannedName: "zzz"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != recon.OutcomeRejected || res.Reason != recon.ReasonNoMatch {
		t.Fatalf("got %+v, want no-match rejection", res)
	}
}

func TestProcessDepleted(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 0})
	svc := newService(ledger)
	res, err := svc.Process(context.Background(), Request{JobName: "job-1", ScannedName: "HF-Blue-111"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != recon.OutcomeRejected || res.Reason != recon.ReasonDepleted {
		t.Fatalf("got %+v, want depleted rejection", res)
	}
	if len(ledger.applied) != 0 {
		t.Errorf("depleted scan must not write an audit record: %v", ledger.applied)
	}
}

func TestProcessNeverNegative(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 2})
	svc := newService(ledger)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		label := "HF-Blue-" + string(rune('1'+i)) + "00"
		_, err := svc.Process(ctx, Request{JobName: "job-1", ScannedName: label}, "")
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
	if qty := ledger.job.Items[0].CurrentQty; qty != 0 {
		t.Errorf("qty = %d, want 0 and never negative", qty)
	}
}
