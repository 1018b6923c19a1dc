package pullsync

import (
	"context"
	"testing"
	"time"

	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/sortly"
)

type fakeLedger struct {
	job       *recon.Job
	states    map[int64]recon.ExternalItemState
	latest    time.Time
	hasLatest bool
	deducted  []string
}

func newFakeLedger(items map[string]int) *fakeLedger {
	job := &recon.Job{ID: 7, Name: "job-7"}
	for name, qty := range items {
		job.Items = append(job.Items, recon.JobItem{JobID: 7, Name: name, CurrentQty: qty})
	}
	return &fakeLedger{job: job, states: map[int64]recon.ExternalItemState{}}
}

func (f *fakeLedger) GetJobByID(_ context.Context, id int64) (*recon.Job, error) {
	if id != f.job.ID {
		return nil, recon.ErrJobNotFound
	}
	return f.job, nil
}

func (f *fakeLedger) ApplyMovement(_ context.Context, jobID int64, itemName string, amount int, scannedName, location string) (int, int, error) {
	for i := range f.job.Items {
		it := &f.job.Items[i]
		if it.Name != itemName {
			continue
		}
		before := it.CurrentQty
		after := before - amount
		if after < 0 {
			after = 0
		}
		it.CurrentQty = after
		if before > after {
			f.deducted = append(f.deducted, itemName)
		}
		return before, after, nil
	}
	return 0, 0, recon.ErrItemNotFound
}

func (f *fakeLedger) GetExternalState(_ context.Context, sortlyID int64) (*recon.ExternalItemState, error) {
	if st, ok := f.states[sortlyID]; ok {
		cp := st
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeLedger) UpsertExternalState(_ context.Context, sortlyID int64, name, location string, seenAt time.Time) error {
	f.states[sortlyID] = recon.ExternalItemState{
		SortlyID: sortlyID, Name: name, LastLocation: location, LastSeen: seenAt,
	}
	return nil
}

func (f *fakeLedger) LatestExternalSeen(_ context.Context) (time.Time, bool, error) {
	return f.latest, f.hasLatest, nil
}

type fakeInventory struct {
	items []sortly.Item
	since time.Time
}

func (f *fakeInventory) ListItems(_ context.Context, updatedSince time.Time, _ int) ([]sortly.Item, error) {
	f.since = updatedSince
	return f.items, nil
}

func loc(name string) *sortly.NodeRef { return &sortly.NodeRef{Name: name} }

func newService(ledger *fakeLedger, inv *fakeInventory) *Service {
	return &Service{
		Repo:    ledger,
		Sortly:  inv,
		Matcher: recon.NewMatcher(),
		Zones:   recon.NewZones([]string{"Warehouse"}),
	}
}

func TestSyncDeductsOnZoneExit(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	ledger.states[11] = recon.ExternalItemState{SortlyID: 11, Name: "HF-Blue-123456", LastLocation: "Warehouse"}
	inv := &fakeInventory{items: []sortly.Item{
		{ID: 11, Name: "HF-Blue-123456", Type: "item", Location: loc("Shelf A")},
	}}
	svc := newService(ledger, inv)

	report, err := svc.Sync(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Matched) != 1 || report.Matched[0].Name != "HF-Blue" || report.Matched[0].NewQty != 4 {
		t.Fatalf("matched = %+v, want HF-Blue at 4", report.Matched)
	}
	if st := ledger.states[11]; st.LastLocation != "Shelf A" {
		t.Errorf("cache not refreshed: %+v", st)
	}
}

func TestSyncSkipsFolders(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	inv := &fakeInventory{items: []sortly.Item{
		{ID: 20, Name: "Aisle 4", Type: "folder", Location: loc("Warehouse")},
	}}
	svc := newService(ledger, inv)

	report, err := svc.Sync(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "Aisle 4" {
		t.Errorf("skipped = %v, want [Aisle 4]", report.Skipped)
	}
	if _, ok := ledger.states[20]; ok {
		t.Error("folders must not enter the location cache")
	}
}

func TestSyncFirstSightingOnlyCaches(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	inv := &fakeInventory{items: []sortly.Item{
		{ID: 11, Name: "HF-Blue-123456", Type: "item", Location: loc("Shelf A")},
	}}
	svc := newService(ledger, inv)

	report, err := svc.Sync(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Matched) != 0 {
		t.Errorf("first sighting must not deduct: %+v", report.Matched)
	}
	if st, ok := ledger.states[11]; !ok || st.LastLocation != "Shelf A" {
		t.Errorf("cache not seeded: %+v", st)
	}
}

func TestSyncStillInZoneNoDeduction(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	ledger.states[11] = recon.ExternalItemState{SortlyID: 11, Name: "HF-Blue-123456", LastLocation: "Warehouse"}
	inv := &fakeInventory{items: []sortly.Item{
		{ID: 11, Name: "HF-Blue-123456", Type: "item", Location: loc("Warehouse")},
	}}
	svc := newService(ledger, inv)

	report, err := svc.Sync(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Matched) != 0 || len(ledger.deducted) != 0 {
		t.Errorf("in-zone item deducted: %+v / %v", report.Matched, ledger.deducted)
	}
}

func TestSyncMissingLocationNoDeduction(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	ledger.states[11] = recon.ExternalItemState{SortlyID: 11, Name: "HF-Blue-123456", LastLocation: "Warehouse"}
	inv := &fakeInventory{items: []sortly.Item{
		{ID: 11, Name: "HF-Blue-123456", Type: "item"}, // no location reported
	}}
	svc := newService(ledger, inv)

	report, err := svc.Sync(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Matched) != 0 {
		t.Errorf("deduction on missing location: %+v", report.Matched)
	}
}

func TestSyncWatermark(t *testing.T) {
	ledger := newFakeLedger(map[string]int{"HF-Blue": 5})
	inv := &fakeInventory{}
	svc := newService(ledger, inv)
	ctx := context.Background()

	// No cache yet: look back a full day.
	if _, err := svc.Sync(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if age := time.Since(inv.since); age < 23*time.Hour || age > 25*time.Hour {
		t.Errorf("cold watermark age = %v, want ~24h", age)
	}

	// With a cached sighting: latest minus the ten-minute overlap.
	ledger.latest = time.Now().UTC().Add(-time.Hour)
	ledger.hasLatest = true
	if _, err := svc.Sync(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ledger.latest.Add(-10 * time.Minute)
	if !inv.since.Equal(want) {
		t.Errorf("warm watermark = %v, want %v", inv.since, want)
	}
}
