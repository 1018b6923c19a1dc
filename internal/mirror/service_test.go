package mirror

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkax "github.com/eargasm/sortly-recon/internal/kafka"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/sortly"
	kafkago "github.com/segmentio/kafka-go"
)

type fakeInventory struct {
	searchResults []sortly.Item
	searched      []string
	updates       map[int64]int
}

func (f *fakeInventory) SearchItemsByName(_ context.Context, name string) ([]sortly.Item, error) {
	f.searched = append(f.searched, name)
	return f.searchResults, nil
}

func (f *fakeInventory) UpdateItemQuantity(_ context.Context, id int64, qty int) error {
	if f.updates == nil {
		f.updates = map[int64]int{}
	}
	f.updates[id] = qty
	return nil
}

func deductionMessage(t *testing.T, p recon.DeductionAppliedPayload) kafkago.Message {
	t.Helper()
	env := recon.Envelope{
		EventID:      "evt-1",
		EventType:    recon.EventDeductionApplied,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(p),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleDeductionWithKnownID(t *testing.T) {
	inv := &fakeInventory{}
	svc := &Service{Sortly: inv, ServiceName: "test"}

	msg := deductionMessage(t, recon.DeductionAppliedPayload{
		JobID: 1, JobName: "job-1", Item: "HF-Blue", SortlyID: 42, After: 3,
	})
	if err := svc.HandleDeduction(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeduction: %v", err)
	}
	if inv.updates[42] != 3 {
		t.Errorf("updates = %v, want item 42 set to 3", inv.updates)
	}
	if len(inv.searched) != 0 {
		t.Errorf("known id must not trigger a search: %v", inv.searched)
	}
}

func TestHandleDeductionResolvesByName(t *testing.T) {
	inv := &fakeInventory{searchResults: []sortly.Item{
		{ID: 50, Name: "HF-Blue", Type: "folder"},
		{ID: 51, Name: "HF-Blue", Type: "item"},
	}}
	svc := &Service{Sortly: inv, ServiceName: "test"}

	msg := deductionMessage(t, recon.DeductionAppliedPayload{
		JobID: 1, JobName: "job-1", Item: "HF-Blue", After: 2,
	})
	if err := svc.HandleDeduction(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeduction: %v", err)
	}
	if inv.updates[51] != 2 {
		t.Errorf("updates = %v, want first non-folder hit (51) set to 2", inv.updates)
	}
}

func TestHandleDeductionNoMatchSkips(t *testing.T) {
	inv := &fakeInventory{}
	svc := &Service{Sortly: inv, ServiceName: "test"}

	msg := deductionMessage(t, recon.DeductionAppliedPayload{Item: "Unknown", After: 1})
	if err := svc.HandleDeduction(context.Background(), msg); err != nil {
		t.Fatalf("no match must not error: %v", err)
	}
	if len(inv.updates) != 0 {
		t.Errorf("nothing should be written: %v", inv.updates)
	}
}

func TestHandleDeductionIgnoresOtherEventTypes(t *testing.T) {
	inv := &fakeInventory{}
	svc := &Service{Sortly: inv, ServiceName: "test"}

	env := recon.Envelope{EventID: "evt-2", EventType: recon.EventScanApplied}
	raw, _ := json.Marshal(env)
	if err := svc.HandleDeduction(context.Background(), kafkago.Message{Value: raw}); err != nil {
		t.Fatalf("foreign event type must not error: %v", err)
	}
	if len(inv.updates) != 0 || len(inv.searched) != 0 {
		t.Error("foreign event type must be a no-op")
	}
}

func TestHandleDeductionBadPayload(t *testing.T) {
	svc := &Service{Sortly: &fakeInventory{}, ServiceName: "test"}
	err := svc.HandleDeduction(context.Background(), kafkago.Message{Value: []byte("not json")})
	if err == nil {
		t.Fatal("malformed message must surface an error")
	}
}
