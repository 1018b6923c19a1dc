// Package mirror writes local deductions back to Sortly so both
// systems count down together. It consumes the deduction topic;
// delivery is at-least-once, so events are deduped by id first.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafkax "github.com/eargasm/sortly-recon/internal/kafka"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/redisx"
	"github.com/eargasm/sortly-recon/internal/sortly"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Inventory is what the mirror needs from the Sortly client.
type Inventory interface {
	SearchItemsByName(ctx context.Context, name string) ([]sortly.Item, error)
	UpdateItemQuantity(ctx context.Context, id int64, qty int) error
}

var _ Inventory = (*sortly.Client)(nil)

type Service struct {
	Sortly      Inventory
	Redis       *redis.Client
	ServiceName string
}

// HandleDeduction is mounted as the consumer handler for the
// deduction topic.
func (s *Service) HandleDeduction(ctx context.Context, m kafkago.Message) error {
	var env recon.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != recon.EventDeductionApplied {
		return nil
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "mirror", env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[recon.DeductionAppliedPayload](env.Payload)
	if err != nil {
		return err
	}

	id := p.SortlyID
	if id == 0 {
		items, err := s.Sortly.SearchItemsByName(ctx, p.Item)
		if err != nil {
			return err
		}
		for _, it := range items {
			if !it.IsFolder() {
				id = it.ID
				break
			}
		}
	}
	if id == 0 {
		log.Printf("mirror: no sortly item for %q, skipping", p.Item)
		return nil
	}
	if err := s.Sortly.UpdateItemQuantity(ctx, id, p.After); err != nil {
		return err
	}
	log.Printf("mirror: sortly item %d set to %d (job %s / %s)", id, p.After, p.JobName, p.Item)
	return nil
}
