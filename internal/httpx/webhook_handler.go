package httpx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/eargasm/sortly-recon/internal/movement"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives Sortly movement notifications. The source
// does not guarantee exactly-once delivery and carries no stable event
// id, so replays are deduped on a hash of the raw body. A malformed
// payload is reported as an error outcome, never propagated.
type WebhookHandler struct {
	Svc   *movement.Service
	Redis *redis.Client
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/sortly/webhook", h.handleWebhook)
}

type sortlyWebhook struct {
	Type string `json:"type"`
	Time string `json:"time"`
	Body struct {
		Verb           string          `json:"verb"`
		NodeID         int64           `json:"node_id"`
		NodeType       string          `json:"node_type"`
		NodeName       string          `json:"node_name"`
		OldParentName  string          `json:"old_parent_name"`
		NodeParentName string          `json:"node_parent_name"`
		MovedQuantity  json.RawMessage `json:"moved_quantity"`
	} `json:"body"`
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "read body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.Redis != nil {
		sum := sha256.Sum256(raw)
		dkey := fmt.Sprintf(redisx.KeyWebhookDedup, hex.EncodeToString(sum[:]))
		if exists, _ := redisx.Exists(ctx, h.Redis, dkey); exists {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": string(recon.OutcomeIgnored), "reason": recon.ReasonDuplicateEvent,
			})
			return
		}
		_ = h.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	var payload sortlyWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("webhook: bad payload: %v", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "invalid payload"})
		return
	}

	ev := recon.MovementEvent{
		SortlyID:    payload.Body.NodeID,
		Name:        payload.Body.NodeName,
		OldLocation: payload.Body.OldParentName,
		NewLocation: payload.Body.NodeParentName,
		MovedQty:    parseQuantity(payload.Body.MovedQuantity),
		Verb:        payload.Body.Verb,
		NodeType:    payload.Body.NodeType,
		OccurredAt:  parseEventTime(payload.Time),
	}

	res, err := h.Svc.Process(ctx, ev, r.Header.Get("X-Request-Id"))
	if err != nil {
		log.Printf("webhook: %v", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseQuantity tolerates a number, a numeric string, or nothing at
// all; anything else counts as absent.
func parseQuantity(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func parseEventTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now().UTC()
}
