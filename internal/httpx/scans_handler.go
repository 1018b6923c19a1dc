package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/scan"
	"github.com/go-chi/chi/v5"
)

type ScansHandler struct {
	Svc *scan.Service
}

func (h *ScansHandler) Register(r *chi.Mux) {
	r.Post("/scan", h.handleScan)
}

func (h *ScansHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Process(ctx, req, r.Header.Get("X-Request-Id"))
	switch {
	case errors.Is(err, scan.ErrMissingFields):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, recon.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Business rejections are valid requests with a negative outcome;
	// the status code separates them from malformed input.
	code := http.StatusOK
	if res.Status == recon.OutcomeRejected {
		switch res.Reason {
		case recon.ReasonNoMatch:
			code = http.StatusUnprocessableEntity
		default:
			code = http.StatusConflict
		}
	}
	writeJSON(w, code, res)
}
