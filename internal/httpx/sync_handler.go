package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/eargasm/sortly-recon/internal/pullsync"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/sortly"
	"github.com/go-chi/chi/v5"
)

type SyncHandler struct {
	Svc    *pullsync.Service
	Sortly *sortly.Client
}

func (h *SyncHandler) Register(r *chi.Mux) {
	r.Get("/sortly/sync/{job_id}", h.sync)
	r.Get("/sortly/locations", h.locations)
}

func (h *SyncHandler) sync(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "job_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	// Paging through Sortly can take a while; the router's 15s timeout
	// is the only deadline, no tighter one on top.
	report, err := h.Svc.Sync(r.Context(), jobID)
	var apiErr *sortly.APIError
	switch {
	case errors.Is(err, recon.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, apiErr.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *SyncHandler) locations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	raw, err := h.Sortly.ListLocations(ctx)
	var apiErr *sortly.APIError
	switch {
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, apiErr.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, raw)
}
