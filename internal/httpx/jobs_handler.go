package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type JobsHandler struct {
	Repo  *recon.Repo
	Redis *redis.Client
}

type CreateJobReq struct {
	Name  string            `json:"name"`
	Items []recon.ItemInput `json:"items"`
}

type UpdateItemReq struct {
	Name  string `json:"name"`
	Count *int   `json:"count"`
}

type UpdateItemsReq struct {
	Items []recon.ItemUpdate `json:"items"`
}

type jobView struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Items []jobItemView `json:"items"`
}

type jobItemView struct {
	Name       string `json:"name"`
	CurrentQty int    `json:"current_qty"`
}

func (h *JobsHandler) Register(r *chi.Mux) {
	r.Post("/job", h.createJob)
	r.Get("/job/list/all", h.listJobs)
	r.Get("/job/{id}", h.getJob)
	r.Put("/job/{id}/item", h.updateItem)
	r.Put("/job/{id}/update-items", h.updateItems)
	r.Get("/job/{id}/scans", h.listScans)
	// Job names may contain slashes; the wildcard keeps them addressable.
	r.Delete("/job/*", h.deleteJob)
}

func toView(j *recon.Job) jobView {
	v := jobView{ID: j.ID, Name: j.Name, Items: []jobItemView{}}
	for _, it := range j.Items {
		v.Items = append(v.Items, jobItemView{Name: it.Name, CurrentQty: it.CurrentQty})
	}
	return v
}

func (h *JobsHandler) createJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing job name")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job, err := h.Repo.CreateJob(ctx, req.Name, req.Items)
	if errors.Is(err, recon.ErrJobExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id": job.ID, "name": job.Name, "item_count": len(job.Items),
	})
}

func (h *JobsHandler) listJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	jobs, err := h.Repo.ListJobs(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]jobView, 0, len(jobs))
	for i := range jobs {
		out = append(out, toView(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *JobsHandler) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyJobView, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	job, err := h.Repo.GetJobByID(ctx, id)
	if errors.Is(err, recon.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	view := toView(job)
	if h.Redis != nil {
		if b, err := json.Marshal(view); err == nil {
			_ = h.Redis.Set(ctx, key, b, redisx.TTLJobView).Err()
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *JobsHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	var req UpdateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing item name")
		return
	}
	if req.Count == nil {
		writeError(w, http.StatusBadRequest, "missing count")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Repo.GetJobByID(ctx, id); errors.Is(err, recon.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = h.Repo.UpdateItemQty(ctx, id, req.Name, *req.Count)
	if errors.Is(err, recon.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("item %q not found in job", req.Name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidateView(ctx, id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Item %q updated to %d.", req.Name, *req.Count),
	})
}

func (h *JobsHandler) updateItems(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	var req UpdateItemsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid items payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job, err := h.Repo.UpsertItems(ctx, id, req.Items)
	if errors.Is(err, recon.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidateView(ctx, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Job %s updated successfully", job.Name),
		"items":   toView(job).Items,
	})
}

func (h *JobsHandler) deleteJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing job name")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	job, err := h.Repo.GetJobByName(ctx, name)
	if errors.Is(err, recon.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %q not found", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Repo.DeleteJob(ctx, name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidateView(ctx, job.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Deleted job %q", name),
	})
}

func (h *JobsHandler) listScans(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.Repo.GetJobByID(ctx, id); errors.Is(err, recon.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scans, err := h.Repo.ListScans(ctx, id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type scanView struct {
		ID          int64     `json:"id"`
		ItemName    string    `json:"item_name"`
		ScannedName string    `json:"scanned_name"`
		Location    string    `json:"location,omitempty"`
		ScannedAt   time.Time `json:"scanned_at"`
	}
	out := make([]scanView, 0, len(scans))
	for _, s := range scans {
		out = append(out, scanView{
			ID: s.ID, ItemName: s.ItemName, ScannedName: s.ScannedName,
			Location: s.Location, ScannedAt: s.ScannedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *JobsHandler) invalidateView(ctx context.Context, jobID int64) {
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyJobView, jobID)).Err()
	}
}
