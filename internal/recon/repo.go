package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemInput struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ItemUpdate carries a bulk-update row. A nil CurrentQty means "leave
// the existing quantity alone" (append with 0 if the item is new).
type ItemUpdate struct {
	Name       string `json:"name"`
	CurrentQty *int   `json:"current_qty"`
}

type Repo struct{ DB *pgxpool.Pool }

var (
	ErrJobExists     = errors.New("job already exists")
	ErrJobNotFound   = errors.New("job not found")
	ErrItemNotFound  = errors.New("item not found in job")
	ErrItemDepleted  = errors.New("item already depleted")
	ErrDuplicateScan = errors.New("barcode already scanned for this job")
)

// CreateJob inserts a job with its initial item catalog in one tx.
// Item names are unique within a job (enforced by the schema).
func (r *Repo) CreateJob(ctx context.Context, name string, items []ItemInput) (*Job, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var job Job
	err = tx.QueryRow(ctx, `
		INSERT INTO jobs(name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at
	`, name).Scan(&job.ID, &job.Name, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobExists
	}
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		var item JobItem
		err := tx.QueryRow(ctx, `
			INSERT INTO job_items(job_id, name, current_qty)
			VALUES ($1, $2, $3)
			RETURNING id, job_id, name, current_qty
		`, job.ID, it.Name, it.Count).Scan(&item.ID, &item.JobID, &item.Name, &item.CurrentQty)
		if err != nil {
			return nil, fmt.Errorf("insert item %q: %w", it.Name, err)
		}
		job.Items = append(job.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Repo) GetJobByID(ctx context.Context, id int64) (*Job, error) {
	return r.getJob(ctx, `WHERE id = $1`, id)
}

func (r *Repo) GetJobByName(ctx context.Context, name string) (*Job, error) {
	return r.getJob(ctx, `WHERE name = $1`, name)
}

func (r *Repo) getJob(ctx context.Context, where string, arg any) (*Job, error) {
	var job Job
	err := r.DB.QueryRow(ctx, `SELECT id, name, created_at FROM jobs `+where, arg).
		Scan(&job.ID, &job.Name, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Repo) loadItems(ctx context.Context, job *Job) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, job_id, name, current_qty FROM job_items
		WHERE job_id = $1 ORDER BY id
	`, job.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it JobItem
		if err := rows.Scan(&it.ID, &it.JobID, &it.Name, &it.CurrentQty); err != nil {
			return err
		}
		job.Items = append(job.Items, it)
	}
	return rows.Err()
}

// ListJobs returns every job with its items, oldest first.
func (r *Repo) ListJobs(ctx context.Context) ([]Job, error) {
	return r.listJobs(ctx, `ORDER BY j.created_at, j.id`)
}

// JobsNewestFirst is what the boundary detector walks: the most
// recently created job is the most likely target for a deduction.
func (r *Repo) JobsNewestFirst(ctx context.Context) ([]Job, error) {
	return r.listJobs(ctx, `ORDER BY j.created_at DESC, j.id DESC`)
}

func (r *Repo) listJobs(ctx context.Context, order string) ([]Job, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT j.id, j.name, j.created_at, i.id, i.name, i.current_qty
		FROM jobs j
		LEFT JOIN job_items i ON i.job_id = j.id
		`+order+`, i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	index := map[int64]int{}
	for rows.Next() {
		var (
			jobID     int64
			jobName   string
			createdAt time.Time
			itemID    *int64
			itemName  *string
			itemQty   *int
		)
		if err := rows.Scan(&jobID, &jobName, &createdAt, &itemID, &itemName, &itemQty); err != nil {
			return nil, err
		}
		pos, ok := index[jobID]
		if !ok {
			out = append(out, Job{ID: jobID, Name: jobName, CreatedAt: createdAt})
			pos = len(out) - 1
			index[jobID] = pos
		}
		if itemID != nil {
			out[pos].Items = append(out[pos].Items, JobItem{
				ID: *itemID, JobID: jobID, Name: *itemName, CurrentQty: *itemQty,
			})
		}
	}
	return out, rows.Err()
}

// UpdateItemQty sets one item's quantity outright.
func (r *Repo) UpdateItemQty(ctx context.Context, jobID int64, name string, qty int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE job_items SET current_qty = $3
		WHERE job_id = $1 AND name = $2
	`, jobID, name, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UpsertItems reconciles a job's catalog against an incoming list:
// known names get the new quantity (when one was given), unknown names
// are appended, names missing from the list are left untouched. There
// is no implicit deletion.
func (r *Repo) UpsertItems(ctx context.Context, jobID int64, incoming []ItemUpdate) (*Job, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrJobNotFound
	}

	for _, it := range incoming {
		if it.Name == "" {
			continue
		}
		if it.CurrentQty != nil {
			ct, err := tx.Exec(ctx, `
				UPDATE job_items SET current_qty = $3
				WHERE job_id = $1 AND name = $2
			`, jobID, it.Name, *it.CurrentQty)
			if err != nil {
				return nil, err
			}
			if ct.RowsAffected() == 1 {
				continue
			}
		} else {
			var have bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS(SELECT 1 FROM job_items WHERE job_id = $1 AND name = $2)
			`, jobID, it.Name).Scan(&have); err != nil {
				return nil, err
			}
			if have {
				continue
			}
		}
		qty := 0
		if it.CurrentQty != nil {
			qty = *it.CurrentQty
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO job_items(job_id, name, current_qty) VALUES ($1, $2, $3)
		`, jobID, it.Name, qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetJobByID(ctx, jobID)
}

func (r *Repo) DeleteJob(ctx context.Context, name string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM jobs WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// HasScan reports whether this raw label was already scanned in this
// job — the duplicate-scan guard.
func (r *Repo) HasScan(ctx context.Context, jobID int64, scannedName string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM scans WHERE job_id = $1 AND scanned_name = $2)
	`, jobID, scannedName).Scan(&exists)
	return exists, err
}

// ApplyScan decrements the matched item by one and appends the scan
// record in a single tx. The item row is locked for the duration so
// concurrent scans cannot race the quantity below zero. A depleted
// item rejects before anything is written.
func (r *Repo) ApplyScan(ctx context.Context, jobID int64, itemName, scannedName, location string) (before, after int, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		SELECT current_qty FROM job_items
		WHERE job_id = $1 AND name = $2 FOR UPDATE
	`, jobID, itemName).Scan(&before)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrItemNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	if before <= 0 {
		return before, before, ErrItemDepleted
	}

	after = before - 1
	if _, err := tx.Exec(ctx, `
		UPDATE job_items SET current_qty = $3 WHERE job_id = $1 AND name = $2
	`, jobID, itemName, after); err != nil {
		return 0, 0, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO scans(job_id, item_name, scanned_name, location)
		VALUES ($1, $2, $3, $4)
	`, jobID, itemName, scannedName, location); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}

// ApplyMovement decrements by amount, clamped at zero, and appends an
// audit scan record. Movement deductions never reject on depletion;
// the clamp is deliberate and covered by tests.
func (r *Repo) ApplyMovement(ctx context.Context, jobID int64, itemName string, amount int, scannedName, location string) (before, after int, err error) {
	if amount < 1 {
		amount = 1
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		SELECT current_qty FROM job_items
		WHERE job_id = $1 AND name = $2 FOR UPDATE
	`, jobID, itemName).Scan(&before)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrItemNotFound
	}
	if err != nil {
		return 0, 0, err
	}

	after = before - amount
	if after < 0 {
		after = 0
	}
	if _, err := tx.Exec(ctx, `
		UPDATE job_items SET current_qty = $3 WHERE job_id = $1 AND name = $2
	`, jobID, itemName, after); err != nil {
		return 0, 0, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO scans(job_id, item_name, scanned_name, location)
		VALUES ($1, $2, $3, $4)
	`, jobID, itemName, scannedName, location); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}

// ListScans returns the most recent scans for a job, newest first.
func (r *Repo) ListScans(ctx context.Context, jobID int64, limit int) ([]ScanRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, job_id, COALESCE(item_name, ''), scanned_name, COALESCE(location, ''), scanned_at
		FROM scans WHERE job_id = $1
		ORDER BY id DESC LIMIT $2
	`, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var s ScanRecord
		if err := rows.Scan(&s.ID, &s.JobID, &s.ItemName, &s.ScannedName, &s.Location, &s.ScannedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
