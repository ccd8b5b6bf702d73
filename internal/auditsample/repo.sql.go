package auditsample

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/shared"
)

// Repository persists audit samples in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListApprovedItemIDs(ctx context.Context, requestID int64) ([]int64, error) {
	if r == nil {
		return nil, errors.New("auditsample repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM count_items WHERE request_id=$1 AND status=$2 ORDER BY id ASC`,
		requestID, string(count.ItemStatusApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) InsertSample(ctx context.Context, sample StoredSample) (int64, error) {
	if r == nil {
		return 0, errors.New("auditsample repository not initialised")
	}
	params, err := json.Marshal(sample.Params)
	if err != nil {
		return 0, err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `INSERT INTO audit_samples (request_id, method, params, created_by, created_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		sample.RequestID, string(sample.Method), params, sample.CreatedBy, sample.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, itemID := range sample.ItemIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO audit_sample_items (sample_id, item_id) VALUES ($1, $2)`, id, itemID); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) GetSample(ctx context.Context, id int64) (StoredSample, error) {
	if r == nil {
		return StoredSample{}, errors.New("auditsample repository not initialised")
	}
	var sample StoredSample
	var method string
	var params []byte
	err := r.pool.QueryRow(ctx, `SELECT id, request_id, method, params, created_by, created_at
FROM audit_samples WHERE id=$1`, id).
		Scan(&sample.ID, &sample.RequestID, &method, &params, &sample.CreatedBy, &sample.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredSample{}, &shared.NotFoundError{Entity: "audit_sample", ID: id}
		}
		return StoredSample{}, err
	}
	sample.Method = Method(method)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &sample.Params); err != nil {
			return StoredSample{}, err
		}
	}
	rows, err := r.pool.Query(ctx, `SELECT item_id FROM audit_sample_items WHERE sample_id=$1 ORDER BY item_id ASC`, id)
	if err != nil {
		return StoredSample{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var itemID int64
		if err := rows.Scan(&itemID); err != nil {
			return StoredSample{}, err
		}
		sample.ItemIDs = append(sample.ItemIDs, itemID)
	}
	return sample, rows.Err()
}

func (r *Repository) ListSamples(ctx context.Context, requestID int64) ([]StoredSample, error) {
	if r == nil {
		return nil, errors.New("auditsample repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, request_id, method, params, created_by, created_at
FROM audit_samples WHERE request_id=$1 ORDER BY created_at DESC, id DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var samples []StoredSample
	for rows.Next() {
		var sample StoredSample
		var method string
		var params []byte
		if err := rows.Scan(&sample.ID, &sample.RequestID, &method, &params, &sample.CreatedBy, &sample.CreatedAt); err != nil {
			return nil, err
		}
		sample.Method = Method(method)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &sample.Params); err != nil {
				return nil, err
			}
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
