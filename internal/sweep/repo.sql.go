package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countwise/countwise/internal/count"
)

// Repository provides the sweep's read-only scans over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListOverdueRequests(ctx context.Context, now time.Time) ([]count.InventoryRequest, error) {
	if r == nil {
		return nil, errors.New("sweep repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+count.RequestColumns+`
FROM count_requests
WHERE status NOT IN ($1, $2) AND due_at IS NOT NULL AND due_at < $3
ORDER BY due_at ASC`,
		string(count.RequestStatusCompleted), string(count.RequestStatusCancelled), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []count.InventoryRequest
	for rows.Next() {
		req, err := count.ScanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *Repository) ListStaleAssignedItems(ctx context.Context, cutoff time.Time) ([]count.CountItem, error) {
	if r == nil {
		return nil, errors.New("sweep repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, request_id, center_id, item_code, assigned_to, status, updated_at, last_reminded_at
FROM count_items
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at ASC`,
		string(count.ItemStatusAssigned), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []count.CountItem
	for rows.Next() {
		var item count.CountItem
		var status string
		var assignedTo *int64
		var reminded *time.Time
		if err := rows.Scan(&item.ID, &item.RequestID, &item.CenterID, &item.ItemCode, &assignedTo, &status, &item.UpdatedAt, &reminded); err != nil {
			return nil, err
		}
		item.Status = count.ItemStatus(status)
		if assignedTo != nil {
			item.AssignedTo = *assignedTo
		}
		if reminded != nil {
			item.LastRemindedAt = *reminded
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) MarkItemReminded(ctx context.Context, itemID int64, at time.Time) error {
	if r == nil {
		return errors.New("sweep repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `UPDATE count_items SET last_reminded_at=$1 WHERE id=$2`, at, itemID)
	return err
}
