package capture

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/platform/db"
	"github.com/countwise/countwise/internal/shared"
)

// Repository persists count capture mutations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("capture repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

const itemColumns = `id, request_id, center_id, item_code, description, division_code, category_code, group_code, unit,
system_qty, physical_qty, difference, adjustment_type, counter_comment, manager_comment, assigned_to, status,
due_at, created_at, updated_at`

func scanItem(row pgx.Row) (count.CountItem, error) {
	var item count.CountItem
	var status, adjustment string
	var assignedTo *int64
	err := row.Scan(&item.ID, &item.RequestID, &item.CenterID, &item.ItemCode, &item.Description,
		&item.DivisionCode, &item.CategoryCode, &item.GroupCode, &item.Unit,
		&item.SystemQty, &item.PhysicalQty, &item.Difference, &adjustment,
		&item.CounterComment, &item.ManagerComment, &assignedTo, &status,
		&item.DueAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return count.CountItem{}, err
	}
	item.Status = count.ItemStatus(status)
	item.AdjustmentType = count.AdjustmentType(adjustment)
	if assignedTo != nil {
		item.AssignedTo = *assignedTo
	}
	return item, nil
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (count.CountItem, error) {
	item, err := scanItem(r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM count_items WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return count.CountItem{}, &shared.NotFoundError{Entity: "item", ID: id}
		}
		return count.CountItem{}, err
	}
	return item, nil
}

// GetItemsForUpdate locks the batch in a stable order to avoid deadlocks
// between concurrent submissions.
func (r *txRepository) GetItemsForUpdate(ctx context.Context, ids []int64) ([]count.CountItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+itemColumns+` FROM count_items WHERE id = ANY($1) ORDER BY id ASC FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []count.CountItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *txRepository) GetRequestStatus(ctx context.Context, requestID int64) (count.RequestStatus, error) {
	var status string
	err := r.tx.QueryRow(ctx, `SELECT status FROM count_requests WHERE id=$1`, requestID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &shared.NotFoundError{Entity: "request", ID: requestID}
		}
		return "", err
	}
	return count.RequestStatus(status), nil
}

// UpdateItemCount stores the recorded count and derived fields; the status
// predicate is the compare-and-swap guard.
func (r *txRepository) UpdateItemCount(ctx context.Context, item count.CountItem, from count.ItemStatus) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE count_items
SET physical_qty=$1, difference=$2, adjustment_type=$3, counter_comment=$4, status=$5, updated_at=NOW()
WHERE id=$6 AND status=$7`,
		item.PhysicalQty, item.Difference, string(item.AdjustmentType), item.CounterComment,
		string(count.ItemStatusCounted), item.ID, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateItemsStatus advances every listed item from one status to another
// and reports how many rows moved.
func (r *txRepository) UpdateItemsStatus(ctx context.Context, ids []int64, from, to count.ItemStatus) (int, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE count_items SET status=$1, updated_at=NOW()
WHERE id = ANY($2) AND status=$3`, string(to), ids, string(from))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
