package review

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/platform/db"
	"github.com/countwise/countwise/internal/shared"
)

// Repository persists review decisions in PostgreSQL.
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
		return errors.New("review repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (count.CountItem, error) {
	var item count.CountItem
	var status, adjustment string
	var assignedTo *int64
	err := r.tx.QueryRow(ctx, `SELECT id, request_id, center_id, item_code, system_qty, physical_qty, difference,
adjustment_type, counter_comment, manager_comment, assigned_to, status
FROM count_items WHERE id=$1 FOR UPDATE`, id).
		Scan(&item.ID, &item.RequestID, &item.CenterID, &item.ItemCode, &item.SystemQty, &item.PhysicalQty,
			&item.Difference, &adjustment, &item.CounterComment, &item.ManagerComment, &assignedTo, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return count.CountItem{}, &shared.NotFoundError{Entity: "item", ID: id}
		}
		return count.CountItem{}, err
	}
	item.Status = count.ItemStatus(status)
	item.AdjustmentType = count.AdjustmentType(adjustment)
	if assignedTo != nil {
		item.AssignedTo = *assignedTo
	}
	return item, nil
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

// UpdateItemDecision moves one item out of REVIEWING; the status predicate
// is the compare-and-swap guard.
func (r *txRepository) UpdateItemDecision(ctx context.Context, itemID int64, to count.ItemStatus, managerComment string) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE count_items SET status=$1, manager_comment=$2, updated_at=NOW()
WHERE id=$3 AND status=$4`, string(to), managerComment, itemID, string(count.ItemStatusReviewing))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountOpenItems returns the number of items in the request that have not
// reached APPROVED yet.
func (r *txRepository) CountOpenItems(ctx context.Context, requestID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM count_items WHERE request_id=$1 AND status <> $2`,
		requestID, string(count.ItemStatusApproved)).Scan(&n)
	return n, err
}

// CompleteRequest closes the request once its last item is approved.
func (r *txRepository) CompleteRequest(ctx context.Context, requestID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE count_requests SET status=$1, completed_at=NOW()
WHERE id=$2 AND status=$3`, string(count.RequestStatusCompleted), requestID, string(count.RequestStatusInProgress))
	return err
}
