package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/platform/db"
	"github.com/countwise/countwise/internal/shared"
)

// Repository persists assignment mutations in PostgreSQL over the same
// tables the count module owns.
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
		return errors.New("assignment repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetRequestForUpdate(ctx context.Context, id int64) (count.InventoryRequest, error) {
	var req count.InventoryRequest
	var status string
	err := r.tx.QueryRow(ctx, `SELECT id, number, request_type, center_ids, status, due_at, created_by
FROM count_requests WHERE id=$1 FOR UPDATE`, id).
		Scan(&req.ID, &req.Number, &req.Type, &req.CenterIDs, &status, &req.DueAt, &req.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return count.InventoryRequest{}, &shared.NotFoundError{Entity: "request", ID: id}
		}
		return count.InventoryRequest{}, err
	}
	req.Status = count.RequestStatus(status)
	return req, nil
}

func (r *txRepository) ListPendingItemsForUpdate(ctx context.Context, requestID, centerID int64, filter count.ClassificationFilter) ([]count.CountItem, error) {
	where := []string{"request_id=$1", "center_id=$2", "status=$3"}
	args := []any{requestID, centerID, string(count.ItemStatusPending)}
	if filter.DivisionCode != "" {
		args = append(args, filter.DivisionCode)
		where = append(where, fmt.Sprintf("division_code=$%d", len(args)))
	}
	if filter.CategoryCode != "" {
		args = append(args, filter.CategoryCode)
		where = append(where, fmt.Sprintf("category_code=$%d", len(args)))
	}
	if filter.GroupCode != "" {
		args = append(args, filter.GroupCode)
		where = append(where, fmt.Sprintf("group_code=$%d", len(args)))
	}
	query := `SELECT id, request_id, center_id, item_code, status FROM count_items WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY item_code ASC FOR UPDATE`
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []count.CountItem
	for rows.Next() {
		var item count.CountItem
		var status string
		if err := rows.Scan(&item.ID, &item.RequestID, &item.CenterID, &item.ItemCode, &status); err != nil {
			return nil, err
		}
		item.Status = count.ItemStatus(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AssignItem moves one item PENDING -> ASSIGNED; the status predicate in the
// WHERE clause is the compare-and-swap guard.
func (r *txRepository) AssignItem(ctx context.Context, itemID, counterID int64) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE count_items SET assigned_to=$1, status=$2, updated_at=NOW()
WHERE id=$3 AND status=$4`, counterID, string(count.ItemStatusAssigned), itemID, string(count.ItemStatusPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRequestInProgress flips SENT -> IN_PROGRESS; a no-op when the request
// is already in progress.
func (r *txRepository) MarkRequestInProgress(ctx context.Context, requestID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE count_requests SET status=$1 WHERE id=$2 AND status=$3`,
		string(count.RequestStatusInProgress), requestID, string(count.RequestStatusSent))
	return err
}

// CountOpenAssignments returns the number of not-yet-closed items currently
// assigned to each counter, for least-loaded distribution.
func (r *txRepository) CountOpenAssignments(ctx context.Context, counterIDs []int64) (map[int64]int, error) {
	rows, err := r.tx.Query(ctx, `SELECT assigned_to, COUNT(*) FROM count_items
WHERE assigned_to = ANY($1) AND status IN ($2, $3, $4)
GROUP BY assigned_to`, counterIDs,
		string(count.ItemStatusAssigned), string(count.ItemStatusCounted), string(count.ItemStatusRejected))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	loads := make(map[int64]int, len(counterIDs))
	for rows.Next() {
		var counterID int64
		var n int
		if err := rows.Scan(&counterID, &n); err != nil {
			return nil, err
		}
		loads[counterID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loads, nil
}
