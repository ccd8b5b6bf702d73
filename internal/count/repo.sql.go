package count

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countwise/countwise/internal/platform/db"
	"github.com/countwise/countwise/internal/shared"
)

// Repository persists requests and count items in PostgreSQL.
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
		return errors.New("count repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// RequestColumns is the canonical select list for count_requests rows, in
// the order ScanRequest consumes them. Every query against the table builds
// on it so the column spelling cannot drift between packages.
const RequestColumns = `id, number, request_type, center_ids, status, comment, due_at, created_by, created_at, sent_at, completed_at, cancelled_at`

const itemColumns = `id, request_id, center_id, item_code, description, division_code, category_code, group_code, unit,
system_qty, physical_qty, difference, adjustment_type, counter_comment, manager_comment, assigned_to, status,
due_at, last_reminded_at, created_at, updated_at`

// ScanRequest scans one count_requests row selected via RequestColumns.
func ScanRequest(row pgx.Row) (InventoryRequest, error) {
	var req InventoryRequest
	var status string
	var sentAt, completedAt, cancelledAt *time.Time
	err := row.Scan(&req.ID, &req.Number, &req.Type, &req.CenterIDs, &status, &req.Comment, &req.DueAt,
		&req.CreatedBy, &req.CreatedAt, &sentAt, &completedAt, &cancelledAt)
	if err != nil {
		return InventoryRequest{}, err
	}
	req.Status = RequestStatus(status)
	req.SentAt = derefTime(sentAt)
	req.CompletedAt = derefTime(completedAt)
	req.CancelledAt = derefTime(cancelledAt)
	return req, nil
}

func scanItem(row pgx.Row) (CountItem, error) {
	var item CountItem
	var status, adjustment string
	var assignedTo *int64
	var lastReminded *time.Time
	err := row.Scan(&item.ID, &item.RequestID, &item.CenterID, &item.ItemCode, &item.Description,
		&item.DivisionCode, &item.CategoryCode, &item.GroupCode, &item.Unit,
		&item.SystemQty, &item.PhysicalQty, &item.Difference, &adjustment,
		&item.CounterComment, &item.ManagerComment, &assignedTo, &status,
		&item.DueAt, &lastReminded, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return CountItem{}, err
	}
	item.Status = ItemStatus(status)
	item.AdjustmentType = AdjustmentType(adjustment)
	if assignedTo != nil {
		item.AssignedTo = *assignedTo
	}
	item.LastRemindedAt = derefTime(lastReminded)
	return item, nil
}

// GetRequest loads one request by id.
func (r *Repository) GetRequest(ctx context.Context, id int64) (InventoryRequest, error) {
	req, err := ScanRequest(r.pool.QueryRow(ctx, `SELECT `+RequestColumns+` FROM count_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryRequest{}, &shared.NotFoundError{Entity: "request", ID: id}
		}
		return InventoryRequest{}, err
	}
	return req, nil
}

// ListRequests returns requests matching the filter plus the total count.
func (r *Repository) ListRequests(ctx context.Context, filter RequestFilter) ([]InventoryRequest, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(number ILIKE $%d OR comment ILIKE $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM count_requests WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM count_requests WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		RequestColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var requests []InventoryRequest
	for rows.Next() {
		req, err := ScanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// GetItem loads one item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (CountItem, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM count_items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CountItem{}, &shared.NotFoundError{Entity: "item", ID: id}
		}
		return CountItem{}, err
	}
	return item, nil
}

// ListItems returns items matching the filter plus the total count.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]CountItem, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.RequestID != 0 {
		add("request_id=$%d", filter.RequestID)
	}
	if filter.CenterID != 0 {
		add("center_id=$%d", filter.CenterID)
	}
	if filter.Status != "" {
		add("status=$%d", string(filter.Status))
	}
	if filter.AssignedTo != 0 {
		add("assigned_to=$%d", filter.AssignedTo)
	}
	if filter.Classification.DivisionCode != "" {
		add("division_code=$%d", filter.Classification.DivisionCode)
	}
	if filter.Classification.CategoryCode != "" {
		add("category_code=$%d", filter.Classification.CategoryCode)
	}
	if filter.Classification.GroupCode != "" {
		add("group_code=$%d", filter.Classification.GroupCode)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM count_items WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM count_items WHERE %s ORDER BY center_id ASC, item_code ASC LIMIT $%d OFFSET $%d`,
		itemColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []CountItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *txRepository) InsertRequest(ctx context.Context, req InventoryRequest) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO count_requests (number, request_type, center_ids, status, comment, due_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		req.Number, req.Type, req.CenterIDs, string(req.Status), req.Comment, req.DueAt, req.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.NewValidationError("number", "request number already used")
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) GetRequestForUpdate(ctx context.Context, id int64) (InventoryRequest, error) {
	req, err := ScanRequest(r.tx.QueryRow(ctx, `SELECT `+RequestColumns+` FROM count_requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryRequest{}, &shared.NotFoundError{Entity: "request", ID: id}
		}
		return InventoryRequest{}, err
	}
	return req, nil
}

// UpdateRequestStatus performs a compare-and-swap on the request status.
// The timestamp column matching the new status is stamped alongside.
func (r *txRepository) UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus) (bool, error) {
	stamp := ""
	switch to {
	case RequestStatusSent:
		stamp = ", sent_at=NOW()"
	case RequestStatusCompleted:
		stamp = ", completed_at=NOW()"
	case RequestStatusCancelled:
		stamp = ", cancelled_at=NOW()"
	}
	tag, err := r.tx.Exec(ctx, `UPDATE count_requests SET status=$1`+stamp+` WHERE id=$2 AND status=$3`,
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// NextRequestNumber increments the per-period counter and returns the next
// sequence value; numbers are monotonic within a period.
func (r *txRepository) NextRequestNumber(ctx context.Context, period string) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO request_numbers (period, last_seq) VALUES ($1, 1)
ON CONFLICT (period) DO UPDATE SET last_seq = request_numbers.last_seq + 1
RETURNING last_seq`, period).Scan(&seq)
	return seq, err
}

// ListCatalogEntries returns the stock snapshot lines for the given centers.
func (r *txRepository) ListCatalogEntries(ctx context.Context, centerIDs []int64) ([]CatalogEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT center_id, item_code, description, division_code, category_code, group_code, unit, system_qty
FROM center_stock WHERE center_id = ANY($1) ORDER BY center_id ASC, item_code ASC`, centerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.CenterID, &e.ItemCode, &e.Description, &e.DivisionCode, &e.CategoryCode, &e.GroupCode, &e.Unit, &e.SystemQty); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *txRepository) InsertItems(ctx context.Context, items []CountItem) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx, `INSERT INTO count_items (request_id, center_id, item_code, description, division_code, category_code, group_code, unit,
system_qty, adjustment_type, status, due_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())`,
			item.RequestID, item.CenterID, item.ItemCode, item.Description,
			item.DivisionCode, item.CategoryCode, item.GroupCode, item.Unit,
			item.SystemQty, string(AdjustmentNone), string(ItemStatusPending), item.DueAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return shared.NewValidationError("item_code", fmt.Sprintf("duplicate item code %s in center %d", item.ItemCode, item.CenterID))
			}
			return err
		}
	}
	return nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
