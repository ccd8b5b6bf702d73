package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DecisionAction enumerates review decision log actions.
type DecisionAction string

const (
	// DecisionSubmit marks a batch submission into review.
	DecisionSubmit DecisionAction = "SUBMIT"
	// DecisionApprove marks an approval.
	DecisionApprove DecisionAction = "APPROVE"
	// DecisionReject marks a rejection.
	DecisionReject DecisionAction = "REJECT"
)

// DecisionLog represents a single entry in the review decision trail.
type DecisionLog struct {
	ID      int64
	ItemID  int64
	ActorID int64
	Action  DecisionAction
	Note    string
	At      time.Time
}

// DecisionRecorder persists the review decision trail.
type DecisionRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDecisionRecorder constructs DecisionRecorder.
func NewDecisionRecorder(pool *pgxpool.Pool, logger *slog.Logger) *DecisionRecorder {
	return &DecisionRecorder{pool: pool, logger: logger}
}

// Record writes a decision entry to the database.
func (r *DecisionRecorder) Record(ctx context.Context, log DecisionLog) error {
	if r == nil {
		return errors.New("decision recorder not initialised")
	}
	if log.ItemID == 0 {
		return errors.New("decision item required")
	}
	if log.ActorID == 0 {
		return errors.New("decision actor required")
	}
	if log.Action == "" {
		return errors.New("decision action required")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO review_decisions (item_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`, log.ItemID, log.ActorID, string(log.Action), log.Note, log.At)
	if err != nil {
		r.logger.Error("record decision", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns the decision trail for an item in chronological order.
func (r *DecisionRecorder) List(ctx context.Context, itemID int64) ([]DecisionLog, error) {
	if r == nil {
		return nil, errors.New("decision recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, actor_id, action, note, at
FROM review_decisions WHERE item_id=$1 ORDER BY at ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []DecisionLog
	for rows.Next() {
		var l DecisionLog
		var action string
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = DecisionAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
