package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory answers counter eligibility from the center membership table the
// identity service replicates into the workflow database.
type Directory struct {
	pool *pgxpool.Pool
}

// NewDirectory constructs Directory.
func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// IsEligibleCounter reports whether the counter belongs to the center.
func (d *Directory) IsEligibleCounter(ctx context.Context, centerID, counterID int64) (bool, error) {
	if d == nil || d.pool == nil {
		return false, errors.New("identity directory not initialised")
	}
	var ok bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM center_counters WHERE center_id=$1 AND counter_id=$2 AND active)`, centerID, counterID).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}
