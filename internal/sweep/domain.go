package sweep

import (
	"time"

	"github.com/countwise/countwise/internal/count"
)

// IsRequestOverdue reports whether the request is past its due date and
// still open. Overdue is derived, never stored on the request.
func IsRequestOverdue(req count.InventoryRequest, now time.Time) bool {
	if req.Status.Terminal() {
		return false
	}
	if req.DueAt.IsZero() {
		return false
	}
	return now.After(req.DueAt)
}

// IsItemStale reports whether an assigned item has been sitting uncounted
// longer than the staleness threshold, and has not been reminded within
// that threshold already.
func IsItemStale(item count.CountItem, now time.Time, threshold time.Duration) bool {
	if item.Status != count.ItemStatusAssigned {
		return false
	}
	if threshold <= 0 {
		return false
	}
	if now.Sub(item.UpdatedAt) < threshold {
		return false
	}
	if !item.LastRemindedAt.IsZero() && now.Sub(item.LastRemindedAt) < threshold {
		return false
	}
	return true
}
