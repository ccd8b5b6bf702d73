package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/notify"
	"github.com/countwise/countwise/internal/shared"
)

type memoryCaptureRepo struct {
	requests map[int64]count.RequestStatus
	items    map[int64]count.CountItem
}

func newMemoryCaptureRepo() *memoryCaptureRepo {
	return &memoryCaptureRepo{
		requests: make(map[int64]count.RequestStatus),
		items:    make(map[int64]count.CountItem),
	}
}

type memoryCaptureTx struct {
	repo *memoryCaptureRepo
}

func (r *memoryCaptureRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryCaptureTx{repo: r})
}

func (tx *memoryCaptureTx) GetItemForUpdate(ctx context.Context, id int64) (count.CountItem, error) {
	item, ok := tx.repo.items[id]
	if !ok {
		return count.CountItem{}, &shared.NotFoundError{Entity: "item", ID: id}
	}
	return item, nil
}

func (tx *memoryCaptureTx) GetItemsForUpdate(ctx context.Context, ids []int64) ([]count.CountItem, error) {
	var out []count.CountItem
	for _, id := range ids {
		if item, ok := tx.repo.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (tx *memoryCaptureTx) GetRequestStatus(ctx context.Context, requestID int64) (count.RequestStatus, error) {
	status, ok := tx.repo.requests[requestID]
	if !ok {
		return "", &shared.NotFoundError{Entity: "request", ID: requestID}
	}
	return status, nil
}

func (tx *memoryCaptureTx) UpdateItemCount(ctx context.Context, item count.CountItem, from count.ItemStatus) (bool, error) {
	current, ok := tx.repo.items[item.ID]
	if !ok || current.Status != from {
		return false, nil
	}
	tx.repo.items[item.ID] = item
	return true, nil
}

func (tx *memoryCaptureTx) UpdateItemsStatus(ctx context.Context, ids []int64, from, to count.ItemStatus) (int, error) {
	n := 0
	for _, id := range ids {
		item, ok := tx.repo.items[id]
		if !ok || item.Status != from {
			continue
		}
		item.Status = to
		tx.repo.items[id] = item
		n++
	}
	return n, nil
}

type recordingDecisions struct {
	logs []shared.DecisionLog
}

func (d *recordingDecisions) Record(ctx context.Context, log shared.DecisionLog) error {
	d.logs = append(d.logs, log)
	return nil
}

type captureDispatcher struct {
	events []notify.Event
}

func (d *captureDispatcher) Dispatch(ctx context.Context, event notify.Event) error {
	d.events = append(d.events, event)
	return nil
}

func seedCaptureItem(repo *memoryCaptureRepo, id int64, status count.ItemStatus) {
	repo.requests[1] = count.RequestStatusInProgress
	repo.items[id] = count.CountItem{ID: id, RequestID: 1, CenterID: 10, ItemCode: "SKU", SystemQty: 10, Status: status}
}

func TestRecordCount(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusAssigned)
	svc := NewService(repo, nil, nil, nil, nil)

	item, err := svc.RecordCount(context.Background(), 100, 8, "two short", shared.Actor{UserID: 5})
	require.NoError(t, err)
	require.Equal(t, count.ItemStatusCounted, item.Status)
	require.Equal(t, 8.0, *item.PhysicalQty)
	require.Equal(t, -2.0, item.Difference)
	require.Equal(t, count.AdjustmentShortage, item.AdjustmentType)
	require.Equal(t, "two short", item.CounterComment)
}

func TestRecordCountOverwritesBeforeSubmission(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusAssigned)
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.RecordCount(context.Background(), 100, 8, "", shared.Actor{UserID: 5})
	require.NoError(t, err)
	item, err := svc.RecordCount(context.Background(), 100, 12, "found more", shared.Actor{UserID: 5})
	require.NoError(t, err)
	require.Equal(t, 12.0, *item.PhysicalQty)
	require.Equal(t, 2.0, item.Difference)
	require.Equal(t, count.AdjustmentSurplus, item.AdjustmentType)
}

func TestRecordCountOnRejectedItem(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusRejected)
	svc := NewService(repo, nil, nil, nil, nil)

	item, err := svc.RecordCount(context.Background(), 100, 10, "", shared.Actor{UserID: 5})
	require.NoError(t, err)
	require.Equal(t, count.ItemStatusCounted, item.Status)
	require.Equal(t, count.AdjustmentNone, item.AdjustmentType)
}

func TestRecordCountConflictsAfterSubmission(t *testing.T) {
	for _, status := range []count.ItemStatus{count.ItemStatusPending, count.ItemStatusReviewing, count.ItemStatusApproved} {
		repo := newMemoryCaptureRepo()
		seedCaptureItem(repo, 100, status)
		svc := NewService(repo, nil, nil, nil, nil)

		_, err := svc.RecordCount(context.Background(), 100, 8, "", shared.Actor{UserID: 5})
		var conflict *shared.ConflictError
		require.ErrorAs(t, err, &conflict, "status %s", status)
		require.Equal(t, status, repo.items[100].Status)
	}
}

func TestRecordCountOnFrozenRequest(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusAssigned)
	repo.requests[1] = count.RequestStatusCancelled
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.RecordCount(context.Background(), 100, 8, "", shared.Actor{UserID: 5})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "request", conflict.Entity)
}

func TestRecordCountRejectsNegative(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusAssigned)
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.RecordCount(context.Background(), 100, -1, "", shared.Actor{UserID: 5})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, count.ItemStatusAssigned, repo.items[100].Status)
}

func TestSubmitBatch(t *testing.T) {
	repo := newMemoryCaptureRepo()
	for _, id := range []int64{100, 101, 102} {
		seedCaptureItem(repo, id, count.ItemStatusCounted)
	}
	dispatcher := &captureDispatcher{}
	decisions := &recordingDecisions{}
	svc := NewService(repo, dispatcher, decisions, nil, nil)

	result, err := svc.SubmitBatch(context.Background(), []int64{100, 101, 102, 101}, shared.Actor{UserID: 5})
	require.NoError(t, err)
	require.Equal(t, 3, result.SubmittedCount)
	for _, id := range []int64{100, 101, 102} {
		require.Equal(t, count.ItemStatusReviewing, repo.items[id].Status)
	}
	require.Len(t, dispatcher.events, 1)
	require.Equal(t, notify.EventBatchSubmitted, dispatcher.events[0].Type)
	require.Len(t, decisions.logs, 3)
	for _, log := range decisions.logs {
		require.Equal(t, shared.DecisionSubmit, log.Action)
	}
}

func TestSubmitBatchAllOrNothing(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusCounted)
	seedCaptureItem(repo, 101, count.ItemStatusAssigned)
	seedCaptureItem(repo, 102, count.ItemStatusRejected)
	dispatcher := &captureDispatcher{}
	svc := NewService(repo, dispatcher, nil, nil, nil)

	_, err := svc.SubmitBatch(context.Background(), []int64{100, 101, 102}, shared.Actor{UserID: 5})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.ElementsMatch(t, []int64{101, 102}, validation.IDs)

	require.Equal(t, count.ItemStatusCounted, repo.items[100].Status)
	require.Equal(t, count.ItemStatusAssigned, repo.items[101].Status)
	require.Equal(t, count.ItemStatusRejected, repo.items[102].Status)
	require.Empty(t, dispatcher.events)
}

func TestSubmitBatchMissingItem(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusCounted)
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.SubmitBatch(context.Background(), []int64{100, 999}, shared.Actor{UserID: 5})
	var notFound *shared.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(999), notFound.ID)
	require.Equal(t, count.ItemStatusCounted, repo.items[100].Status)
}

func TestSubmitBatchEmpty(t *testing.T) {
	svc := NewService(newMemoryCaptureRepo(), nil, nil, nil, nil)
	_, err := svc.SubmitBatch(context.Background(), nil, shared.Actor{UserID: 5})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSubmitBatchFrozenRequest(t *testing.T) {
	repo := newMemoryCaptureRepo()
	seedCaptureItem(repo, 100, count.ItemStatusCounted)
	repo.requests[1] = count.RequestStatusCancelled
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.SubmitBatch(context.Background(), []int64{100}, shared.Actor{UserID: 5})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, count.ItemStatusCounted, repo.items[100].Status)
}
