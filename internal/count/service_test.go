package count

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/countwise/countwise/internal/shared"
)

type memoryCountRepo struct {
	requests map[int64]InventoryRequest
	items    map[int64]CountItem
	catalog  []CatalogEntry
	seqs     map[string]int
	nextID   int64
}

func newMemoryCountRepo() *memoryCountRepo {
	return &memoryCountRepo{
		requests: make(map[int64]InventoryRequest),
		items:    make(map[int64]CountItem),
		seqs:     make(map[string]int),
	}
}

type memoryCountTx struct {
	repo *memoryCountRepo
}

func (r *memoryCountRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryCountTx{repo: r})
}

func (r *memoryCountRepo) GetRequest(ctx context.Context, id int64) (InventoryRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return InventoryRequest{}, &shared.NotFoundError{Entity: "request", ID: id}
	}
	return req, nil
}

func (r *memoryCountRepo) ListRequests(ctx context.Context, filter RequestFilter) ([]InventoryRequest, int, error) {
	var out []InventoryRequest
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	return out, len(out), nil
}

func (r *memoryCountRepo) GetItem(ctx context.Context, id int64) (CountItem, error) {
	item, ok := r.items[id]
	if !ok {
		return CountItem{}, &shared.NotFoundError{Entity: "item", ID: id}
	}
	return item, nil
}

func (r *memoryCountRepo) ListItems(ctx context.Context, filter ItemFilter) ([]CountItem, int, error) {
	var out []CountItem
	for _, item := range r.items {
		if filter.RequestID != 0 && item.RequestID != filter.RequestID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, item)
	}
	return out, len(out), nil
}

func (tx *memoryCountTx) InsertRequest(ctx context.Context, req InventoryRequest) (int64, error) {
	tx.repo.nextID++
	req.ID = tx.repo.nextID
	tx.repo.requests[req.ID] = req
	return req.ID, nil
}

func (tx *memoryCountTx) GetRequestForUpdate(ctx context.Context, id int64) (InventoryRequest, error) {
	return tx.repo.GetRequest(ctx, id)
}

func (tx *memoryCountTx) UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus) (bool, error) {
	req, ok := tx.repo.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	tx.repo.requests[id] = req
	return true, nil
}

func (tx *memoryCountTx) NextRequestNumber(ctx context.Context, period string) (int, error) {
	tx.repo.seqs[period]++
	return tx.repo.seqs[period], nil
}

func (tx *memoryCountTx) ListCatalogEntries(ctx context.Context, centerIDs []int64) ([]CatalogEntry, error) {
	var out []CatalogEntry
	for _, entry := range tx.repo.catalog {
		for _, centerID := range centerIDs {
			if entry.CenterID == centerID {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

func (tx *memoryCountTx) InsertItems(ctx context.Context, items []CountItem) error {
	for _, item := range items {
		tx.repo.nextID++
		item.ID = tx.repo.nextID
		tx.repo.items[item.ID] = item
	}
	return nil
}

func newCountService(repo *memoryCountRepo) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateRequestAssignsPeriodNumber(t *testing.T) {
	repo := newMemoryCountRepo()
	svc := newCountService(repo)
	actor := shared.Actor{UserID: 7, Role: shared.RoleCoordinator}

	first, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{1, 2}, Actor: actor})
	require.NoError(t, err)
	require.Equal(t, "IC-202603-0001", first.Number)
	require.Equal(t, RequestStatusDraft, first.Status)
	require.Equal(t, int64(7), first.CreatedBy)

	second, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{1}, Actor: actor})
	require.NoError(t, err)
	require.Equal(t, "IC-202603-0002", second.Number)
}

func TestCreateRequestValidation(t *testing.T) {
	svc := newCountService(newMemoryCountRepo())

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{CenterIDs: []int64{1}})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "type", validation.Field)

	_, err = svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL"})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "center_ids", validation.Field)
}

func TestCreateRequestDeduplicatesCenters(t *testing.T) {
	repo := newMemoryCountRepo()
	svc := newCountService(repo)

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{3, 3, 5, 0}})
	require.NoError(t, err)
	require.Equal(t, []int64{3, 5}, req.CenterIDs)
}

func TestSendRequestFansOutItems(t *testing.T) {
	repo := newMemoryCountRepo()
	repo.catalog = []CatalogEntry{
		{CenterID: 1, ItemCode: "SKU-1", SystemQty: 10},
		{CenterID: 1, ItemCode: "SKU-2", SystemQty: 4},
		{CenterID: 2, ItemCode: "SKU-1", SystemQty: 7},
		{CenterID: 9, ItemCode: "SKU-9", SystemQty: 1},
	}
	svc := newCountService(repo)

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{1, 2}})
	require.NoError(t, err)

	sent, err := svc.SendRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	require.NoError(t, err)
	require.Equal(t, RequestStatusSent, sent.Status)
	require.Len(t, repo.items, 3)
	for _, item := range repo.items {
		require.Equal(t, ItemStatusPending, item.Status)
		require.Nil(t, item.PhysicalQty)
	}
}

func TestSendRequestZeroScopeFails(t *testing.T) {
	repo := newMemoryCountRepo()
	svc := newCountService(repo)

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{1}})
	require.NoError(t, err)

	_, err = svc.SendRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, RequestStatusDraft, repo.requests[req.ID].Status)
	require.Empty(t, repo.items)
}

func TestSendRequestOnlyFromDraft(t *testing.T) {
	repo := newMemoryCountRepo()
	repo.catalog = []CatalogEntry{{CenterID: 1, ItemCode: "SKU-1"}}
	svc := newCountService(repo)

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{1}})
	require.NoError(t, err)
	_, err = svc.SendRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	require.NoError(t, err)

	_, err = svc.SendRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, string(RequestStatusDraft), conflict.Expected)
	require.Equal(t, string(RequestStatusSent), conflict.Actual)
}

func TestCancelRequest(t *testing.T) {
	repo := newMemoryCountRepo()
	repo.catalog = []CatalogEntry{{CenterID: 1, ItemCode: "SKU-1"}}
	svc := newCountService(repo)

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{Type: "FULL", CenterIDs: []int64{1}})
	require.NoError(t, err)
	_, err = svc.SendRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	require.NoError(t, err)

	cancelled, err := svc.CancelRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	require.NoError(t, err)
	require.Equal(t, RequestStatusCancelled, cancelled.Status)

	_, err = svc.CancelRequest(context.Background(), req.ID, shared.Actor{UserID: 1})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestListRequestsRejectsUnknownStatusFilter(t *testing.T) {
	svc := newCountService(newMemoryCountRepo())
	_, _, err := svc.ListRequests(context.Background(), RequestFilter{Status: "BOGUS"})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestListItemsRejectsUnknownStatusFilter(t *testing.T) {
	svc := newCountService(newMemoryCountRepo())
	_, _, err := svc.ListItems(context.Background(), ItemFilter{Status: "BOGUS"})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}
