package auditsample

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/countwise/countwise/internal/shared"
)

type memorySampleRepo struct {
	approved map[int64][]int64
	samples  map[int64]StoredSample
	nextID   int64
}

func newMemorySampleRepo() *memorySampleRepo {
	return &memorySampleRepo{
		approved: make(map[int64][]int64),
		samples:  make(map[int64]StoredSample),
	}
}

func (r *memorySampleRepo) ListApprovedItemIDs(ctx context.Context, requestID int64) ([]int64, error) {
	return r.approved[requestID], nil
}

func (r *memorySampleRepo) InsertSample(ctx context.Context, sample StoredSample) (int64, error) {
	r.nextID++
	sample.ID = r.nextID
	r.samples[sample.ID] = sample
	return sample.ID, nil
}

func (r *memorySampleRepo) GetSample(ctx context.Context, id int64) (StoredSample, error) {
	sample, ok := r.samples[id]
	if !ok {
		return StoredSample{}, &shared.NotFoundError{Entity: "audit_sample", ID: id}
	}
	return sample, nil
}

func (r *memorySampleRepo) ListSamples(ctx context.Context, requestID int64) ([]StoredSample, error) {
	var out []StoredSample
	for _, sample := range r.samples {
		if sample.RequestID == requestID {
			out = append(out, sample)
		}
	}
	return out, nil
}

func TestCreateSamplePersistsSelection(t *testing.T) {
	repo := newMemorySampleRepo()
	repo.approved[1] = []int64{10, 11, 12, 13}
	svc := NewService(repo, nil, rand.New(rand.NewSource(7)))
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }

	sample, err := svc.CreateSample(context.Background(), CreateSampleInput{
		RequestID: 1,
		Auto:      &AutoSpec{Mode: AutoModeCount, N: 2},
		Actor:     shared.Actor{UserID: 3},
	})
	require.NoError(t, err)
	require.NotZero(t, sample.ID)
	require.Equal(t, MethodAutomaticCount, sample.Method)
	require.Len(t, sample.ItemIDs, 2)
	require.Equal(t, int64(3), sample.CreatedBy)

	stored, err := svc.GetSample(context.Background(), sample.ID)
	require.NoError(t, err)
	require.Equal(t, sample.ItemIDs, stored.ItemIDs)
}

func TestCreateSampleManualOutsideApprovedSet(t *testing.T) {
	repo := newMemorySampleRepo()
	repo.approved[1] = []int64{10, 11}
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateSample(context.Background(), CreateSampleInput{
		RequestID: 1,
		ManualIDs: []int64{10, 99},
		Actor:     shared.Actor{UserID: 3},
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, []int64{99}, validation.IDs)
	require.Empty(t, repo.samples)
}

func TestCreateSampleRequiresRequest(t *testing.T) {
	svc := NewService(newMemorySampleRepo(), nil, nil)
	_, err := svc.CreateSample(context.Background(), CreateSampleInput{})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestListSamples(t *testing.T) {
	repo := newMemorySampleRepo()
	repo.approved[1] = []int64{10}
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateSample(context.Background(), CreateSampleInput{RequestID: 1, ManualIDs: []int64{10}, Actor: shared.Actor{UserID: 3}})
	require.NoError(t, err)

	samples, err := svc.ListSamples(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, MethodManual, samples[0].Method)
}
