package auditsample

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/countwise/countwise/internal/shared"
)

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestSelectManualOnly(t *testing.T) {
	sample, err := Select(ids(10), []int64{2, 5, 5}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, MethodManual, sample.Method)
	require.Equal(t, []int64{2, 5}, sample.ItemIDs)
}

func TestSelectManualUnknownIDs(t *testing.T) {
	_, err := Select(ids(3), []int64{2, 9, 11}, nil, nil)
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.ElementsMatch(t, []int64{9, 11}, validation.IDs)
}

func TestSelectAutomaticCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sample, err := Select(ids(10), nil, &AutoSpec{Mode: AutoModeCount, N: 4}, rng)
	require.NoError(t, err)
	require.Equal(t, MethodAutomaticCount, sample.Method)
	require.Len(t, sample.ItemIDs, 4)

	seen := make(map[int64]struct{})
	for _, id := range sample.ItemIDs {
		require.Greater(t, id, int64(0))
		require.LessOrEqual(t, id, int64(10))
		_, dup := seen[id]
		require.False(t, dup, "picked %d twice", id)
		seen[id] = struct{}{}
	}
}

func TestSelectAutomaticCountClampedToPool(t *testing.T) {
	sample, err := Select(ids(3), nil, &AutoSpec{Mode: AutoModeCount, N: 50}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, sample.ItemIDs, 3)
}

func TestSelectAutomaticPercent(t *testing.T) {
	sample, err := Select(ids(10), nil, &AutoSpec{Mode: AutoModePercent, P: 25}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, MethodAutomaticPercent, sample.Method)
	// floor(25% of 10) = 2
	require.Len(t, sample.ItemIDs, 2)
}

func TestSelectPercentBounds(t *testing.T) {
	for _, p := range []float64{-1, 100.5} {
		_, err := Select(ids(10), nil, &AutoSpec{Mode: AutoModePercent, P: p}, nil)
		var validation *shared.ValidationError
		require.ErrorAs(t, err, &validation, "p=%v", p)
	}

	sample, err := Select(ids(10), nil, &AutoSpec{Mode: AutoModePercent, P: 0}, nil)
	require.NoError(t, err)
	require.Empty(t, sample.ItemIDs)

	sample, err = Select(ids(10), nil, &AutoSpec{Mode: AutoModePercent, P: 100}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, sample.ItemIDs, 10)
}

func TestSelectManualExcludedFromAutoPool(t *testing.T) {
	// manual picks take 2 of 5; automatic draws the remaining 3
	sample, err := Select(ids(5), []int64{1, 2}, &AutoSpec{Mode: AutoModeCount, N: 3}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, sample.ItemIDs, 5)
	require.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, sample.ItemIDs)
}

func TestSelectSeededReproducibility(t *testing.T) {
	first, err := Select(ids(20), nil, &AutoSpec{Mode: AutoModeCount, N: 5}, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := Select(ids(20), nil, &AutoSpec{Mode: AutoModeCount, N: 5}, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Equal(t, first.ItemIDs, second.ItemIDs)
}

func TestSelectUnknownMode(t *testing.T) {
	_, err := Select(ids(5), nil, &AutoSpec{Mode: "stratified"}, nil)
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSelectEmptyResultIsLegal(t *testing.T) {
	sample, err := Select(nil, nil, &AutoSpec{Mode: AutoModeCount, N: 3}, nil)
	require.NoError(t, err)
	require.Empty(t, sample.ItemIDs)
}
