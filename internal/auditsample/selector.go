package auditsample

import (
	"math/rand"

	"github.com/countwise/countwise/internal/shared"
)

// Method names how a sample was selected.
type Method string

const (
	MethodManual           Method = "manual"
	MethodAutomaticCount   Method = "automatic-count"
	MethodAutomaticPercent Method = "automatic-percent"
)

// AutoMode selects the automatic target computation.
type AutoMode string

const (
	AutoModeCount   AutoMode = "count"
	AutoModePercent AutoMode = "percent"
)

// AutoSpec describes an automatic selection target: a fixed number of items
// or a percentage of the eligible pool.
type AutoSpec struct {
	Mode AutoMode
	N    int
	P    float64
}

// Sample is a selected set of items for post-approval audit recount.
type Sample struct {
	ItemIDs []int64
	Method  Method
	Params  map[string]any
}

// Select picks a sample from the eligible item ids. Manual picks are taken
// verbatim; the automatic portion draws uniformly without replacement from
// the remaining pool. A nil rng falls back to the shared global source.
func Select(itemIDs []int64, manualIDs []int64, auto *AutoSpec, rng *rand.Rand) (Sample, error) {
	eligible := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		eligible[id] = struct{}{}
	}

	var unknown []int64
	picked := make(map[int64]struct{}, len(manualIDs))
	selected := make([]int64, 0, len(manualIDs))
	for _, id := range manualIDs {
		if _, ok := eligible[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		if _, dup := picked[id]; dup {
			continue
		}
		picked[id] = struct{}{}
		selected = append(selected, id)
	}
	if len(unknown) > 0 {
		return Sample{}, &shared.ValidationError{Field: "manual_ids", Reason: "not in the eligible item set", IDs: unknown}
	}

	sample := Sample{Method: MethodManual, Params: map[string]any{"manual": len(selected)}}
	if auto == nil {
		sample.ItemIDs = selected
		return sample, nil
	}

	pool := make([]int64, 0, len(itemIDs))
	for _, id := range itemIDs {
		if _, taken := picked[id]; !taken {
			pool = append(pool, id)
		}
	}

	var target int
	switch auto.Mode {
	case AutoModeCount:
		if auto.N < 0 {
			return Sample{}, shared.NewValidationError("n", "must not be negative")
		}
		target = auto.N
		if target > len(pool) {
			target = len(pool)
		}
		sample.Method = MethodAutomaticCount
		sample.Params["n"] = auto.N
	case AutoModePercent:
		if auto.P < 0 || auto.P > 100 {
			return Sample{}, shared.NewValidationError("p", "must be between 0 and 100")
		}
		target = int(float64(len(pool)) * auto.P / 100)
		sample.Method = MethodAutomaticPercent
		sample.Params["p"] = auto.P
	default:
		return Sample{}, shared.NewValidationError("mode", "must be count or percent")
	}

	perm := permute(len(pool), rng)
	for _, idx := range perm[:target] {
		selected = append(selected, pool[idx])
	}
	sample.ItemIDs = selected
	return sample, nil
}

func permute(n int, rng *rand.Rand) []int {
	if rng == nil {
		return rand.Perm(n)
	}
	return rng.Perm(n)
}
