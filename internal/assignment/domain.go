package assignment

import (
	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/shared"
)

// Strategy selects how Distribute spreads items across counters.
type Strategy string

const (
	// StrategyRoundRobin cycles through the counters in order.
	StrategyRoundRobin Strategy = "round_robin"
	// StrategyLeastLoaded always picks the counter with the fewest open
	// assignments, counting the ones made during this run.
	StrategyLeastLoaded Strategy = "least_loaded"
)

// ParseStrategy validates an externally supplied strategy value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyRoundRobin, StrategyLeastLoaded:
		return Strategy(s), nil
	case "":
		return StrategyRoundRobin, nil
	}
	return "", shared.NewValidationError("strategy", "unknown strategy "+s)
}

// AssignInput targets every matching pending item at a single counter.
type AssignInput struct {
	RequestID int64
	CenterID  int64
	CounterID int64
	Filter    count.ClassificationFilter
	Actor     shared.Actor
}

// DistributeInput spreads matching pending items across a set of counters.
type DistributeInput struct {
	RequestID  int64
	CenterID   int64
	CounterIDs []int64
	Strategy   Strategy
	Filter     count.ClassificationFilter
	Actor      shared.Actor
}

// Result reports how many items an assignment run touched. Zero is a valid,
// non-error outcome when nothing matched the filter.
type Result struct {
	AssignedCount int
}
