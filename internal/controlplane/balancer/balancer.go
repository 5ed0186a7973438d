// Package balancer computes task placements that keep node loads within a
// threshold of each other.
//
// Placement uses the longest-processing-time-first heuristic: tasks are
// taken heaviest first (ties by ascending task id) and each goes to the
// node with the lowest accumulated load (ties by lowest node id). The
// result is deterministic for a given input. The underlying problem is
// multiway number partitioning; no exhaustive search is attempted, so a
// plan the heuristic cannot bring under the threshold is reported as
// infeasible.
package balancer

import (
	"cmp"
	"container/heap"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNoNodes          = errors.New("no nodes registered")
	ErrInvalidThreshold = errors.New("threshold must be positive")
	ErrInfeasible       = errors.New("no feasible plan")
)

// Item is a task to place.
type Item struct {
	ID     int
	Weight int
}

// Plan is a complete placement of every item.
type Plan struct {
	Assignments map[int]int // item id -> node id
	Loads       map[int]int // node id -> total weight
	MaxDiff     int
}

// InfeasibleError carries the best spread the heuristic reached.
type InfeasibleError struct {
	MaxDiff   int
	Threshold int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("no feasible plan: max load difference %d exceeds threshold %d", e.MaxDiff, e.Threshold)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// Balance places items on nodes and checks the spread against threshold.
// Duplicate node ids are ignored. The returned plan is only valid when err
// is nil; on an InfeasibleError the plan is still returned so callers can
// report the loads that were reached.
func Balance(nodes []int, items []Item, threshold int) (Plan, error) {
	if threshold <= 0 {
		return Plan{}, ErrInvalidThreshold
	}
	if len(nodes) == 0 {
		return Plan{}, ErrNoNodes
	}

	plan := Place(nodes, items)
	if plan.MaxDiff > threshold {
		return plan, &InfeasibleError{MaxDiff: plan.MaxDiff, Threshold: threshold}
	}
	return plan, nil
}

// Place runs the greedy placement without a feasibility check. nodes must
// not be empty.
func Place(nodes []int, items []Item) Plan {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b Item) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	h := newLoadHeap(nodes)
	plan := Plan{
		Assignments: make(map[int]int, len(sorted)),
		Loads:       make(map[int]int, h.Len()),
	}
	for _, it := range sorted {
		n := &(*h)[0]
		plan.Assignments[it.ID] = n.id
		n.load += it.Weight
		heap.Fix(h, 0)
	}
	for _, n := range *h {
		plan.Loads[n.id] = n.load
	}
	plan.MaxDiff = Spread(plan.Loads)
	return plan
}

// Spread returns max(load) - min(load), or 0 for an empty map.
func Spread(loads map[int]int) int {
	first := true
	var lo, hi int
	for _, l := range loads {
		if first {
			lo, hi = l, l
			first = false
			continue
		}
		lo = min(lo, l)
		hi = max(hi, l)
	}
	return hi - lo
}
