package balancer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceThreeNodes(t *testing.T) {
	items := []Item{{1, 10}, {2, 8}, {3, 6}, {4, 4}}
	plan, err := Balance([]int{1, 2, 3}, items, 5)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3, 4: 3}, plan.Assignments)
	assert.Equal(t, map[int]int{1: 10, 2: 8, 3: 10}, plan.Loads)
	assert.Equal(t, 2, plan.MaxDiff)
}

func TestBalanceSingleNodeAlwaysFeasible(t *testing.T) {
	items := []Item{{1, 100}, {2, 1}, {3, 57}}
	plan, err := Balance([]int{4}, items, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.MaxDiff)
	assert.Equal(t, map[int]int{4: 158}, plan.Loads)
}

func TestBalanceNoTasks(t *testing.T) {
	plan, err := Balance([]int{2, 1}, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, plan.Assignments)
	assert.Equal(t, map[int]int{1: 0, 2: 0}, plan.Loads)
}

func TestBalanceNoNodes(t *testing.T) {
	_, err := Balance(nil, []Item{{1, 1}}, 1)
	require.ErrorIs(t, err, ErrNoNodes)
}

func TestBalanceInvalidThreshold(t *testing.T) {
	for _, th := range []int{0, -3} {
		_, err := Balance([]int{1}, nil, th)
		require.ErrorIs(t, err, ErrInvalidThreshold)
	}
}

func TestBalanceInfeasible(t *testing.T) {
	plan, err := Balance([]int{1, 2}, []Item{{1, 10}, {2, 1}}, 5)
	require.ErrorIs(t, err, ErrInfeasible)
	var ie *InfeasibleError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 9, ie.MaxDiff)
	assert.Equal(t, 5, ie.Threshold)
	assert.Equal(t, 9, plan.MaxDiff)
}

func TestPlaceTieBreaks(t *testing.T) {
	// Equal weights go in ascending task id order onto the least loaded,
	// lowest id node.
	plan := Place([]int{3, 1, 2}, []Item{{9, 5}, {4, 5}, {6, 5}})
	assert.Equal(t, map[int]int{4: 1, 6: 2, 9: 3}, plan.Assignments)
}

func TestPlaceIgnoresDuplicateNodes(t *testing.T) {
	plan := Place([]int{1, 1, 2}, []Item{{1, 3}, {2, 3}})
	assert.Len(t, plan.Loads, 2)
	assert.Equal(t, map[int]int{1: 1, 2: 2}, plan.Assignments)
}

func TestPlaceDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	items := make([]Item, 40)
	for i := range items {
		items[i] = Item{ID: i + 1, Weight: rng.Intn(20)}
	}
	nodes := []int{5, 2, 8, 1}
	want := Place(nodes, items)
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(items), func(a, b int) { items[a], items[b] = items[b], items[a] })
		rng.Shuffle(len(nodes), func(a, b int) { nodes[a], nodes[b] = nodes[b], nodes[a] })
		assert.Equal(t, want, Place(nodes, items))
	}
}

func TestBalancedPlansRespectThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		nodes := make([]int, 1+rng.Intn(6))
		for i := range nodes {
			nodes[i] = i + 1
		}
		items := make([]Item, rng.Intn(30))
		total := 0
		for i := range items {
			items[i] = Item{ID: i + 1, Weight: rng.Intn(50)}
			total += items[i].Weight
		}
		threshold := 1 + rng.Intn(40)
		plan, err := Balance(nodes, items, threshold)
		if err != nil {
			require.ErrorIs(t, err, ErrInfeasible)
			continue
		}
		sum := 0
		for _, a := range plan.Loads {
			sum += a
			for _, b := range plan.Loads {
				require.LessOrEqual(t, a-b, threshold)
			}
		}
		require.Equal(t, total, sum)
		require.Len(t, plan.Assignments, len(items))
	}
}

func TestSpread(t *testing.T) {
	assert.Equal(t, 0, Spread(nil))
	assert.Equal(t, 0, Spread(map[int]int{1: 7}))
	assert.Equal(t, 6, Spread(map[int]int{1: 7, 2: 1, 3: 4}))
}
