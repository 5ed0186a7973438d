package balancer

import "container/heap"

type nodeLoad struct {
	id   int
	load int
}

// loadHeap is a min-heap ordered by load, then node id.
type loadHeap []nodeLoad

func newLoadHeap(nodes []int) *loadHeap {
	seen := make(map[int]struct{}, len(nodes))
	h := make(loadHeap, 0, len(nodes))
	for _, id := range nodes {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h = append(h, nodeLoad{id: id})
	}
	heap.Init(&h)
	return &h
}

func (h loadHeap) Len() int { return len(h) }

func (h loadHeap) Less(i, j int) bool {
	if h[i].load != h[j].load {
		return h[i].load < h[j].load
	}
	return h[i].id < h[j].id
}

func (h loadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *loadHeap) Push(x any) { *h = append(*h, x.(nodeLoad)) }

func (h *loadHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
