package dispatch

import (
	"slices"
	"sync"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
)

// Assignment is the set of tasks a committed plan placed on one node.
type Assignment struct {
	PlanID  string `json:"planId"`
	NodeID  int    `json:"nodeId"`
	TaskIDs []int  `json:"taskIds"`
	Load    int    `json:"load"`
}

// Manager keeps the latest assignment per node and streams changes to
// subscribers. It follows the registry: every applied mutation is mirrored
// from the event's state, and events older than the last one applied are
// ignored.
type Manager struct {
	mu      sync.Mutex
	latest  map[int]Assignment                   // nodeID -> last assignment
	subs    map[int]map[chan Assignment]struct{} // nodeID -> subscribers
	gen     uint64
	applied bool
}

func NewManager() *Manager {
	return &Manager{
		latest: make(map[int]Assignment),
		subs:   make(map[int]map[chan Assignment]struct{}),
	}
}

// Observe implements scheduler.Observer.
func (m *Manager) Observe(ev scheduler.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied && ev.State.Generation <= m.gen {
		return
	}
	m.gen = ev.State.Generation
	m.applied = true
	if ev.Op == scheduler.OpInit || ev.Op == scheduler.OpRestore {
		m.reset()
	}
	m.sync(ev.State)
}

// sync brings every node's assignment in line with st. Nodes that are no
// longer registered are dropped. Until a plan has been committed nodes
// have no assignment. Must be called with m.mu held.
func (m *Manager) sync(st registry.State) {
	registered := make(map[int]struct{}, len(st.Nodes))
	for _, id := range st.Nodes {
		registered[id] = struct{}{}
	}
	for id := range m.latest {
		if _, ok := registered[id]; !ok {
			m.drop(id)
		}
	}
	for id := range m.subs {
		if _, ok := registered[id]; !ok {
			m.drop(id)
		}
	}
	if st.PlanID == "" {
		return
	}
	placement, loads := placementOf(st)
	for _, a := range split(st.PlanID, placement, loads) {
		if prev, ok := m.latest[a.NodeID]; ok && sameAssignment(prev, a) {
			continue
		}
		m.publish(a)
	}
}

// Publish splits a placement by node, records it as the latest assignment
// of every node in loads and notifies subscribers.
func (m *Manager) Publish(planID string, placement map[int]int, loads map[int]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range split(planID, placement, loads) {
		m.publish(a)
	}
}

// publish must be called with m.mu held. A subscriber that is behind loses
// its oldest queued assignment so the newest one always gets through.
func (m *Manager) publish(a Assignment) {
	m.latest[a.NodeID] = a
	for ch := range m.subs[a.NodeID] {
		select {
		case ch <- a:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- a
		}
	}
}

func split(planID string, placement map[int]int, loads map[int]int) []Assignment {
	byNode := make(map[int]*Assignment)
	for nodeID, load := range loads {
		byNode[nodeID] = &Assignment{PlanID: planID, NodeID: nodeID, TaskIDs: []int{}, Load: load}
	}
	for taskID, nodeID := range placement {
		a, ok := byNode[nodeID]
		if !ok {
			a = &Assignment{PlanID: planID, NodeID: nodeID}
			byNode[nodeID] = a
		}
		a.TaskIDs = append(a.TaskIDs, taskID)
	}
	out := make([]Assignment, 0, len(byNode))
	for _, a := range byNode {
		slices.Sort(a.TaskIDs)
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b Assignment) int { return a.NodeID - b.NodeID })
	return out
}

func sameAssignment(a, b Assignment) bool {
	return a.PlanID == b.PlanID && a.Load == b.Load && slices.Equal(a.TaskIDs, b.TaskIDs)
}

// Latest returns the last assignment published for a node.
func (m *Manager) Latest(nodeID int) (Assignment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.latest[nodeID]
	return a, ok
}

// Drop forgets a node and closes its subscriptions.
func (m *Manager) Drop(nodeID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop(nodeID)
}

func (m *Manager) drop(nodeID int) {
	delete(m.latest, nodeID)
	for ch := range m.subs[nodeID] {
		close(ch)
	}
	delete(m.subs, nodeID)
}

// reset forgets every node and closes every subscription. Must be called
// with m.mu held.
func (m *Manager) reset() {
	for _, subs := range m.subs {
		for ch := range subs {
			close(ch)
		}
	}
	m.latest = make(map[int]Assignment)
	m.subs = make(map[int]map[chan Assignment]struct{})
}

// Subscribe creates a channel subscription for a node's assignments. The
// latest assignment, if any, is delivered first. The channel is closed
// when the node is dropped. Caller must call the returned cancel func.
func (m *Manager) Subscribe(nodeID int) (<-chan Assignment, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Assignment, 8)
	if a, ok := m.latest[nodeID]; ok {
		ch <- a
	}
	if m.subs[nodeID] == nil {
		m.subs[nodeID] = make(map[chan Assignment]struct{})
	}
	m.subs[nodeID][ch] = struct{}{}
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if subs := m.subs[nodeID]; subs != nil {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(m.subs, nodeID)
			}
		}
	}
}

func placementOf(st registry.State) (map[int]int, map[int]int) {
	placement := make(map[int]int, len(st.Tasks))
	loads := make(map[int]int, len(st.Nodes))
	for _, id := range st.Nodes {
		loads[id] = 0
	}
	for _, t := range st.Tasks {
		if t.NodeID != registry.Pending {
			placement[t.ID] = t.NodeID
			loads[t.NodeID] += t.Consumption
		}
	}
	return placement, loads
}
