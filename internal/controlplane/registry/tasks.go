package registry

import (
	"cmp"
	"slices"
)

// Task is a unit of work with a fixed consumption weight. NodeID is Pending
// until a plan places it.
type Task struct {
	ID          int `json:"taskId"`
	Consumption int `json:"consumption"`
	NodeID      int `json:"nodeId"`
}

// TaskInfo is the query view of a task.
type TaskInfo struct {
	TaskID int `json:"taskId"`
	NodeID int `json:"nodeId"`
}

// AddTask inserts a pending task.
func (r *Registry) AddTask(id, consumption int) error {
	if id <= 0 {
		return ErrInvalidTaskID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; ok {
		return ErrTaskExists
	}
	if consumption < 0 {
		return ErrInvalidConsumption
	}
	r.tasks[id] = &Task{ID: id, Consumption: consumption, NodeID: Pending}
	r.generation++
	return nil
}

// DeleteTask removes the task wherever it is placed.
func (r *Registry) DeleteTask(id int) error {
	if id <= 0 {
		return ErrInvalidTaskID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	r.generation++
	return nil
}

// Get returns a copy of the task.
func (r *Registry) Get(id int) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Snapshot returns every task ordered by ascending id.
func (r *Registry) Snapshot() []TaskInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaskInfo, 0, len(r.tasks))
	for _, t := range r.taskList() {
		out = append(out, TaskInfo{TaskID: t.ID, NodeID: t.NodeID})
	}
	return out
}

// PendingCount returns how many tasks have no placement.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tasks {
		if t.NodeID == Pending {
			n++
		}
	}
	return n
}

// taskList must be called with r.mu held.
func (r *Registry) taskList() []Task {
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Task) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
