package executor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
)

type recorder struct {
	started, stopped []int
	failStart        map[int]bool
}

func (r *recorder) Start(id int) error {
	if r.failStart[id] {
		return errors.New("boom")
	}
	r.started = append(r.started, id)
	return nil
}

func (r *recorder) Stop(id int) error {
	r.stopped = append(r.stopped, id)
	return nil
}

func TestApplyDiffsAssignments(t *testing.T) {
	rec := &recorder{failStart: map[int]bool{}}
	ap := NewApplier(rec)

	started, stopped := ap.Apply(schedv1.Assignment{PlanID: "p1", TaskIDs: []int{3, 1}})
	assert.Equal(t, []int{1, 3}, started)
	assert.Empty(t, stopped)

	started, stopped = ap.Apply(schedv1.Assignment{PlanID: "p2", TaskIDs: []int{3, 4}})
	assert.Equal(t, []int{4}, started)
	assert.Equal(t, []int{1}, stopped)
	assert.Equal(t, []int{3, 4}, ap.Running())
	assert.Equal(t, "p2", ap.PlanID())

	ap.StopAll()
	assert.Empty(t, ap.Running())
	assert.ElementsMatch(t, []int{1, 3, 4}, rec.stopped)
}

func TestApplyRetriesFailedStart(t *testing.T) {
	rec := &recorder{failStart: map[int]bool{2: true}}
	ap := NewApplier(rec)

	started, _ := ap.Apply(schedv1.Assignment{TaskIDs: []int{1, 2}})
	assert.Equal(t, []int{1}, started)

	delete(rec.failStart, 2)
	started, _ = ap.Apply(schedv1.Assignment{TaskIDs: []int{1, 2}})
	assert.Equal(t, []int{2}, started)
	assert.Equal(t, []int{1, 2}, ap.Running())
}

func TestNilExecutorLogs(t *testing.T) {
	ap := NewApplier(nil)
	started, _ := ap.Apply(schedv1.Assignment{TaskIDs: []int{5}})
	assert.Equal(t, []int{5}, started)
}
