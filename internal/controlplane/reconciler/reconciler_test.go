package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
)

func TestTickPlacesPendingTasks(t *testing.T) {
	svc := scheduler.New()
	r := New(svc, 10, time.Second)

	if r.Tick() {
		t.Fatal("nothing pending; tick should be a no-op")
	}
	if err := svc.AddTask(1, 3); err != nil {
		t.Fatal(err)
	}
	if r.Tick() {
		t.Fatal("no nodes; tick should not commit")
	}
	if err := svc.RegisterNode(1); err != nil {
		t.Fatal(err)
	}
	if !r.Tick() {
		t.Fatal("expected tick to commit a plan")
	}
	got, _ := svc.QueryTaskStatus()
	if len(got) != 1 || got[0].NodeID != 1 {
		t.Fatalf("unexpected status: %+v", got)
	}
	if svc.PendingCount() != 0 {
		t.Fatal("expected no pending tasks")
	}
}

func TestStartRunsUntilCancelled(t *testing.T) {
	svc := scheduler.New()
	if err := svc.RegisterNode(1); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddTask(1, 1); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(svc, 1, 5*time.Millisecond).Start(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for svc.PendingCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("reconciler did not place the task")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	got, _ := svc.QueryTaskStatus()
	if got[0].NodeID == registry.Pending {
		t.Fatal("task still pending")
	}
}

func TestStartDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		New(scheduler.New(), 0, time.Second).Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("disabled reconciler should return immediately")
	}
}
