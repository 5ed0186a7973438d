package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/dispatch"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/grpc/controller"
)

func startController(t *testing.T) (schedv1.SchedulerClient, *scheduler.Service) {
	t.Helper()
	m := dispatch.NewManager()
	svc := scheduler.New(scheduler.WithObserver(m))
	gs, err := controller.NewServer(controller.NewSchedulerServer(svc, m), controller.Options{})
	require.NoError(t, err)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := Dial(DialConfig{Addr: "passthrough:///bufnet"},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return schedv1.NewSchedulerClient(conn), svc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond)
}

func TestRunRegistersAndFollowsAssignments(t *testing.T) {
	cli, svc := startController(t)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan schedv1.Assignment, 64)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cli, Config{
			NodeID:       3,
			MinBackoff:   10 * time.Millisecond,
			MaxBackoff:   50 * time.Millisecond,
			Unregister:   true,
			OnAssignment: func(a schedv1.Assignment) { got <- a },
		})
	}()

	waitFor(t, func() bool { return svc.HasNode(3) })
	require.NoError(t, svc.AddTask(1, 5))

	// the watch may subscribe after the first schedule; retry until it lands
	var a schedv1.Assignment
	waitFor(t, func() bool {
		if _, err := svc.ScheduleTask(1); err != nil {
			return false
		}
		select {
		case a = <-got:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	})
	assert.Equal(t, 3, a.NodeID)
	assert.Equal(t, []int{1}, a.TaskIDs)

	// controller drops the node: the agent is told to drop its tasks,
	// then registers the node again
	require.NoError(t, svc.UnregisterNode(3))
	waitFor(t, func() bool {
		for {
			select {
			case a = <-got:
				if a.PlanID == "" && len(a.TaskIDs) == 0 {
					return true
				}
			default:
				return false
			}
		}
	})
	assert.Equal(t, 3, a.NodeID)
	waitFor(t, func() bool { return svc.HasNode(3) })

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, svc.HasNode(3), "node should be unregistered on exit")
}

func TestRunStopsOnInvalidNode(t *testing.T) {
	cli, _ := startController(t)
	err := Run(context.Background(), cli, Config{NodeID: 0, MinBackoff: time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.True(t, IsStatus(err, "ERR_INVALID_NODE_ID"))
}

func TestStatus(t *testing.T) {
	code, name, ok := Status(status.Error(codes.NotFound, "E007 ERR_NODE_NOT_FOUND: unregister node 4: node not found"))
	require.True(t, ok)
	assert.Equal(t, "E007", code)
	assert.Equal(t, "ERR_NODE_NOT_FOUND", name)

	_, _, ok = Status(status.Error(codes.Unavailable, "connection refused"))
	assert.False(t, ok)
	_, _, ok = Status(nil)
	assert.False(t, ok)
}
