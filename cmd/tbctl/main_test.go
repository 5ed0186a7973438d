package main

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/dispatch"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/grpc/agent"
	"github.com/VerteraIO/taskbalancer/internal/grpc/controller"
)

func newClient(t *testing.T) schedv1.SchedulerClient {
	t.Helper()
	m := dispatch.NewManager()
	svc := scheduler.New(scheduler.WithObserver(m))
	gs, err := controller.NewServer(controller.NewSchedulerServer(svc, m), controller.Options{})
	require.NoError(t, err)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)
	conn, err := agent.Dial(agent.DialConfig{Addr: "passthrough:///bufnet"},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return schedv1.NewSchedulerClient(conn)
}

func TestRunCommands(t *testing.T) {
	cli := newClient(t)
	ctx := context.Background()
	exec := func(args ...string) (string, error) {
		var out bytes.Buffer
		err := run(ctx, cli, args, 5*time.Second, &out)
		return out.String(), err
	}

	out, err := exec("init")
	require.NoError(t, err)
	assert.Contains(t, out, "OK_INIT")

	_, err = exec("register-node", "1")
	require.NoError(t, err)
	_, err = exec("add-task", "1", "4")
	require.NoError(t, err)

	out, err = exec("schedule", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "OK_SCHEDULED")

	out, err = exec("query")
	require.NoError(t, err)
	assert.Contains(t, out, `"nodeId": 1`)

	out, err = exec("nodes")
	require.NoError(t, err)
	assert.Contains(t, out, `"load": 4`)

	out, err = exec("register-node", "1")
	require.Error(t, err)
	assert.Contains(t, out, "ERR_NODE_ALREADY_REGISTERED")
}

func TestRunUsageErrors(t *testing.T) {
	cli := newClient(t)
	var out bytes.Buffer
	err := run(context.Background(), cli, []string{"add-task", "1"}, time.Second, &out)
	require.ErrorIs(t, err, errUsage)
	err = run(context.Background(), cli, []string{"frobnicate"}, time.Second, &out)
	require.ErrorIs(t, err, errUsage)
	err = run(context.Background(), cli, []string{"delete-task", "x"}, time.Second, &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errUsage)
}
