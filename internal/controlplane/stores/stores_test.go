package stores

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
)

func sampleState() registry.State {
	return registry.State{
		Generation: 7,
		PlanID:     "plan-3",
		Nodes:      []int{1, 2},
		Tasks: []registry.Task{
			{ID: 1, Consumption: 5, NodeID: 1},
			{ID: 2, Consumption: 3, NodeID: 2},
			{ID: 3, Consumption: 2, NodeID: registry.Pending},
		},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)

	require.NoError(t, m.Save(ctx, sampleState()))
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, mr.Addr(), "tb:test")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)

	require.NoError(t, s.Save(ctx, sampleState()))
	raw, err := mr.Get("tb:test")
	require.NoError(t, err)
	assert.True(t, strings.Contains(raw, `"planId":"plan-3"`))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
}

func TestRedisStoreBadDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("tb:test", "not json"))

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0", "tb:test")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoState)
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)

	opts, err = parseRedisURL("redis://user:secret@a:1,b:2/3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, opts.Addrs)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Nil(t, opts.TLSConfig)

	opts, err = parseRedisURL("rediss-sentinel://s1:26379/mymaster?db=2")
	require.NoError(t, err)
	assert.Equal(t, "mymaster", opts.MasterName)
	assert.Equal(t, 2, opts.DB)
	assert.NotNil(t, opts.TLSConfig)

	_, err = parseRedisURL("http://localhost")
	require.Error(t, err)
	_, err = parseRedisURL("redis://localhost/x")
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Config{Backend: "Redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	require.IsType(t, &RedisStore{}, s)
	assert.Equal(t, DefaultKey, s.(*RedisStore).key)
	s.Close()

	_, err = Open(ctx, Config{Backend: "etcd"})
	require.Error(t, err)

	_, err = Open(ctx, Config{Backend: "bolt"})
	require.Error(t, err)
}

func TestPersisterSavesAfterMutations(t *testing.T) {
	mem := NewMemory()
	p := NewPersister(mem, time.Second)
	svc := scheduler.New(scheduler.WithObserver(p))

	require.NoError(t, svc.Init())
	require.NoError(t, svc.RegisterNode(1))
	require.NoError(t, svc.AddTask(10, 4))
	_, err := svc.ScheduleTask(1)
	require.NoError(t, err)

	st, err := mem.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, svc.State(), st)
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, 1, st.Tasks[0].NodeID)

	// stale generations are skipped
	old := st
	old.Generation--
	old.Nodes = nil
	require.NoError(t, p.Save(old))
	st, err = mem.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, st.Nodes)
}

func TestRestoreIntoService(t *testing.T) {
	ctx := context.Background()
	svc := scheduler.New()

	// nothing saved
	require.NoError(t, Restore(ctx, NewMemory(), svc))
	assert.Empty(t, svc.Nodes())

	mem := NewMemory()
	require.NoError(t, mem.Save(ctx, sampleState()))
	require.NoError(t, Restore(ctx, mem, svc))
	assert.True(t, svc.HasNode(2))
	assert.Equal(t, 1, svc.PendingCount())

	bad := sampleState()
	bad.Tasks[0].NodeID = 99
	require.NoError(t, mem.Save(ctx, bad))
	require.Error(t, Restore(ctx, mem, svc))
}

func TestEtcdStore(t *testing.T) {
	ep := os.Getenv("TASKBALANCER_TEST_ETCD")
	if ep == "" {
		t.Skip("TASKBALANCER_TEST_ETCD not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewEtcdStore(strings.Split(ep, ","), "taskbalancer-test-"+time.Now().Format("150405.000"), 3*time.Second)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoState)
	require.NoError(t, s.Save(ctx, sampleState()))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
}
