// Package stores persists registry snapshots so a controller restart can
// resume with the same nodes, tasks and placements.
package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

// ErrNoState is returned by Load when nothing has been saved yet.
var ErrNoState = errors.New("no saved state")

// Store saves and loads registry snapshots.
type Store interface {
	Load(ctx context.Context) (registry.State, error)
	Save(ctx context.Context, st registry.State) error
	Close() error
}

// Config selects and configures a Store backend.
type Config struct {
	Backend       string        `yaml:"backend"` // memory, redis or etcd
	RedisAddr     string        `yaml:"redis_addr"`
	EtcdEndpoints []string      `yaml:"etcd_endpoints"`
	Key           string        `yaml:"key"`
	Timeout       time.Duration `yaml:"timeout"`
}

const DefaultKey = "taskbalancer:state"

// Open returns the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, key)
	case "etcd":
		return NewEtcdStore(cfg.EtcdEndpoints, key, cfg.Timeout)
	default:
		return nil, fmt.Errorf("stores: unknown backend %q", cfg.Backend)
	}
}

// Memory keeps the last saved state in process. It is the default backend
// and the one tests use.
type Memory struct {
	mu    sync.Mutex
	state *registry.State
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (registry.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return registry.State{}, ErrNoState
	}
	return *m.state, nil
}

func (m *Memory) Save(ctx context.Context, st registry.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = &st
	return nil
}

func (m *Memory) Close() error { return nil }

// Persister saves the registry after every applied mutation. Saves are
// serialized and skip states older than the last one written.
type Persister struct {
	store   Store
	timeout time.Duration

	mu      sync.Mutex
	lastGen uint64
	saved   bool
}

func NewPersister(s Store, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Persister{store: s, timeout: timeout}
}

// Observe implements scheduler.Observer.
func (p *Persister) Observe(ev scheduler.Event) {
	if err := p.Save(ev.State); err != nil {
		logx.Log.Error().Err(err).Str("op", string(ev.Op)).Uint64("generation", ev.State.Generation).Msg("stores: save state")
	}
}

// Save writes st unless a newer generation was already written.
func (p *Persister) Save(st registry.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved && st.Generation <= p.lastGen {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Save(ctx, st); err != nil {
		return err
	}
	p.lastGen = st.Generation
	p.saved = true
	return nil
}

// Restore loads the saved state into svc. A store with nothing saved is
// not an error.
func Restore(ctx context.Context, s Store, svc *scheduler.Service) error {
	st, err := s.Load(ctx)
	if errors.Is(err, ErrNoState) {
		logx.Log.Info().Msg("stores: no saved state")
		return nil
	}
	if err != nil {
		return fmt.Errorf("stores: load state: %w", err)
	}
	if err := svc.Restore(st); err != nil {
		return fmt.Errorf("stores: restore state: %w", err)
	}
	logx.Log.Info().Int("nodes", len(st.Nodes)).Int("tasks", len(st.Tasks)).Uint64("generation", st.Generation).Msg("stores: state restored")
	return nil
}
