package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
)

// EtcdStore keeps the registry snapshot as a JSON value under one key.
type EtcdStore struct {
	client *clientv3.Client
	key    string
}

// NewEtcdStore connects to the given endpoints. The client dials lazily;
// connection errors surface on the first Load or Save.
func NewEtcdStore(endpoints []string, key string, dialTimeout time.Duration) (*EtcdStore, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("etcd: no endpoints configured")
	}
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdStore{client: cli, key: "/" + key}, nil
}

func (e *EtcdStore) Load(ctx context.Context) (registry.State, error) {
	resp, err := e.client.Get(ctx, e.key)
	if err != nil {
		return registry.State{}, err
	}
	if len(resp.Kvs) == 0 {
		return registry.State{}, ErrNoState
	}
	var st registry.State
	if err := json.Unmarshal(resp.Kvs[0].Value, &st); err != nil {
		return registry.State{}, fmt.Errorf("etcd: decode state: %w", err)
	}
	return st, nil
}

func (e *EtcdStore) Save(ctx context.Context, st registry.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, e.key, string(b))
	return err
}

func (e *EtcdStore) Close() error { return e.client.Close() }
