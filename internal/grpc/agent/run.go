package agent

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

// Config configures Run.
type Config struct {
	NodeID     int
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// Unregister removes the node from the controller when Run returns.
	Unregister bool
	// OnAssignment is called for every assignment received, and with an
	// empty assignment when the controller unregisters the node. Optional.
	OnAssignment func(schedv1.Assignment)
}

// Run registers the node and follows its assignments until ctx is done,
// reconnecting with exponential backoff. A node that is already
// registered is reused. When the controller unregisters the node the
// stream ends and the node is registered again on the next attempt.
func Run(ctx context.Context, cli schedv1.SchedulerClient, cfg Config) error {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	log := logx.Log.With().Int("node_id", cfg.NodeID).Logger()
	if cfg.Unregister {
		defer func() {
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := cli.UnregisterNode(uctx, &schedv1.UnregisterNodeRequest{NodeID: cfg.NodeID}); err != nil {
				log.Warn().Err(err).Msg("agent unregister failed")
				return
			}
			log.Info().Msg("agent unregistered")
		}()
	}

	backoff := cfg.MinBackoff
	for {
		received, err := session(ctx, cli, cfg)
		if ctx.Err() != nil {
			return nil
		}
		if status.Code(err) == codes.InvalidArgument || status.Code(err) == codes.Unauthenticated {
			return err
		}
		if errors.Is(err, errStreamEnded) && cfg.OnAssignment != nil {
			// the node no longer holds any task
			cfg.OnAssignment(schedv1.Assignment{NodeID: cfg.NodeID, TaskIDs: []int{}})
		}
		if received {
			backoff = cfg.MinBackoff
		}
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("agent session ended")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

// session registers the node and reads assignments until the stream
// fails. It reports whether any assignment was received.
func session(ctx context.Context, cli schedv1.SchedulerClient, cfg Config) (bool, error) {
	log := logx.Log.With().Int("node_id", cfg.NodeID).Logger()
	_, err := cli.RegisterNode(ctx, &schedv1.RegisterNodeRequest{NodeID: cfg.NodeID})
	switch {
	case err == nil:
		log.Info().Msg("agent registered")
	case status.Code(err) == codes.AlreadyExists:
		log.Info().Msg("agent node already registered")
	default:
		return false, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := cli.WatchAssignments(ctx, &schedv1.WatchRequest{NodeID: cfg.NodeID})
	if err != nil {
		return false, err
	}
	received := false
	for {
		a, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return received, errStreamEnded
		}
		if err != nil {
			return received, err
		}
		received = true
		log.Info().Str("plan_id", a.PlanID).Ints("task_ids", a.TaskIDs).Int("load", a.Load).Msg("assignment received")
		if cfg.OnAssignment != nil {
			cfg.OnAssignment(*a)
		}
	}
}
