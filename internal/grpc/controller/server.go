// Package controller serves the scheduler over gRPC.
package controller

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/dispatch"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/logx"
	"github.com/VerteraIO/taskbalancer/internal/security/token"
)

type SchedulerServer struct {
	schedv1.UnimplementedSchedulerServer
	svc      *scheduler.Service
	dispatch *dispatch.Manager
}

func NewSchedulerServer(svc *scheduler.Service, d *dispatch.Manager) *SchedulerServer {
	return &SchedulerServer{svc: svc, dispatch: d}
}

// Options configures NewServer.
type Options struct {
	JWTSecret []byte
	TLSCert   string
	TLSKey    string
}

// NewServer builds a grpc.Server with the scheduler and health services
// registered. Mutating methods require a bearer token when a secret is
// set.
func NewServer(s *SchedulerServer, opts Options) (*grpc.Server, error) {
	sopts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(token.UnaryServerInterceptor(opts.JWTSecret, schedv1.Mutating)),
		grpc.ChainStreamInterceptor(token.StreamServerInterceptor(opts.JWTSecret, schedv1.Mutating)),
	}
	if opts.TLSCert != "" || opts.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(opts.TLSCert, opts.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("grpc tls: %w", err)
		}
		sopts = append(sopts, grpc.Creds(creds))
	}
	gs := grpc.NewServer(sopts...)
	schedv1.RegisterSchedulerServer(gs, s)

	hs := health.NewServer()
	hs.SetServingStatus(schedv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs, nil
}

// Serve listens on addr and serves gs until ctx is done, then stops
// gracefully.
func Serve(ctx context.Context, addr string, gs *grpc.Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logx.Log.Info().Str("addr", lis.Addr().String()).Msg("gRPC controller listening")
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// grpcCode maps an operation status to the gRPC code it is returned with.
func grpcCode(st scheduler.Status) codes.Code {
	switch st {
	case scheduler.StatusInvalidThreshold,
		scheduler.StatusInvalidNodeID,
		scheduler.StatusInvalidTaskID,
		scheduler.StatusInvalidConsumption,
		scheduler.StatusInvalidOutputParam:
		return codes.InvalidArgument
	case scheduler.StatusNodeNotFound, scheduler.StatusTaskNotFound:
		return codes.NotFound
	case scheduler.StatusNodeRegistered, scheduler.StatusTaskAlreadyAdded:
		return codes.AlreadyExists
	case scheduler.StatusNoFeasiblePlan:
		return codes.FailedPrecondition
	case scheduler.StatusNotImplemented:
		return codes.Unimplemented
	}
	return codes.Internal
}

func reply(op scheduler.Op, err error) (*schedv1.StatusReply, error) {
	st := scheduler.StatusFor(op, err)
	if err != nil {
		return nil, status.Errorf(grpcCode(st), "%s %s: %v", st.Code, st.Name, err)
	}
	return &schedv1.StatusReply{Code: st.Code, Status: st.Name}, nil
}

func (s *SchedulerServer) Init(ctx context.Context, _ *schedv1.InitRequest) (*schedv1.StatusReply, error) {
	return reply(scheduler.OpInit, s.svc.Init())
}

func (s *SchedulerServer) RegisterNode(ctx context.Context, req *schedv1.RegisterNodeRequest) (*schedv1.StatusReply, error) {
	return reply(scheduler.OpRegisterNode, s.svc.RegisterNode(req.NodeID))
}

func (s *SchedulerServer) UnregisterNode(ctx context.Context, req *schedv1.UnregisterNodeRequest) (*schedv1.StatusReply, error) {
	return reply(scheduler.OpUnregisterNode, s.svc.UnregisterNode(req.NodeID))
}

func (s *SchedulerServer) AddTask(ctx context.Context, req *schedv1.AddTaskRequest) (*schedv1.StatusReply, error) {
	return reply(scheduler.OpAddTask, s.svc.AddTask(req.TaskID, req.Consumption))
}

func (s *SchedulerServer) DeleteTask(ctx context.Context, req *schedv1.DeleteTaskRequest) (*schedv1.StatusReply, error) {
	return reply(scheduler.OpDeleteTask, s.svc.DeleteTask(req.TaskID))
}

func (s *SchedulerServer) ScheduleTask(ctx context.Context, req *schedv1.ScheduleRequest) (*schedv1.ScheduleReply, error) {
	plan, err := s.svc.ScheduleTask(req.Threshold)
	st, err := reply(scheduler.OpSchedule, err)
	if err != nil {
		return nil, err
	}
	return &schedv1.ScheduleReply{
		StatusReply: *st,
		Plan: schedv1.Plan{
			ID:          plan.ID,
			Threshold:   plan.Threshold,
			Assignments: plan.Assignments,
			Loads:       plan.Loads,
			MaxDiff:     plan.MaxDiff,
		},
	}, nil
}

func (s *SchedulerServer) QueryTaskStatus(ctx context.Context, _ *schedv1.QueryRequest) (*schedv1.QueryReply, error) {
	tasks, err := s.svc.QueryTaskStatus()
	st, err := reply(scheduler.OpQuery, err)
	if err != nil {
		return nil, err
	}
	out := &schedv1.QueryReply{StatusReply: *st, Tasks: make([]schedv1.TaskInfo, len(tasks))}
	for i, t := range tasks {
		out.Tasks[i] = schedv1.TaskInfo{TaskID: t.TaskID, NodeID: t.NodeID}
	}
	return out, nil
}

func (s *SchedulerServer) ListNodes(ctx context.Context, _ *schedv1.ListNodesRequest) (*schedv1.ListNodesReply, error) {
	nodes := s.svc.Nodes()
	out := &schedv1.ListNodesReply{Nodes: make([]schedv1.NodeLoad, len(nodes))}
	for i, n := range nodes {
		out.Nodes[i] = schedv1.NodeLoad{NodeID: n.NodeID, Load: n.Load}
	}
	return out, nil
}

// WatchAssignments streams the node's assignments, starting with the
// latest one. The stream ends cleanly when the node is unregistered.
func (s *SchedulerServer) WatchAssignments(req *schedv1.WatchRequest, stream schedv1.Scheduler_WatchAssignmentsServer) error {
	if s.dispatch == nil {
		return status.Error(codes.Unimplemented, "assignment dispatch disabled")
	}
	if !s.svc.HasNode(req.NodeID) {
		st := scheduler.StatusNodeNotFound
		return status.Errorf(codes.NotFound, "%s %s: node %d", st.Code, st.Name, req.NodeID)
	}
	ch, unsubscribe := s.dispatch.Subscribe(req.NodeID)
	defer unsubscribe()
	if !s.svc.HasNode(req.NodeID) {
		return nil
	}
	logx.Log.Info().Int("node_id", req.NodeID).Msg("assignment watch opened")
	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case a, ok := <-ch:
			if !ok {
				logx.Log.Info().Int("node_id", req.NodeID).Msg("assignment watch closed: node unregistered")
				return nil
			}
			msg := &schedv1.Assignment{PlanID: a.PlanID, NodeID: a.NodeID, TaskIDs: a.TaskIDs, Load: a.Load}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
