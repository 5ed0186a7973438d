package schedv1

import (
	"context"

	"google.golang.org/grpc"
)

// SchedulerClient is the client API for the Scheduler service.
type SchedulerClient interface {
	Init(ctx context.Context, in *InitRequest, opts ...grpc.CallOption) (*StatusReply, error)
	RegisterNode(ctx context.Context, in *RegisterNodeRequest, opts ...grpc.CallOption) (*StatusReply, error)
	UnregisterNode(ctx context.Context, in *UnregisterNodeRequest, opts ...grpc.CallOption) (*StatusReply, error)
	AddTask(ctx context.Context, in *AddTaskRequest, opts ...grpc.CallOption) (*StatusReply, error)
	DeleteTask(ctx context.Context, in *DeleteTaskRequest, opts ...grpc.CallOption) (*StatusReply, error)
	ScheduleTask(ctx context.Context, in *ScheduleRequest, opts ...grpc.CallOption) (*ScheduleReply, error)
	QueryTaskStatus(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryReply, error)
	ListNodes(ctx context.Context, in *ListNodesRequest, opts ...grpc.CallOption) (*ListNodesReply, error)
	WatchAssignments(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (Scheduler_WatchAssignmentsClient, error)
}

type schedulerClient struct {
	cc grpc.ClientConnInterface
}

// NewSchedulerClient returns a client that speaks the JSON codec on cc.
func NewSchedulerClient(cc grpc.ClientConnInterface) SchedulerClient {
	return &schedulerClient{cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulerClient) Init(ctx context.Context, in *InitRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodInit, in, opts)
}

func (c *schedulerClient) RegisterNode(ctx context.Context, in *RegisterNodeRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodRegisterNode, in, opts)
}

func (c *schedulerClient) UnregisterNode(ctx context.Context, in *UnregisterNodeRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodUnregisterNode, in, opts)
}

func (c *schedulerClient) AddTask(ctx context.Context, in *AddTaskRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodAddTask, in, opts)
}

func (c *schedulerClient) DeleteTask(ctx context.Context, in *DeleteTaskRequest, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[StatusReply](ctx, c.cc, MethodDeleteTask, in, opts)
}

func (c *schedulerClient) ScheduleTask(ctx context.Context, in *ScheduleRequest, opts ...grpc.CallOption) (*ScheduleReply, error) {
	return invoke[ScheduleReply](ctx, c.cc, MethodScheduleTask, in, opts)
}

func (c *schedulerClient) QueryTaskStatus(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryReply, error) {
	return invoke[QueryReply](ctx, c.cc, MethodQueryTaskStatus, in, opts)
}

func (c *schedulerClient) ListNodes(ctx context.Context, in *ListNodesRequest, opts ...grpc.CallOption) (*ListNodesReply, error) {
	return invoke[ListNodesReply](ctx, c.cc, MethodListNodes, in, opts)
}

type Scheduler_WatchAssignmentsClient interface {
	Recv() (*Assignment, error)
	grpc.ClientStream
}

type schedulerWatchAssignmentsClient struct {
	grpc.ClientStream
}

func (x *schedulerWatchAssignmentsClient) Recv() (*Assignment, error) {
	m := new(Assignment)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *schedulerClient) WatchAssignments(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (Scheduler_WatchAssignmentsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Scheduler_ServiceDesc.Streams[0], MethodWatchAssignments, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &schedulerWatchAssignmentsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
