package schedv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "taskbalancer.sched.v1.Scheduler"

const (
	MethodInit             = "/" + ServiceName + "/Init"
	MethodRegisterNode     = "/" + ServiceName + "/RegisterNode"
	MethodUnregisterNode   = "/" + ServiceName + "/UnregisterNode"
	MethodAddTask          = "/" + ServiceName + "/AddTask"
	MethodDeleteTask       = "/" + ServiceName + "/DeleteTask"
	MethodScheduleTask     = "/" + ServiceName + "/ScheduleTask"
	MethodQueryTaskStatus  = "/" + ServiceName + "/QueryTaskStatus"
	MethodListNodes        = "/" + ServiceName + "/ListNodes"
	MethodWatchAssignments = "/" + ServiceName + "/WatchAssignments"
)

// Mutating reports whether fullMethod changes scheduler state.
func Mutating(fullMethod string) bool {
	switch fullMethod {
	case MethodInit, MethodRegisterNode, MethodUnregisterNode, MethodAddTask, MethodDeleteTask, MethodScheduleTask:
		return true
	}
	return false
}

// SchedulerServer is the server API for the Scheduler service.
type SchedulerServer interface {
	Init(context.Context, *InitRequest) (*StatusReply, error)
	RegisterNode(context.Context, *RegisterNodeRequest) (*StatusReply, error)
	UnregisterNode(context.Context, *UnregisterNodeRequest) (*StatusReply, error)
	AddTask(context.Context, *AddTaskRequest) (*StatusReply, error)
	DeleteTask(context.Context, *DeleteTaskRequest) (*StatusReply, error)
	ScheduleTask(context.Context, *ScheduleRequest) (*ScheduleReply, error)
	QueryTaskStatus(context.Context, *QueryRequest) (*QueryReply, error)
	ListNodes(context.Context, *ListNodesRequest) (*ListNodesReply, error)
	WatchAssignments(*WatchRequest, Scheduler_WatchAssignmentsServer) error
}

// UnimplementedSchedulerServer can be embedded to have forward compatible implementations.
type UnimplementedSchedulerServer struct{}

func (UnimplementedSchedulerServer) Init(context.Context, *InitRequest) (*StatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Init not implemented")
}
func (UnimplementedSchedulerServer) RegisterNode(context.Context, *RegisterNodeRequest) (*StatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterNode not implemented")
}
func (UnimplementedSchedulerServer) UnregisterNode(context.Context, *UnregisterNodeRequest) (*StatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method UnregisterNode not implemented")
}
func (UnimplementedSchedulerServer) AddTask(context.Context, *AddTaskRequest) (*StatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method AddTask not implemented")
}
func (UnimplementedSchedulerServer) DeleteTask(context.Context, *DeleteTaskRequest) (*StatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteTask not implemented")
}
func (UnimplementedSchedulerServer) ScheduleTask(context.Context, *ScheduleRequest) (*ScheduleReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ScheduleTask not implemented")
}
func (UnimplementedSchedulerServer) QueryTaskStatus(context.Context, *QueryRequest) (*QueryReply, error) {
	return nil, status.Error(codes.Unimplemented, "method QueryTaskStatus not implemented")
}
func (UnimplementedSchedulerServer) ListNodes(context.Context, *ListNodesRequest) (*ListNodesReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNodes not implemented")
}
func (UnimplementedSchedulerServer) WatchAssignments(*WatchRequest, Scheduler_WatchAssignmentsServer) error {
	return status.Error(codes.Unimplemented, "method WatchAssignments not implemented")
}

type Scheduler_WatchAssignmentsServer interface {
	Send(*Assignment) error
	grpc.ServerStream
}

type schedulerWatchAssignmentsServer struct {
	grpc.ServerStream
}

func (x *schedulerWatchAssignmentsServer) Send(m *Assignment) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterSchedulerServer registers srv on s.
func RegisterSchedulerServer(s grpc.ServiceRegistrar, srv SchedulerServer) {
	s.RegisterService(&Scheduler_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(SchedulerServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SchedulerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchAssignmentsHandler(srv any, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SchedulerServer).WatchAssignments(m, &schedulerWatchAssignmentsServer{stream})
}

// Scheduler_ServiceDesc is the grpc.ServiceDesc for the Scheduler service.
var Scheduler_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Init", Handler: unaryHandler(MethodInit, SchedulerServer.Init)},
		{MethodName: "RegisterNode", Handler: unaryHandler(MethodRegisterNode, SchedulerServer.RegisterNode)},
		{MethodName: "UnregisterNode", Handler: unaryHandler(MethodUnregisterNode, SchedulerServer.UnregisterNode)},
		{MethodName: "AddTask", Handler: unaryHandler(MethodAddTask, SchedulerServer.AddTask)},
		{MethodName: "DeleteTask", Handler: unaryHandler(MethodDeleteTask, SchedulerServer.DeleteTask)},
		{MethodName: "ScheduleTask", Handler: unaryHandler(MethodScheduleTask, SchedulerServer.ScheduleTask)},
		{MethodName: "QueryTaskStatus", Handler: unaryHandler(MethodQueryTaskStatus, SchedulerServer.QueryTaskStatus)},
		{MethodName: "ListNodes", Handler: unaryHandler(MethodListNodes, SchedulerServer.ListNodes)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchAssignments",
			Handler:       watchAssignmentsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "taskbalancer/sched/v1",
}
