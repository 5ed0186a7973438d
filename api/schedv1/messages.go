// Package schedv1 defines the v1 gRPC contract of the scheduler. Messages
// are plain structs carried by the JSON codec registered in codec.go, so
// no generated code is needed.
package schedv1

type InitRequest struct{}

type RegisterNodeRequest struct {
	NodeID int `json:"nodeId"`
}

type UnregisterNodeRequest struct {
	NodeID int `json:"nodeId"`
}

type AddTaskRequest struct {
	TaskID      int `json:"taskId"`
	Consumption int `json:"consumption"`
}

type DeleteTaskRequest struct {
	TaskID int `json:"taskId"`
}

type ScheduleRequest struct {
	Threshold int `json:"threshold"`
}

type QueryRequest struct{}

type ListNodesRequest struct{}

type WatchRequest struct {
	NodeID int `json:"nodeId"`
}

// StatusReply carries the status of a successful operation. Failures are
// returned as gRPC errors whose message starts with the status code and
// name, e.g. "E005 ERR_NODE_ALREADY_REGISTERED: ...".
type StatusReply struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

type Plan struct {
	ID          string      `json:"planId"`
	Threshold   int         `json:"threshold"`
	Assignments map[int]int `json:"assignments"`
	Loads       map[int]int `json:"loads"`
	MaxDiff     int         `json:"maxDiff"`
}

type ScheduleReply struct {
	StatusReply
	Plan Plan `json:"plan"`
}

type TaskInfo struct {
	TaskID int `json:"taskId"`
	NodeID int `json:"nodeId"`
}

type QueryReply struct {
	StatusReply
	Tasks []TaskInfo `json:"tasks"`
}

type NodeLoad struct {
	NodeID int `json:"nodeId"`
	Load   int `json:"load"`
}

type ListNodesReply struct {
	Nodes []NodeLoad `json:"nodes"`
}

type Assignment struct {
	PlanID  string `json:"planId"`
	NodeID  int    `json:"nodeId"`
	TaskIDs []int  `json:"taskIds"`
	Load    int    `json:"load"`
}
