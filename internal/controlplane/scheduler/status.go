package scheduler

import (
	"errors"
	"strings"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/balancer"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
)

// Op names a scheduler operation.
type Op string

const (
	OpInit           Op = "init"
	OpRegisterNode   Op = "register_node"
	OpUnregisterNode Op = "unregister_node"
	OpAddTask        Op = "add_task"
	OpDeleteTask     Op = "delete_task"
	OpSchedule       Op = "schedule"
	OpQuery          Op = "query"
	OpRestore        Op = "restore"
)

// Status is the outcome of one operation. Code keeps the numeric codes
// used by existing clients; Name is the symbolic form.
type Status struct {
	Code string `json:"code"`
	Name string `json:"status"`
}

var (
	StatusNotImplemented     = Status{"E000", "ERR_NOT_IMPLEMENTED"}
	StatusInit               = Status{"E001", "OK_INIT"}
	StatusInvalidThreshold   = Status{"E002", "ERR_INVALID_THRESHOLD"}
	StatusRegistered         = Status{"E003", "OK_REGISTERED"}
	StatusInvalidNodeID      = Status{"E004", "ERR_INVALID_NODE_ID"}
	StatusNodeRegistered     = Status{"E005", "ERR_NODE_ALREADY_REGISTERED"}
	StatusUnregistered       = Status{"E006", "OK_UNREGISTERED"}
	StatusNodeNotFound       = Status{"E007", "ERR_NODE_NOT_FOUND"}
	StatusTaskAdded          = Status{"E008", "OK_TASK_ADDED"}
	StatusInvalidTaskID      = Status{"E009", "ERR_INVALID_TASK_ID"}
	StatusTaskAlreadyAdded   = Status{"E010", "ERR_TASK_ALREADY_ADDED"}
	StatusTaskDeleted        = Status{"E011", "OK_TASK_DELETED"}
	StatusTaskNotFound       = Status{"E012", "ERR_TASK_NOT_FOUND"}
	StatusScheduled          = Status{"E013", "OK_SCHEDULED"}
	StatusNoFeasiblePlan     = Status{"E014", "ERR_NO_FEASIBLE_PLAN"}
	StatusQuery              = Status{"E015", "OK_QUERY"}
	StatusInvalidOutputParam = Status{"E016", "ERR_INVALID_OUTPUT_PARAM"}
	StatusInvalidConsumption = Status{"E017", "ERR_INVALID_CONSUMPTION"}
	StatusRestored           = Status{"E018", "OK_RESTORED"}
	StatusInternal           = Status{"E500", "ERR_INTERNAL"}
)

var (
	ErrInvalidThreshold = balancer.ErrInvalidThreshold
	ErrInvalidOutput    = errors.New("invalid output parameter")
)

// OK reports whether the status is a success.
func (s Status) OK() bool { return strings.HasPrefix(s.Name, "OK_") }

func (s Status) String() string { return s.Code + " " + s.Name }

var okStatus = map[Op]Status{
	OpInit:           StatusInit,
	OpRegisterNode:   StatusRegistered,
	OpUnregisterNode: StatusUnregistered,
	OpAddTask:        StatusTaskAdded,
	OpDeleteTask:     StatusTaskDeleted,
	OpSchedule:       StatusScheduled,
	OpQuery:          StatusQuery,
	OpRestore:        StatusRestored,
}

var errStatus = []struct {
	err    error
	status Status
}{
	{ErrInvalidThreshold, StatusInvalidThreshold},
	{registry.ErrInvalidNodeID, StatusInvalidNodeID},
	{registry.ErrNodeExists, StatusNodeRegistered},
	{registry.ErrNodeNotFound, StatusNodeNotFound},
	{registry.ErrInvalidTaskID, StatusInvalidTaskID},
	{registry.ErrTaskExists, StatusTaskAlreadyAdded},
	{registry.ErrTaskNotFound, StatusTaskNotFound},
	{registry.ErrInvalidConsumption, StatusInvalidConsumption},
	{balancer.ErrInfeasible, StatusNoFeasiblePlan},
	{balancer.ErrNoNodes, StatusNoFeasiblePlan},
	{ErrInvalidOutput, StatusInvalidOutputParam},
}

// StatusFor maps the result of op to exactly one status.
func StatusFor(op Op, err error) Status {
	if err == nil {
		if s, ok := okStatus[op]; ok {
			return s
		}
		return StatusNotImplemented
	}
	for _, e := range errStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return StatusInternal
}
