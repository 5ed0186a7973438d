package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
)

type addTaskReq struct {
	TaskID      int `json:"taskId"`
	Consumption int `json:"consumption"`
}

type scheduleReq struct {
	Threshold int `json:"threshold"`
}

type taskListResp struct {
	statusResponse
	Tasks []registry.TaskInfo `json:"tasks"`
}

type scheduleResp struct {
	statusResponse
	Plan *scheduler.Plan `json:"plan,omitempty"`
}

// initSystem handles POST /system/init
func (a *API) initSystem(w http.ResponseWriter, r *http.Request) {
	writeResult(w, scheduler.OpInit, a.svc.Init())
}

// listTasks handles GET /tasks
func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.svc.QueryTaskStatus()
	resp := taskListResp{statusResponse: newStatusResponse(scheduler.OpQuery, err), Tasks: tasks}
	if resp.Tasks == nil {
		resp.Tasks = []registry.TaskInfo{}
	}
	writeJSON(w, httpCode(resp.Status), resp)
}

// addTask handles POST /tasks
func (a *API) addTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskReq
	if err := decode(r, &req); err != nil {
		writeBadBody(w, scheduler.StatusInvalidTaskID, err)
		return
	}
	writeResult(w, scheduler.OpAddTask, a.svc.AddTask(req.TaskID, req.Consumption))
}

// deleteTask handles DELETE /tasks/{taskId}
func (a *API) deleteTask(w http.ResponseWriter, r *http.Request) {
	err := a.svc.DeleteTask(parseID(chi.URLParam(r, "taskId")))
	writeResult(w, scheduler.OpDeleteTask, err)
}

// schedule handles POST /schedule
func (a *API) schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleReq
	if err := decode(r, &req); err != nil {
		writeBadBody(w, scheduler.StatusInvalidThreshold, err)
		return
	}
	plan, err := a.svc.ScheduleTask(req.Threshold)
	resp := scheduleResp{statusResponse: newStatusResponse(scheduler.OpSchedule, err)}
	if plan.Loads != nil {
		resp.Plan = &plan
	}
	writeJSON(w, httpCode(resp.Status), resp)
}
