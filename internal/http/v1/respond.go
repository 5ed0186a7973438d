package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
)

type statusResponse struct {
	scheduler.Status
	Error string `json:"error,omitempty"`
}

func newStatusResponse(op scheduler.Op, err error) statusResponse {
	resp := statusResponse{Status: scheduler.StatusFor(op, err)}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// httpCode maps an operation status to the HTTP status it is served with.
func httpCode(st scheduler.Status) int {
	switch st {
	case scheduler.StatusRegistered, scheduler.StatusTaskAdded:
		return http.StatusCreated
	case scheduler.StatusInvalidThreshold,
		scheduler.StatusInvalidNodeID,
		scheduler.StatusInvalidTaskID,
		scheduler.StatusInvalidConsumption,
		scheduler.StatusInvalidOutputParam:
		return http.StatusBadRequest
	case scheduler.StatusNodeNotFound, scheduler.StatusTaskNotFound:
		return http.StatusNotFound
	case scheduler.StatusNodeRegistered, scheduler.StatusTaskAlreadyAdded:
		return http.StatusConflict
	case scheduler.StatusNoFeasiblePlan:
		return http.StatusUnprocessableEntity
	case scheduler.StatusNotImplemented:
		return http.StatusNotImplemented
	case scheduler.StatusInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, op scheduler.Op, err error) {
	resp := newStatusResponse(op, err)
	writeJSON(w, httpCode(resp.Status), resp)
}

// writeBadBody reports an undecodable request body using the status of
// the invalid input it stands for.
func writeBadBody(w http.ResponseWriter, st scheduler.Status, err error) {
	writeJSON(w, http.StatusBadRequest, statusResponse{Status: st, Error: "invalid request body: " + err.Error()})
}

// parseID returns 0 for anything that is not an int, which every
// operation rejects as an invalid id.
func parseID(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
