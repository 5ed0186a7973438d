package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
)

type registerNodeReq struct {
	NodeID int `json:"nodeId"`
}

type nodeListResp struct {
	statusResponse
	Nodes []scheduler.NodeLoad `json:"nodes"`
}

// listNodes handles GET /nodes
func (a *API) listNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nodeListResp{
		statusResponse: statusResponse{Status: scheduler.StatusQuery},
		Nodes:          a.svc.Nodes(),
	})
}

// registerNode handles POST /nodes
func (a *API) registerNode(w http.ResponseWriter, r *http.Request) {
	var req registerNodeReq
	if err := decode(r, &req); err != nil {
		writeBadBody(w, scheduler.StatusInvalidNodeID, err)
		return
	}
	err := a.svc.RegisterNode(req.NodeID)
	writeResult(w, scheduler.OpRegisterNode, err)
}

// unregisterNode handles DELETE /nodes/{nodeId}
func (a *API) unregisterNode(w http.ResponseWriter, r *http.Request) {
	err := a.svc.UnregisterNode(parseID(chi.URLParam(r, "nodeId")))
	writeResult(w, scheduler.OpUnregisterNode, err)
}
