package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

const writeTimeout = 5 * time.Second

// watchAssignments handles GET /nodes/{nodeId}/assignments/watch. It
// upgrades to a websocket and streams the node's assignment after every
// committed plan, starting with the latest one. The socket is closed when
// the node is unregistered.
func (a *API) watchAssignments(w http.ResponseWriter, r *http.Request) {
	nodeID := parseID(chi.URLParam(r, "nodeId"))
	if !a.svc.HasNode(nodeID) {
		writeJSON(w, http.StatusNotFound, statusResponse{Status: scheduler.StatusNodeNotFound})
		return
	}
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	ch, cancel := a.dispatch.Subscribe(nodeID)
	defer cancel()
	if !a.svc.HasNode(nodeID) {
		_ = c.Close(websocket.StatusNormalClosure, "node unregistered")
		return
	}
	log := logx.Log.With().Int("node_id", nodeID).Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("assignment watch opened")

	ctx := c.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("assignment watch closed by peer")
			return
		case asg, ok := <-ch:
			if !ok {
				_ = c.Close(websocket.StatusNormalClosure, "node unregistered")
				return
			}
			wctx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c, asg)
			cancelWrite()
			if err != nil {
				log.Debug().Err(err).Msg("assignment watch write failed")
				return
			}
		}
	}
}
