package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	openapi "github.com/VerteraIO/taskbalancer/api/openapi"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/dispatch"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/security/token"
)

// Options wires the v1 handlers to the scheduler.
type Options struct {
	Service        *scheduler.Service
	Dispatch       *dispatch.Manager // nil disables the assignment watch
	JWTSecret      []byte            // empty leaves mutating routes open
	RequestTimeout time.Duration
}

// API holds the dependencies of the v1 handlers.
type API struct {
	svc      *scheduler.Service
	dispatch *dispatch.Manager
}

// Router returns the chi.Router for REST API v1.
func Router(opts Options) chi.Router {
	svc := opts.Service
	if svc == nil {
		svc = scheduler.New()
	}
	a := &API{svc: svc, dispatch: opts.Dispatch}
	r := chi.NewRouter()

	// Docs (Swagger UI) and spec under the versioned prefix
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/api/v1/openapi.yaml"), // point Swagger UI at our embedded OpenAPI spec
	))
	r.Get("/openapi.yaml", serveOpenAPIStaticAsset)

	// Long-lived; kept out of the request timeout.
	if a.dispatch != nil {
		r.Get("/nodes/{nodeId}/assignments/watch", a.watchAssignments)
	}

	r.Group(func(g chi.Router) {
		if opts.RequestTimeout > 0 {
			g.Use(middleware.Timeout(opts.RequestTimeout))
		}
		g.Get("/nodes", a.listNodes)
		g.Get("/tasks", a.listTasks)

		g.Group(func(m chi.Router) {
			m.Use(token.Middleware(opts.JWTSecret))
			m.Post("/system/init", a.initSystem)
			m.Post("/nodes", a.registerNode)
			m.Delete("/nodes/{nodeId}", a.unregisterNode)
			m.Post("/tasks", a.addTask)
			m.Delete("/tasks/{taskId}", a.deleteTask)
			m.Post("/schedule", a.schedule)
		})
	})

	return r
}

func serveOpenAPIStaticAsset(w http.ResponseWriter, r *http.Request) {
	data, err := openapi.FS.ReadFile(openapi.V1)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read spec: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(data)
}
