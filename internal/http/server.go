package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/dispatch"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	v1 "github.com/VerteraIO/taskbalancer/internal/http/v1"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

// Options configures the root router.
type Options struct {
	Service        *scheduler.Service
	Dispatch       *dispatch.Manager
	Gatherer       prometheus.Gatherer // nil disables /metrics
	AllowedOrigins []string
	JWTSecret      []byte
	RequestTimeout time.Duration
}

// NewServer builds the root router and mounts all versioned subrouters under /api/{version}.
func NewServer(opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Root-level docs: redirect to Swagger UI for v1
	r.Get("/docs", serveRootDocs)

	// Default 404: nudge callers toward versioned paths
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"Use a versioned path like /api/v1/...","supported":["v1"]}`))
	})

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Route("/api", func(api chi.Router) {
		api.Mount("/v1", v1.Router(v1.Options{
			Service:        opts.Service,
			Dispatch:       opts.Dispatch,
			JWTSecret:      opts.JWTSecret,
			RequestTimeout: timeout,
		}))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if zerolog.GlobalLevel() > zerolog.InfoLevel {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := logx.Log.Info()
		if status >= http.StatusInternalServerError {
			ev = logx.Log.Warn()
		}
		ev.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http")
	})
}

// serveRootDocs redirects to the Swagger UI of the latest API version.
func serveRootDocs(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/api/v1/docs/index.html", http.StatusFound)
}
