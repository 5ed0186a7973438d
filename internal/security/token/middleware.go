package token

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/VerteraIO/taskbalancer/internal/logx"
)

type ctxKey struct{}

// FromContext returns the claims stored by Middleware, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token. With an empty
// secret it lets every request through.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := FromHeader(r.Header.Get("Authorization"))
			if err == nil {
				var claims *Claims
				if claims, err = VerifyToken(secret, raw); err == nil {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
					return
				}
			}
			logx.Log.Debug().Err(err).Str("path", r.URL.Path).Msg("token: rejected request")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="taskbalancer"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		})
	}
}
