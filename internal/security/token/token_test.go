package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestIssueAndVerifyToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueToken(secret, "tbctl", 2*time.Minute)
	require.NoError(t, err)

	claims, err := VerifyToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "tbctl", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, time.Until(claims.ExpiresAt.Time) > 0)

	_, err = VerifyToken([]byte("other"), tok)
	require.Error(t, err)
	_, err = IssueToken(nil, "x", time.Minute)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestExpiredToken(t *testing.T) {
	secret := []byte("s")
	tok, err := IssueToken(secret, "x", -time.Minute)
	require.NoError(t, err)
	// negative ttl means no expiry claim
	_, err = VerifyToken(secret, tok)
	require.NoError(t, err)

	tok, err = IssueToken(secret, "x", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = VerifyToken(secret, tok)
	require.Error(t, err)
}

func TestFromHeader(t *testing.T) {
	got, err := FromHeader("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	got, err = FromHeader("bearer  xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", got)
	_, err = FromHeader("Basic abc")
	require.ErrorIs(t, err, ErrMissing)
	_, err = FromHeader("")
	require.ErrorIs(t, err, ErrMissing)
}

func TestMiddleware(t *testing.T) {
	secret := []byte("s3")
	var sub string
	h := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := FromContext(r.Context()); ok {
			sub = c.Subject
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/nodes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	tok, err := IssueToken(secret, "ops", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/nodes", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ops", sub)

	// no secret: open
	open := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnaryServerInterceptor(t *testing.T) {
	secret := []byte("g")
	guard := func(m string) bool { return m == "/svc/Mutate" }
	icpt := UnaryServerInterceptor(secret, guard)
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	_, err := icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Read"}, handler)
	require.NoError(t, err)

	_, err = icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Mutate"}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := IssueToken(secret, "agent", time.Minute)
	require.NoError(t, err)
	md, err := Bearer{Token: tok}.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(md))
	out, err := icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Mutate"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
