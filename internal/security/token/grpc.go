package token

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Guard decides which gRPC methods need a token.
type Guard func(fullMethod string) bool

func authorize(ctx context.Context, secret []byte) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ctx, status.Error(codes.Unauthenticated, ErrMissing.Error())
	}
	raw, err := FromHeader(vals[0])
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	claims, err := VerifyToken(secret, raw)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	return context.WithValue(ctx, ctxKey{}, claims), nil
}

// UnaryServerInterceptor checks tokens on methods selected by guard. An
// empty secret disables the check.
func UnaryServerInterceptor(secret []byte, guard Guard) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if len(secret) == 0 || (guard != nil && !guard(info.FullMethod)) {
			return handler(ctx, req)
		}
		ctx, err := authorize(ctx, secret)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of
// UnaryServerInterceptor.
func StreamServerInterceptor(secret []byte, guard Guard) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if len(secret) == 0 || (guard != nil && !guard(info.FullMethod)) {
			return handler(srv, ss)
		}
		if _, err := authorize(ss.Context(), secret); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// Bearer attaches a token to outgoing gRPC calls.
type Bearer struct {
	Token  string
	Secure bool
}

func (b Bearer) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	if b.Token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + b.Token}, nil
}

func (b Bearer) RequireTransportSecurity() bool { return b.Secure }
