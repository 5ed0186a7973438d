// Package agent is the node-side gRPC client: it registers a node with the
// controller and follows the node's assignments.
package agent

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/VerteraIO/taskbalancer/internal/security/token"
)

// DialConfig describes how to reach the controller.
type DialConfig struct {
	Addr   string
	Token  string
	CACert string // empty dials without TLS
}

// Dial opens a client connection to the controller. The connection is
// established lazily on first use.
func Dial(cfg DialConfig, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{}
	if cfg.CACert != "" {
		creds, err := credentials.NewClientTLSFromFile(cfg.CACert, "")
		if err != nil {
			return nil, fmt.Errorf("grpc tls: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if cfg.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(token.Bearer{Token: cfg.Token, Secure: cfg.CACert != ""}))
	}
	return grpc.NewClient(cfg.Addr, append(opts, extra...)...)
}

// Status splits a scheduler gRPC error into its status code and name,
// e.g. "E007", "ERR_NODE_NOT_FOUND". ok is false for errors that do not
// carry one.
func Status(err error) (code, name string, ok bool) {
	st, isStatus := status.FromError(err)
	if !isStatus || err == nil {
		return "", "", false
	}
	head, _, found := strings.Cut(st.Message(), ":")
	if !found {
		return "", "", false
	}
	code, name, found = strings.Cut(head, " ")
	if !found || !strings.HasPrefix(code, "E") {
		return "", "", false
	}
	return code, name, true
}

// IsStatus reports whether err carries the given status name.
func IsStatus(err error, name string) bool {
	_, n, ok := Status(err)
	return ok && n == name
}

var errStreamEnded = errors.New("assignment stream ended")
