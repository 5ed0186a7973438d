// Command tbctl drives a taskbalancer controller over gRPC.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/grpc/agent"
	"github.com/VerteraIO/taskbalancer/internal/security/token"
)

const usage = `usage: tbctl [flags] <command> [args]

commands:
  init                        clear all nodes and tasks
  register-node <id>          register a node
  unregister-node <id>        unregister a node; its tasks become pending
  add-task <id> <consumption> add a pending task
  delete-task <id>            delete a task
  schedule <threshold>        recompute the placement of every task
  query                       list tasks and their nodes (-1 = pending)
  nodes                       list nodes and their loads
  watch <node-id>             stream a node's assignments
  token <subject>             issue a bearer token (needs -jwt-secret)

flags:
`

func main() {
	fs := flag.NewFlagSet("tbctl", flag.ExitOnError)
	addr := fs.String("addr", envOr("TASKBALANCER_CONTROLLER_ADDR", "localhost:9090"), "controller gRPC address")
	tok := fs.String("token", os.Getenv("TASKBALANCER_TOKEN"), "bearer token for mutating commands")
	caCert := fs.String("ca-cert", os.Getenv("TASKBALANCER_CA_CERT"), "CA certificate for a TLS controller")
	secret := fs.String("jwt-secret", os.Getenv("TASKBALANCER_JWT_SECRET"), "secret used by the token command")
	ttl := fs.Duration("ttl", 24*time.Hour, "lifetime of tokens issued by the token command; 0 for no expiry")
	timeout := fs.Duration("timeout", 10*time.Second, "per-call timeout")
	fs.Usage = func() {
		_, _ = fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	if args[0] == "token" {
		if len(args) != 2 {
			fs.Usage()
			os.Exit(2)
		}
		s, err := token.IssueToken([]byte(*secret), args[1], *ttl)
		if err != nil {
			fail(err)
		}
		fmt.Println(s)
		return
	}

	conn, err := agent.Dial(agent.DialConfig{Addr: *addr, Token: *tok, CACert: *caCert})
	if err != nil {
		fail(err)
	}
	defer conn.Close()
	cli := schedv1.NewSchedulerClient(conn)

	if err := run(context.Background(), cli, args, *timeout, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		fail(err)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, cli schedv1.SchedulerClient, args []string, timeout time.Duration, out io.Writer) error {
	ints, err := intArgs(args[1:])
	if err != nil {
		return err
	}
	want := map[string]int{
		"init": 0, "register-node": 1, "unregister-node": 1, "add-task": 2, "delete-task": 1,
		"schedule": 1, "query": 0, "nodes": 0, "watch": 1,
	}
	n, ok := want[args[0]]
	if !ok || n != len(ints) {
		return errUsage
	}

	if args[0] == "watch" {
		stream, err := cli.WatchAssignments(ctx, &schedv1.WatchRequest{NodeID: ints[0]})
		if err != nil {
			return err
		}
		for {
			a, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := printJSON(out, a); err != nil {
				return err
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var resp any
	switch args[0] {
	case "init":
		resp, err = cli.Init(ctx, &schedv1.InitRequest{})
	case "register-node":
		resp, err = cli.RegisterNode(ctx, &schedv1.RegisterNodeRequest{NodeID: ints[0]})
	case "unregister-node":
		resp, err = cli.UnregisterNode(ctx, &schedv1.UnregisterNodeRequest{NodeID: ints[0]})
	case "add-task":
		resp, err = cli.AddTask(ctx, &schedv1.AddTaskRequest{TaskID: ints[0], Consumption: ints[1]})
	case "delete-task":
		resp, err = cli.DeleteTask(ctx, &schedv1.DeleteTaskRequest{TaskID: ints[0]})
	case "schedule":
		resp, err = cli.ScheduleTask(ctx, &schedv1.ScheduleRequest{Threshold: ints[0]})
	case "query":
		resp, err = cli.QueryTaskStatus(ctx, &schedv1.QueryRequest{})
	case "nodes":
		resp, err = cli.ListNodes(ctx, &schedv1.ListNodesRequest{})
	}
	if err != nil {
		if code, name, ok := agent.Status(err); ok {
			_ = printJSON(out, schedv1.StatusReply{Code: code, Status: name})
		}
		return err
	}
	return printJSON(out, resp)
}

func intArgs(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("argument %q is not an integer", a)
		}
		out[i] = n
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "tbctl:", err)
	os.Exit(1)
}
