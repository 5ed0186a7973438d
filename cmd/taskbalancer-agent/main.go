package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/agent/executor"
	"github.com/VerteraIO/taskbalancer/internal/config"
	"github.com/VerteraIO/taskbalancer/internal/grpc/agent"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")

	var cfg config.AgentConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	cfg.ConfigFile = config.ConfigPath(os.Args[1:], cfg.ConfigFile)
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	cfg.ApplyEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		return
	}
	logx.Configure(cfg.LogLevel)
	if cfg.NodeID <= 0 {
		logx.Log.Fatal().Int("node_id", cfg.NodeID).Msg("a positive --node-id is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := agent.Dial(agent.DialConfig{Addr: cfg.ControllerAddr, Token: cfg.Token, CACert: cfg.CACert})
	if err != nil {
		logx.Log.Fatal().Err(err).Str("controller", cfg.ControllerAddr).Msg("dial controller")
	}

	logx.Log.Info().Str("controller", cfg.ControllerAddr).Int("node_id", cfg.NodeID).Str("version", version).Msg("taskbalancer-agent starting")
	err = run(ctx, schedv1.NewSchedulerClient(conn), cfg, executor.LogExecutor{})
	_ = conn.Close()
	if err != nil {
		logx.Log.Error().Err(err).Msg("agent stopped")
		stop()
		os.Exit(1)
	}
	logx.Log.Info().Msg("agent stopped")
}

// run follows the node's assignments until ctx is done or the controller
// rejects the agent. Running tasks are stopped before it returns.
func run(ctx context.Context, cli schedv1.SchedulerClient, cfg config.AgentConfig, exec executor.Executor) error {
	applier := executor.NewApplier(exec)
	defer applier.StopAll()

	return agent.Run(ctx, cli, agent.Config{
		NodeID:     cfg.NodeID,
		MinBackoff: cfg.MinBackoff,
		MaxBackoff: cfg.MaxBackoff,
		Unregister: cfg.Unregister,
		OnAssignment: func(a schedv1.Assignment) {
			started, stopped := applier.Apply(a)
			logx.Log.Debug().Str("plan_id", a.PlanID).Ints("started", started).Ints("stopped", stopped).Msg("assignment applied")
		},
	})
}
