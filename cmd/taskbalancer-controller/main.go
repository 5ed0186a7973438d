package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/VerteraIO/taskbalancer/internal/config"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/dispatch"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/reconciler"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/stores"
	grpccontroller "github.com/VerteraIO/taskbalancer/internal/grpc/controller"
	httpserver "github.com/VerteraIO/taskbalancer/internal/http"
	"github.com/VerteraIO/taskbalancer/internal/logx"
	"github.com/VerteraIO/taskbalancer/internal/metrics"
	"github.com/VerteraIO/taskbalancer/internal/security/pki"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")

	// defaults < file < env < flags
	var cfg config.ControllerConfig
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Log.Fatal().Err(err).Msg("controller exited")
	}
}

func run(ctx context.Context, cfg config.ControllerConfig) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)
	metrics.SetBuildInfo(version)

	store, err := stores.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	d := dispatch.NewManager()
	svc := scheduler.New(scheduler.WithObserver(d))
	if err := stores.Restore(ctx, store, svc); err != nil {
		return err
	}
	// attached after restore so the restored state is not written back
	svc.AddObserver(stores.NewPersister(store, cfg.Store.Timeout))

	go reconciler.New(svc, cfg.Reconcile.Threshold, cfg.Reconcile.Interval).Start(ctx)

	secret := []byte(cfg.JWTSecret)
	if len(secret) > 0 {
		logx.Log.Info().Msg("bearer token auth enabled for mutating calls")
	}

	if cfg.TLSCert == "" && cfg.TLSDir != "" {
		caCert, cert, key, err := pki.DevCerts(cfg.TLSDir, cfg.TLSHosts)
		if err != nil {
			return err
		}
		cfg.TLSCert, cfg.TLSKey = cert, key
		logx.Log.Warn().Str("ca_cert", caCert).Strs("hosts", cfg.TLSHosts).Msg("using generated dev certificate for gRPC")
	}

	errCh := make(chan error, 2)
	if cfg.GRPCAddr != "" {
		gs, err := grpccontroller.NewServer(grpccontroller.NewSchedulerServer(svc, d), grpccontroller.Options{
			JWTSecret: secret,
			TLSCert:   cfg.TLSCert,
			TLSKey:    cfg.TLSKey,
		})
		if err != nil {
			return err
		}
		go func() { errCh <- grpccontroller.Serve(ctx, cfg.GRPCAddr, gs) }()
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpserver.NewServer(httpserver.Options{
			Service:        svc,
			Dispatch:       d,
			Gatherer:       reg,
			AllowedOrigins: cfg.AllowedOrigins,
			JWTSecret:      secret,
			RequestTimeout: cfg.RequestTimeout,
		}),
	}
	go func() {
		logx.Log.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("taskbalancer-controller listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logx.Log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Log.Error().Err(err).Msg("http shutdown")
	}
	return nil
}
