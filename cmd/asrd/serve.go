package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"asrd/internal/backend"
	"asrd/internal/catalog"
	"asrd/internal/config"
	"asrd/internal/httpapi"
	"asrd/internal/manager"
	"asrd/internal/registry"
	"asrd/internal/session"
	"asrd/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// app is the wired object graph of a running server.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	reg     *registry.Registry
	mgr     *manager.Manager
	svc     *session.Service
	handler http.Handler
}

func buildApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	reg, err := registry.New(registry.Options{
		Models:        catalog.Models(),
		Paths:         cfg.ModelPaths,
		Dir:           cfg.ModelsDir,
		Repo:          cfg.ModelRepo,
		AllowUnlisted: cfg.AllowUnlistedModels,
	})
	if err != nil {
		return nil, err
	}
	be := backend.NewWorkerBackend(backend.WorkerConfig{
		Bin:          cfg.WorkerBin,
		ExtraArgs:    cfg.WorkerArgs,
		Host:         cfg.WorkerHost,
		ReadyTimeout: cfg.LoadTimeout(),
		Logger:       &log,
	})
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Backend:          be,
		Resolver:         reg,
		Telemetry:        telemetry.NewNvidiaSMI(cfg.TelemetryTimeout()),
		TelemetryTimeout: cfg.TelemetryTimeout(),
		IdleTimeout:      cfg.IdleTimeout(),
		ReapInterval:     cfg.ReapInterval(),
		DefaultPrecision: manager.Precision(cfg.DefaultPrecision),
		Device:           cfg.Device,
		AlignerPath:      cfg.AlignerPath,
		MaxBatchSize:     cfg.MaxBatchSize,
		MaxNewTokens:     cfg.MaxNewTokens,
		WorkerBin:        cfg.WorkerBin,
		Logger:           &log,
	})
	svc := session.New(session.Options{
		Manager:      mgr,
		Models:       reg,
		DefaultModel: cfg.DefaultModel,
		Logger:       &log,
	})

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxUploadBytes(cfg.MaxUploadBytes())
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins)
	httpapi.SetSwaggerEnabled(cfg.Swagger)
	httpapi.SetVersion(version)

	return &app{cfg: cfg, log: log, reg: reg, mgr: mgr, svc: svc, handler: httpapi.NewMux(svc)}, nil
}

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f, os.LookupEnv)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	if r := a.mgr.SanityCheck(); !r.WorkerFound {
		log.Warn().Str("error", r.Error).Msg("worker binary unavailable; loads will fail")
	}

	go manager.NewReaper(a.mgr).Run(ctx)

	if cfg.PreloadModel != "" {
		done := a.mgr.Preload(ctx, manager.LoadRequest{
			Model:     cfg.PreloadModel,
			Precision: manager.Precision(cfg.DefaultPrecision),
		})
		go func() {
			if err := <-done; err == nil {
				log.Info().Str("model", cfg.PreloadModel).Msg("preloaded")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("default_model", cfg.DefaultModel).
			Dur("idle_timeout", cfg.IdleTimeout()).
			Msg("asrd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return a.mgr.Close(sctx)
}

func runCheck(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f, os.LookupEnv)
	if err != nil {
		return err
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Telemetry: telemetry.NewNvidiaSMI(cfg.TelemetryTimeout()),
		WorkerBin: cfg.WorkerBin,
	})
	r := mgr.SanityCheck()
	if err := printJSON(cmd, r); err != nil {
		return err
	}
	if !r.WorkerFound {
		return errors.New("worker binary not found")
	}
	return nil
}

func runGPU(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f, os.LookupEnv)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TelemetryTimeout())
	defer cancel()
	gpus, err := telemetry.NewNvidiaSMI(cfg.TelemetryTimeout()).Collect(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, gpus)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
