package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/collate/internal/aggregation"
	corecfg "github.com/aevon-lab/collate/internal/core/config"
	"github.com/aevon-lab/collate/internal/core/storage"
	"github.com/aevon-lab/collate/internal/core/storage/postgres"
	"github.com/aevon-lab/collate/internal/render"
	"github.com/aevon-lab/collate/internal/server"
)

const (
	modeRender = "render"
	modeRun    = "run"
	modeServe  = "serve"
)

func main() {
	configPath := flag.String("config", "collate.yaml", "Path to configuration file")
	mode := flag.String("mode", modeRender, "render | run | serve")
	planName := flag.String("plan", "", "Restrict render/run to a single plan")
	flag.Parse()

	// 0. Initialize Logger. Stdout carries rendered SQL, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration (and the plan catalog)
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	plans := cfg.PlanLoading.Plans
	slog.Info("Loaded config",
		"plans_dir", cfg.PlanLoading.Dir,
		"plans", len(plans.Plans()),
		"execution_enabled", cfg.Execution.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *mode == modeRender {
		if err := renderPlans(ctx, os.Stdout, plans, *planName); err != nil {
			slog.Error("Render failed", "error", err)
			os.Exit(1)
		}
		return
	}
	if *mode != modeRun && *mode != modeServe {
		slog.Error("Unknown mode", "mode", *mode)
		os.Exit(2)
	}

	// 2. Initialize Storage (PostgreSQL) when execution is enabled
	var (
		pinger storage.Pinger
		runner *aggregation.Runner
	)
	if cfg.Execution.Enabled {
		timeout, err := cfg.Execution.StatementTimeoutDuration()
		if err != nil {
			slog.Error("Invalid statement timeout", "value", cfg.Execution.StatementTimeout, "error", err)
			os.Exit(1)
		}
		executor, err := postgres.NewExecutor(cfg.Database.DSN, postgres.Options{
			MaxOpenConns:     cfg.Database.MaxOpenConns,
			MaxIdleConns:     cfg.Database.MaxIdleConns,
			StatementTimeout: timeout,
		})
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer executor.Close()

		pinger = executor
		runner = aggregation.NewRunner(executor, aggregation.RunParameter{
			WorkerCount: cfg.Execution.WorkerCount,
		})
	}

	if *mode == modeRun {
		if runner == nil {
			slog.Error("Run mode requires execution.enabled")
			os.Exit(1)
		}
		if err := runPlans(ctx, plans, runner, *planName); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// 3. Serve: HTTP API plus the optional refresh scheduler
	var planRunner aggregation.PlanRunner
	if runner != nil {
		planRunner = runner
	}
	renderSvc := render.NewService(plans, planRunner)

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), pinger, cfg.Server.Mode)
	renderSvc.RegisterRoutes(srv.Engine)

	interval, err := cfg.Execution.RefreshIntervalDuration()
	if err != nil {
		slog.Error("Invalid refresh interval", "value", cfg.Execution.RefreshInterval, "error", err)
		os.Exit(1)
	}
	if runner != nil && interval > 0 {
		scheduler := aggregation.NewScheduler(interval, plans, runner)
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Plan refresh scheduler disabled by config")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func selectPlans(ctx context.Context, plans aggregation.PlanRepository, name string) ([]aggregation.PlanDefinition, error) {
	if name == "" {
		return plans.List(ctx)
	}
	def, err := plans.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return []aggregation.PlanDefinition{*def}, nil
}

// renderPlans writes every statement of the selected plans, in execution
// order, as a runnable script.
func renderPlans(ctx context.Context, w io.Writer, plans aggregation.PlanRepository, name string) error {
	defs, err := selectPlans(ctx, plans, name)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if _, err := fmt.Fprintf(w, "-- plan: %s\n", def.Name); err != nil {
			return err
		}
		for _, stmt := range aggregation.Build(def.Name, def.Plan).Statements() {
			if _, err := fmt.Fprintf(w, "%s;\n", stmt.SQL); err != nil {
				return err
			}
		}
	}
	return nil
}

func runPlans(ctx context.Context, plans aggregation.PlanRepository, runner aggregation.PlanRunner, name string) error {
	defs, err := selectPlans(ctx, plans, name)
	if err != nil {
		return err
	}
	for _, def := range defs {
		res, err := runner.Run(ctx, def)
		if err != nil {
			return err
		}
		slog.Info("Plan built",
			"plan", res.Plan,
			"run_id", res.RunID,
			"statements", res.Statements,
			"duration", res.Duration,
		)
	}
	return nil
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
