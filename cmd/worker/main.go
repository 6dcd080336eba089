package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/config"
	"github.com/duet-robotics/drc-backend/internal/bootstrap"
	"github.com/duet-robotics/drc-backend/internal/logger"
	"github.com/duet-robotics/drc-backend/internal/orphans"
	"github.com/duet-robotics/drc-backend/internal/seed"
)

const usage = "usage: worker <sweep|cron|migrate|seed <file.yaml> [--force]>"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name + "-worker",
		Development: !cfg.IsProduction(),
	})
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open runs migrations as part of connecting.
	app, err := bootstrap.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	switch os.Args[1] {
	case "migrate":
		lg.Info("schema is up to date", zap.String("store", cfg.Store.Driver))
	case "sweep":
		runSweep(ctx, app.Sweeper(), lg)
	case "cron":
		runCron(ctx, cfg.Orphans.Schedule, app.Sweeper(), lg)
	case "seed":
		if len(os.Args) < 3 {
			lg.Fatal(usage)
		}
		force := len(os.Args) > 3 && os.Args[3] == "--force"
		runSeed(ctx, app, os.Args[2], force, lg)
	default:
		lg.Fatal("unknown command", zap.String("command", os.Args[1]), zap.String("usage", usage))
	}
}

func runSweep(ctx context.Context, sweeper *orphans.Sweeper, lg *zap.Logger) {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	res, err := sweeper.Sweep(sctx)
	if err != nil {
		lg.Fatal("sweep failed", zap.Error(err))
	}
	lg.Info("sweep finished",
		zap.Int("released", res.Released),
		zap.Int("failed", res.Failed),
		zap.Int("dropped", res.Dropped),
	)
}

func runSeed(ctx context.Context, app *bootstrap.App, path string, force bool, lg *zap.Logger) {
	f, err := os.Open(path)
	if err != nil {
		lg.Fatal("open seed", zap.Error(err))
	}
	defer f.Close()

	doc, err := seed.Parse(f)
	if err != nil {
		lg.Fatal("parse seed", zap.Error(err))
	}
	res, err := seed.Apply(ctx, app.Stores, doc, force, lg)
	if err != nil {
		lg.Fatal("seed failed", zap.Error(err))
	}
	lg.Info("seed finished", zap.Any("created", res.Created), zap.Strings("skipped", res.Skipped))
}

func runCron(ctx context.Context, schedule string, sweeper *orphans.Sweeper, lg *zap.Logger) {
	sched, err := orphans.NewScheduler(schedule, sweeper, lg)
	if err != nil {
		lg.Fatal("scheduler", zap.Error(err))
	}
	sched.Start()
	<-ctx.Done()
	lg.Info("stopping scheduler")
	sched.Stop()
}
