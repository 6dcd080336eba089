package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/config"
	"github.com/duet-robotics/drc-backend/internal/auth"
	authmw "github.com/duet-robotics/drc-backend/internal/auth/middleware"
	"github.com/duet-robotics/drc-backend/internal/bootstrap"
	"github.com/duet-robotics/drc-backend/internal/chat"
	"github.com/duet-robotics/drc-backend/internal/logger"
	"github.com/duet-robotics/drc-backend/internal/orphans"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: !cfg.IsProduction(),
	})
	defer func() { _ = lg.Sync() }()

	lg.Info("starting", zap.String("env", cfg.App.Environment), zap.String("gin_mode", bootstrap.SetGinMode(cfg.App.Environment)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	var verifier authmw.TokenVerifier
	if cfg.Auth.Mode == "firebase" {
		client, err := auth.InitializeFirebase(ctx, cfg.Auth.FirebaseCredentialsPath)
		if err != nil {
			lg.Fatal("firebase init failed", zap.Error(err))
		}
		verifier = client
	}

	assistant, err := chat.NewGemini(ctx, chat.GeminiConfig{
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
		APIKey:  cfg.Chat.APIKey,
		Timeout: cfg.Chat.Timeout,
	})
	if err != nil {
		lg.Fatal("chat assistant", zap.Error(err))
	}
	if cfg.Chat.APIKey == "" {
		lg.Warn("GEMINI_API_KEY not set; chat answers with the fallback message")
	}

	router, err := bootstrap.BuildRouter(bootstrap.RouterDeps{
		App:       app,
		Verifier:  verifier,
		Assistant: assistant,
	})
	if err != nil {
		lg.Fatal("router", zap.Error(err))
	}

	// Without Redis the ledger lives in this process, so the sweep must too.
	if app.Redis == nil {
		sched, err := orphans.NewScheduler(cfg.Orphans.Schedule, app.Sweeper(), lg)
		if err != nil {
			lg.Fatal("scheduler", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		lg.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("media", cfg.Media.Driver),
			zap.String("auth", cfg.Auth.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}
