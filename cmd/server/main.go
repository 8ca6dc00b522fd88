package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/signscope-api/internal/config"
	"github.com/Brownie44l1/signscope-api/internal/handlers"
	"github.com/Brownie44l1/signscope-api/internal/model"
	"github.com/Brownie44l1/signscope-api/internal/preprocess"
	"github.com/Brownie44l1/signscope-api/pkg/logger"
	"github.com/Brownie44l1/signscope-api/pkg/metrics"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Named("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metrics.WithNamespace(cfg.MetricsNamespace))

	// Validated by config.Load.
	interp, _ := preprocess.ParseInterpolation(cfg.Resample)

	// A model that fails to load leaves the server up in degraded mode.
	var classifier model.Classifier
	log.Info(ctx, "loading model", logger.String("path", cfg.ModelPath))
	modelServer, err := model.Load(ctx, cfg.ModelPath, model.WithSharedLibraryPath(cfg.OnnxLibraryPath))
	if err != nil {
		log.Error(ctx, "model not loaded; /predict will answer 500", logger.String("path", cfg.ModelPath), logger.Error(err))
	} else {
		defer modelServer.Close()
		classifier = modelServer
		sig := modelServer.Signature()
		log.Info(ctx, "model loaded",
			logger.String("input", sig.InputName),
			logger.String("output", sig.OutputName),
			logger.Int("classes", sig.NumClasses))
	}

	handler := handlers.NewHandler(classifier,
		handlers.WithLogger(logger.Named("predict")),
		handlers.WithMaxUploadBytes(cfg.MaxUploadBytes),
		handlers.WithInterpolation(interp),
		handlers.WithCORSOrigin(cfg.CORSAllowedOrigin),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutMS) * time.Millisecond,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}
