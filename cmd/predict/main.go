// Command predict classifies a single local image with the configured model.
//
//	predict path/to/sign.png
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Brownie44l1/signscope-api/internal/config"
	"github.com/Brownie44l1/signscope-api/internal/model"
	"github.com/Brownie44l1/signscope-api/internal/preprocess"
	"github.com/Brownie44l1/signscope-api/pkg/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: predict <image>")
		os.Exit(2)
	}
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1]); err != nil {
		logger.Named("predict").Error(context.Background(), "prediction failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	interp, _ := preprocess.ParseInterpolation(cfg.Resample)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tensor, err := preprocess.FromBytes(data, preprocess.WithInterpolation(interp))
	if err != nil {
		return err
	}

	srv, err := model.Load(ctx, cfg.ModelPath, model.WithSharedLibraryPath(cfg.OnnxLibraryPath))
	if err != nil {
		return err
	}
	defer srv.Close()

	start := time.Now()
	pred, err := model.Classify(ctx, srv, tensor)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%.4f) in %s\n", pred.SignName, pred.Confidence, time.Since(start))
	return nil
}
