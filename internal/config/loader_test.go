package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Brownie44l1/signscope-api/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "model.onnx")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 10<<20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SIGN_ADDR", ":8080")
			_ = os.Setenv("SIGN_MODEL_PATH", "/models/gtsrb.onnx")
			_ = os.Setenv("SIGN_MAX_UPLOAD_BYTES", "2048")
			_ = os.Setenv("SIGN_RESAMPLE", "lanczos3")
			_ = os.Setenv("SIGN_LOG_LEVEL", "debug")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "/models/gtsrb.onnx")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 2048)
				convey.So(cfg.Resample, convey.ShouldEqual, "lanczos3")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
model_path: "signs.onnx"
onnx_library_path: "/usr/lib/libonnxruntime.so"
max_upload_bytes: 4096
cors_allowed_origin: "https://signscope.example"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SIGN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "signs.onnx")
				convey.So(cfg.OnnxLibraryPath, convey.ShouldEqual, "/usr/lib/libonnxruntime.so")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 4096)
				convey.So(cfg.CORSAllowedOrigin, convey.ShouldEqual, "https://signscope.example")
				convey.So(cfg.Resample, convey.ShouldEqual, "bicubic") // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
model_path: "signs.onnx"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SIGN_CONFIG", tmpFile)
			_ = os.Setenv("SIGN_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")           // Overridden by env
				convey.So(cfg.ModelPath, convey.ShouldEqual, "signs.onnx") // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SIGN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SIGN_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SIGN_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-positive upload limit", func() {
			_ = os.Setenv("SIGN_MAX_UPLOAD_BYTES", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "max_upload_bytes")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown resample filter", func() {
			_ = os.Setenv("SIGN_RESAMPLE", "sharpest")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a metrics namespace override", func() {
			_ = os.Setenv("SIGN_METRICS_NAMESPACE", "roadside")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the namespace is applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "roadside")
			})
		})

		convey.Convey("When loading config with a metrics namespace that is not a metric name", func() {
			_ = os.Setenv("SIGN_METRICS_NAMESPACE", "sign-scope")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_namespace")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SIGN_MAX_UPLOAD_BYTES", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SIGN_CONFIG",
		"SIGN_ADDR",
		"SIGN_MODEL_PATH",
		"SIGN_ONNX_LIBRARY_PATH",
		"SIGN_MAX_UPLOAD_BYTES",
		"SIGN_RESAMPLE",
		"SIGN_LOG_LEVEL",
		"SIGN_CORS_ALLOWED_ORIGIN",
		"SIGN_METRICS_NAMESPACE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "signscope-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
