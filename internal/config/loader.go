package config

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/Brownie44l1/signscope-api/internal/preprocess"
)

// EnvPrefix prefixes every environment override, e.g. SIGN_ADDR.
const EnvPrefix = "SIGN_"

// FileEnv names the variable holding an optional YAML config path.
const FileEnv = EnvPrefix + "CONFIG"

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SIGN_CONFIG is set
//  3. env (prefix SIGN_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(ErrLoadConfig, "read %s: %v", path, err)
		}
	}

	// SIGN_MAX_UPLOAD_BYTES -> max_upload_bytes; keys stay flat.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrapf(ErrLoadConfig, "read env: %v", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrapf(ErrLoadConfig, "decode: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return errors.Wrap(ErrInvalidConfig, "addr must not be empty")
	case strings.TrimSpace(c.ModelPath) == "":
		return errors.Wrap(ErrInvalidConfig, "model_path must not be empty")
	case c.MaxUploadBytes <= 0:
		return errors.Wrap(ErrInvalidConfig, "max_upload_bytes must be positive")
	case !metricNamespace.MatchString(c.MetricsNamespace):
		return errors.Wrapf(ErrInvalidConfig, "metrics_namespace %q is not a valid metric name prefix", c.MetricsNamespace)
	}
	if _, err := preprocess.ParseInterpolation(c.Resample); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "resample: %v", err)
	}
	return nil
}
