// Package config defines service configuration and its loading rules.
package config

// Default values used by New.
const (
	DefaultAddr           = ":5000"
	DefaultModelPath      = "model.onnx"
	DefaultMaxUploadBytes = 10 << 20
	DefaultResample       = "bicubic"
	DefaultMetricsPrefix  = "signscope"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// ModelPath points at the serialized ONNX classifier loaded at startup.
	ModelPath string `koanf:"model_path"`

	// OnnxLibraryPath overrides the onnxruntime shared library location.
	// Empty means the runtime's platform default.
	OnnxLibraryPath string `koanf:"onnx_library_path"`

	// MaxUploadBytes caps the size of a /predict request body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Resample names the interpolation used to shrink uploads to 32x32.
	Resample string `koanf:"resample"`

	// CORSAllowedOrigin is echoed in Access-Control-Allow-Origin.
	CORSAllowedOrigin string `koanf:"cors_allowed_origin"`

	// ReadHeaderTimeoutMS bounds how long a client may take to send headers.
	ReadHeaderTimeoutMS int `koanf:"read_header_timeout_ms"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// MetricsNamespace prefixes every exported Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                DefaultAddr,
		ModelPath:           DefaultModelPath,
		MaxUploadBytes:      DefaultMaxUploadBytes,
		Resample:            DefaultResample,
		CORSAllowedOrigin:   "*",
		ReadHeaderTimeoutMS: 5_000,
		ShutdownTimeoutMS:   30_000,
		MetricsNamespace:    DefaultMetricsPrefix,
	}
}
