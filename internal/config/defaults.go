package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"asrd/internal/catalog"
	"asrd/internal/manager"
	"asrd/internal/registry"
)

// Defaults returns the configuration used when nothing is specified.
func Defaults() Config {
	return Config{
		Addr:                    ":8200",
		IdleTimeoutSeconds:      600,
		ReapIntervalSeconds:     60,
		TelemetryTimeoutSeconds: 5,
		DefaultModel:            catalog.ModelLarge,
		DefaultPrecision:        string(manager.PrecisionBF16),
		Device:                  "cuda:0",
		AlignerPath:             "Qwen/Qwen3-ForcedAligner-0.6B",
		ModelRepo:               registry.DefaultRepo,
		WorkerHost:              "127.0.0.1",
		LoadTimeoutSeconds:      600,
		MaxBatchSize:            32,
		MaxNewTokens:            512,
		MaxUploadMB:             200,
		LogLevel:                "info",
		LogFormat:               "json",
	}
}

// WithDefaults fills every unspecified field of c from Defaults.
func (c Config) WithDefaults() Config {
	d := Defaults()
	setStr(&c.Addr, d.Addr)
	setInt(&c.IdleTimeoutSeconds, d.IdleTimeoutSeconds)
	// a short idle timeout pulls the default reap interval down with it
	setInt(&c.ReapIntervalSeconds, min(d.ReapIntervalSeconds, c.IdleTimeoutSeconds))
	setInt(&c.TelemetryTimeoutSeconds, d.TelemetryTimeoutSeconds)
	setStr(&c.DefaultModel, d.DefaultModel)
	setStr(&c.DefaultPrecision, d.DefaultPrecision)
	setStr(&c.Device, d.Device)
	setStr(&c.AlignerPath, d.AlignerPath)
	setStr(&c.ModelRepo, d.ModelRepo)
	setStr(&c.WorkerHost, d.WorkerHost)
	setInt(&c.LoadTimeoutSeconds, d.LoadTimeoutSeconds)
	setInt(&c.MaxBatchSize, d.MaxBatchSize)
	setInt(&c.MaxNewTokens, d.MaxNewTokens)
	setInt(&c.MaxUploadMB, d.MaxUploadMB)
	setStr(&c.LogLevel, d.LogLevel)
	setStr(&c.LogFormat, d.LogFormat)
	return c
}

func setStr(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays environment overrides on c. lookup defaults to
// os.LookupEnv. MODEL_PATH_<ID> variables are read by the registry at
// resolve time.
func ApplyEnv(c Config, lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("PORT"); ok {
		c.Addr = ":" + v
	}
	if v, ok := get("ASRD_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("GPU_IDLE_TIMEOUT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c, fmt.Errorf("GPU_IDLE_TIMEOUT: want positive seconds, got %q", v)
		}
		c.IdleTimeoutSeconds = n
	}
	if v, ok := get("ALIGNER_PATH"); ok {
		c.AlignerPath = v
	}
	if v, ok := get("ASRD_DEFAULT_MODEL"); ok {
		c.DefaultModel = v
	}
	if v, ok := get("ASRD_DEFAULT_PRECISION"); ok {
		c.DefaultPrecision = v
	}
	if v, ok := get("ASRD_WORKER_BIN"); ok {
		c.WorkerBin = v
	}
	if v, ok := get("ASRD_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return c, nil
}

// Validate reports the first invalid setting in c. Call after WithDefaults.
func (c Config) Validate() error {
	if _, err := manager.ParsePrecision(c.DefaultPrecision); err != nil {
		return fmt.Errorf("default_precision: %w", err)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format: want json or console, got %q", c.LogFormat)
	}
	if strings.TrimSpace(c.DefaultModel) == "" {
		return errors.New("default_model is required")
	}
	return nil
}

// Warnings lists settings that are accepted but probably not intended.
func (c Config) Warnings() []string {
	var out []string
	if c.ReapIntervalSeconds > c.IdleTimeoutSeconds {
		out = append(out, fmt.Sprintf("reap_interval_seconds (%d) exceeds idle_timeout_seconds (%d); idle models may stay loaded up to %ds",
			c.ReapIntervalSeconds, c.IdleTimeoutSeconds, c.IdleTimeoutSeconds+c.ReapIntervalSeconds))
	}
	return out
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c Config) ReapInterval() time.Duration {
	return time.Duration(c.ReapIntervalSeconds) * time.Second
}

func (c Config) TelemetryTimeout() time.Duration {
	return time.Duration(c.TelemetryTimeoutSeconds) * time.Second
}

func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

// MaxUploadBytes is the upload size cap in bytes.
func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }
