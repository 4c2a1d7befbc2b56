package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	IdleTimeoutSeconds      int `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds" toml:"idle_timeout_seconds"`
	ReapIntervalSeconds     int `json:"reap_interval_seconds" yaml:"reap_interval_seconds" toml:"reap_interval_seconds"`
	TelemetryTimeoutSeconds int `json:"telemetry_timeout_seconds" yaml:"telemetry_timeout_seconds" toml:"telemetry_timeout_seconds"`

	DefaultModel        string            `json:"default_model" yaml:"default_model" toml:"default_model"`
	DefaultPrecision    string            `json:"default_precision" yaml:"default_precision" toml:"default_precision"`
	Device              string            `json:"device" yaml:"device" toml:"device"`
	AlignerPath         string            `json:"aligner_path" yaml:"aligner_path" toml:"aligner_path"`
	ModelRepo           string            `json:"model_repo" yaml:"model_repo" toml:"model_repo"`
	ModelPaths          map[string]string `json:"model_paths" yaml:"model_paths" toml:"model_paths"`
	ModelsDir           string            `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	AllowUnlistedModels bool              `json:"allow_unlisted_models" yaml:"allow_unlisted_models" toml:"allow_unlisted_models"`
	PreloadModel        string            `json:"preload_model" yaml:"preload_model" toml:"preload_model"`

	WorkerBin          string   `json:"worker_bin" yaml:"worker_bin" toml:"worker_bin"`
	WorkerArgs         []string `json:"worker_args" yaml:"worker_args" toml:"worker_args"`
	WorkerHost         string   `json:"worker_host" yaml:"worker_host" toml:"worker_host"`
	LoadTimeoutSeconds int      `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`
	MaxBatchSize       int      `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size"`
	MaxNewTokens       int      `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`

	MaxUploadMB int      `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat   string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Swagger     bool     `json:"swagger" yaml:"swagger" toml:"swagger"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
