package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"asrd/internal/config"
)

// loadConfig layers defaults, the config file, the environment and then
// flags the user explicitly set.
func loadConfig(cmd *cobra.Command, f *flags, lookup func(string) (string, bool)) (config.Config, error) {
	var cfg config.Config
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return cfg, err
		}
	}
	if f.configPath != "" {
		c, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	cfg, err := config.ApplyEnv(cfg, lookup)
	if err != nil {
		return cfg, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("addr") {
		cfg.Addr = f.addr
	}
	if changed("idle-timeout") {
		cfg.IdleTimeoutSeconds = f.idleTimeout
	}
	if changed("worker-bin") {
		cfg.WorkerBin = f.workerBin
	}
	if changed("default-model") {
		cfg.DefaultModel = f.defaultModel
	}
	if changed("preload") {
		cfg.PreloadModel = f.preload
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("cors-origins") {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = splitCSV(f.corsOrigins)
	}

	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Validate has already checked the
// level and format.
func newLogger(cfg config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.LogFormat == "console" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Str("service", "asrd").Logger()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
