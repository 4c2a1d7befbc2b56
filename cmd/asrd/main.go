package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "asrd:", err)
		os.Exit(1)
	}
}

// flags holds command-line overrides. Only flags the user set are applied.
type flags struct {
	configPath   string
	envFile      string
	addr         string
	idleTimeout  int
	workerBin    string
	defaultModel string
	preload      string
	logLevel     string
	corsOrigins  string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "asrd",
		Short:         "Speech recognition server with a single GPU model slot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&f.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.StringVar(&f.workerBin, "worker-bin", "", "Model worker executable")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error")

	serveFlags := func(c *cobra.Command) {
		fs := c.Flags()
		fs.StringVar(&f.addr, "addr", "", "HTTP listen address, e.g. :8200")
		fs.IntVar(&f.idleTimeout, "idle-timeout", 0, "Seconds of inactivity before the model is offloaded")
		fs.StringVar(&f.defaultModel, "default-model", "", "Model used when a request names none")
		fs.StringVar(&f.preload, "preload", "", "Model to load at startup")
		fs.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed origins; enables CORS")
	}
	serveFlags(root)

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server (default)",
		Example: "  asrd serve --addr :8200 --idle-timeout 300",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f)
		},
	}
	serveFlags(serve)

	check := &cobra.Command{
		Use:   "check",
		Short: "Report whether the worker binary and GPU telemetry are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, f)
		},
	}
	gpu := &cobra.Command{
		Use:   "gpu",
		Short: "Print GPU telemetry as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGPU(cmd, f)
		},
	}
	root.AddCommand(serve, check, gpu)
	return root
}
