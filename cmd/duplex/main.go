package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Zereker/duplex"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "duplex",
		Short: "Exchange framed messages over a TCP connection",
		Long: `duplex opens a message channel to a single peer.

Run "duplex serve" on one side and "duplex connect" on the other. Messages
are framed as %START%<payload>%STOP% unless --codec length is given on both
sides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("codec", "marker", "wire framing: marker or length")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		serveCmd(),
		connectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// resolveConfig builds the effective configuration for cmd and applies the
// process-wide parts of it.
func resolveConfig(cmd *cobra.Command, defaultAddr string) (config, error) {
	cfg := defaultConfig()
	cfg.Addr = defaultAddr

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		var err error
		cfg, err = loadConfig(path, cfg)
		if err != nil {
			return config{}, err
		}
	}

	cfg = applyFlags(cfg, cmd.Flags())
	duplex.SetVerbose(cfg.Verbose)
	return cfg, nil
}

// serveMetrics exposes reg on addr in the background.
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		slog.Info("metrics server started", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// connectionOptions returns the options for cfg, wiring metrics when requested.
func connectionOptions(cfg config) ([]duplex.Option, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		serveMetrics(cfg.MetricsAddr, reg)
		opts = append(opts, duplex.MetricsOption(reg))
	}
	return opts, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("duplex %s (%s)\n", version, commit)
		},
	}
}
