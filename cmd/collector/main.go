package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/collector"
	"github.com/ajitpratap0/oddcollector/pkg/config"
	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/observability"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
	"github.com/ajitpratap0/oddcollector/pkg/secrets"

	// Register the reference adapters and the parameter store backend
	_ "github.com/ajitpratap0/oddcollector/pkg/adapters/kafka"
	_ "github.com/ajitpratap0/oddcollector/pkg/adapters/mongodb"
	_ "github.com/ajitpratap0/oddcollector/pkg/adapters/mysql"
	_ "github.com/ajitpratap0/oddcollector/pkg/adapters/postgresql"
	_ "github.com/ajitpratap0/oddcollector/pkg/adapters/s3"
	_ "github.com/ajitpratap0/oddcollector/pkg/secrets/ssm"
)

var version = "0.1.0"

// envPrefix prefixes the environment variables that override flags, e.g.
// ODD_LOG_LEVEL.
const envPrefix = "ODD"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "collector",
		Short:         "Collect metadata from data sources and push it to the catalog platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "odd-collector v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "plugins",
		Short: "List registered plugin types, adapters and secrets providers",
		Run: func(cmd *cobra.Command, args []string) {
			printPlugins(cmd.OutOrStdout())
		},
	})

	root.AddCommand(newRunCmd())
	return root
}

func printPlugins(out io.Writer) {
	fmt.Fprintln(out, "Plugin types:")
	for _, typ := range plugin.Default().Types() {
		fmt.Fprintf(out, "  - %s\n", typ)
	}
	fmt.Fprintf(out, "\nAdapters (%s):\n", adapter.DefaultNamespace)
	for _, typ := range adapter.Default().Types(adapter.DefaultNamespace) {
		fmt.Fprintf(out, "  - %s\n", typ)
	}
	fmt.Fprintln(out, "\nSecrets providers:")
	for _, name := range secrets.Providers() {
		fmt.Fprintf(out, "  - %s\n", name)
	}
}

// runOptions are the run flags after environment overrides.
type runOptions struct {
	ConfigPath     string
	LogLevel       string
	LogFormat      string
	MetricsAddress string
	Trace          string
}

func newRunCmd() *cobra.Command {
	v := viper.New()

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the collector",
		Long: `Run the collector with the given configuration file.

Without default_pulling_interval every adapter is collected once and the
command exits. With it, adapters are collected on schedule until SIGINT,
SIGTERM or SIGHUP.

Example:
  collector run --config collector_config.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return run(cmd.Context(), runOptions{
				ConfigPath:     v.GetString("config"),
				LogLevel:       v.GetString("log-level"),
				LogFormat:      v.GetString("log-format"),
				MetricsAddress: v.GetString("metrics-address"),
				Trace:          v.GetString("trace"),
			})
		},
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := runCmd.Flags()
	flags.StringP("config", "c", config.DefaultPath(), "Path to the collector configuration file (default from "+config.PathEnv+")")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log encoding (json, console)")
	flags.String("metrics-address", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.String("trace", observability.ExporterNone, "Trace exporter (none, stdout)")

	return runCmd
}

func run(ctx context.Context, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := logger.New(logger.Config{Level: opts.LogLevel, Encoding: opts.LogFormat})
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tracing := observability.DefaultTracingConfig()
	tracing.ServiceVersion = version
	tracing.Exporter = opts.Trace
	shutdownTracing, err := observability.InitTracing(ctx, tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	if opts.MetricsAddress != "" {
		go func() {
			if err := observability.ServeMetrics(serveCtx, opts.MetricsAddress, registry, log); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	cfg, err := config.NewLoader(plugin.Default(), log).Load(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	c, err := collector.New(cfg,
		collector.WithLogger(log),
		collector.WithMetrics(metrics),
		collector.WithTracer(observability.Tracer()),
	)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}
