package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfroyo/resgen/pkg/config"
	"github.com/openfroyo/resgen/pkg/telemetry"
)

var (
	// Global flags
	projectPath   string
	verbose       bool
	ciMode        bool
	logFormat     string
	traceExporter string
	otlpEndpoint  string
	metricsFile   string

	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	if version != "" {
		buildVersion = version
	}

	rootCmd := &cobra.Command{
		Use:   "resgen",
		Short: "resgen - multiplatform resource generation",
		Long: `resgen wires typed resource generation into a multiplatform project.

It reads the project descriptor (resgen.cue or resgen.yaml), applies the
declared plugins and targets, and registers one generation task per resource
kind and build target:
  - strings, plurals, images and fonts
  - the shared source set, the Android library and every Apple native target
  - Starlark build scripts for per-project overrides`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", ".", "project directory or descriptor file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&ciMode, "ci", false, "use CI defaults: JSON logs with unix timestamps")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json); default console, json with --ci")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace-exporter", "none", "trace exporter (none, stdout, otlp)")
	rootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for trace export")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the command")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}

// session holds the telemetry and descriptor loader of one command invocation.
type session struct {
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
	loader *config.Loader
}

func telemetryConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if ciMode {
		cfg = telemetry.CIConfig()
	}
	cfg.ServiceVersion = buildVersion
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	cfg.Tracing.Exporter = traceExporter
	cfg.Tracing.Enabled = traceExporter != "" && traceExporter != "none"
	cfg.Tracing.Endpoint = otlpEndpoint

	cfg.Metrics.TextfilePath = metricsFile
	return cfg
}

func newSession() (*session, error) {
	tel, err := telemetry.NewTelemetry(telemetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return &session{
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("cli"),
		loader: config.NewLoader(config.WithLoaderLogger(tel.Logger)),
	}, nil
}

// load reads the project descriptor and materializes the host project.
func (s *session) load(ctx context.Context) (*config.Build, error) {
	d, err := s.loader.Load(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	return config.BuildProject(d, config.WithTelemetry(s.tel))
}

// configure loads the project and evaluates it, registering generation tasks.
// The build is returned alongside a configuration error for reporting.
func (s *session) configure(ctx context.Context) (*config.Build, error) {
	build, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := build.Configure(ctx); err != nil {
		return build, err
	}
	return build, nil
}

// close flushes metrics and traces.
func (s *session) close(ctx context.Context) {
	if err := s.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithError(err).Warn("Failed to flush telemetry")
	}
}

func descriptorName(d *config.Descriptor) string {
	if len(d.SourceFiles) == 0 {
		return d.Dir
	}
	return d.SourceFiles[0]
}
