package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/mcpserver"
	"github.com/vinodismyname/mcpsheets/internal/registry"
	"github.com/vinodismyname/mcpsheets/internal/runtime"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/internal/spreadsheet"
	"github.com/vinodismyname/mcpsheets/internal/stdio"
	"github.com/vinodismyname/mcpsheets/internal/telemetry"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/version"
)

func main() {
	version.Set(config.DefaultVersion)
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		basePath         string
		logLevel         string
		logFormat        string
		readOnly         bool
		operationTimeout time.Duration
		maxLineBytes     int
	)

	cmd := &cobra.Command{
		Use:           "mcpsheets",
		Short:         "Spreadsheet MCP server over stdio",
		Long:          `mcpsheets serves xlsx and csv tools to MCP clients over newline-delimited JSON-RPC on stdin/stdout. All files live under one base directory.`,
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("base-path") {
				cfg.BasePath = basePath
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if flags.Changed("read-only") {
				cfg.ReadOnly = readOnly
			}
			if flags.Changed("operation-timeout") {
				cfg.OperationTimeout = operationTimeout
			}
			if flags.Changed("max-line-bytes") {
				cfg.MaxLineBytes = maxLineBytes
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&basePath, "base-path", config.DefaultBasePath, "Directory every spreadsheet path resolves inside (env SPREADSHEET_BASE_PATH)")
	flags.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error (env SPREADSHEET_LOG_LEVEL)")
	flags.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format on stderr: json or console (env SPREADSHEET_LOG_FORMAT)")
	flags.BoolVar(&readOnly, "read-only", false, "Hide and reject every mutating tool (env SPREADSHEET_READ_ONLY)")
	flags.DurationVar(&operationTimeout, "operation-timeout", config.DefaultOperationTimeout, "Deadline for a single tool call, 0 disables (env SPREADSHEET_OPERATION_TIMEOUT)")
	flags.IntVar(&maxLineBytes, "max-line-bytes", config.DefaultMaxLineBytes, "Maximum size of one JSON-RPC line (env SPREADSHEET_MAX_LINE_BYTES)")
	return cmd
}

// newLogger builds the process logger. Logs go to errOut only; stdout is the
// protocol stream.
func newLogger(cfg config.Config, errOut io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	out := errOut
	if strings.EqualFold(cfg.LogFormat, "console") {
		out = zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", config.ServerName).Logger()
}

// serve wires the server and blocks until the input ends or ctx is done.
func serve(ctx context.Context, cfg config.Config, in io.Reader, out, errOut io.Writer) error {
	logger := newLogger(cfg, errOut)
	ctx = logger.WithContext(ctx)

	resolver, err := security.NewResolver(cfg.BasePath)
	if err != nil {
		logger.Error().Err(err).Str("base_path", cfg.BasePath).Msg("invalid base directory")
		return err
	}

	limits := runtime.LimitsFromConfig(cfg)
	controller := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(controller)

	svc := spreadsheet.NewService(cfg, resolver, workbooks.NewManager(controller), logger)
	tools := registry.Default()
	hooks := telemetry.NewHooks(logger)
	filter := registry.NewReadOnlyFilter(cfg.ReadOnly)

	srv := mcpserver.New(config.ServerName, version.Version(), tools, svc.Handle,
		mcpserver.WithLogger(logger),
		mcpserver.WithHooks(hooks),
		mcpserver.WithToolHandlerMiddleware(hooks.ToolMiddleware),
		mcpserver.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		mcpserver.WithToolFilter(filter.FilterTools),
	)

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Str("revision", version.Revision()).
		Str("base_path", resolver.Base()).
		Bool("read_only", cfg.ReadOnly).
		Dur("call_timeout", limits.CallTimeout).
		Int("max_concurrent_calls", limits.MaxConcurrentCalls).
		Int("max_open_workbooks", limits.MaxOpenWorkbooks).
		Int("model_context_size", tools.ModelContextSize("gpt-4o")).
		Msg("server bootstrap configured")

	handler := stdio.NewHandler(srv,
		stdio.WithIO(in, out),
		stdio.WithLogger(logger),
		stdio.WithMaxLineBytes(cfg.MaxLineBytes),
	)

	hooks.OnServerStart()
	err = handler.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	hooks.OnServerStop(err)
	return err
}
