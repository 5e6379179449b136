package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	checkmate "github.com/checkmate-ci/checkmate"
	"github.com/checkmate-ci/checkmate/exitcodes"
	"github.com/checkmate-ci/checkmate/flags"
	"github.com/checkmate-ci/checkmate/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "checkmate"
	app.Usage = "Test report converter for CI"
	app.Description = "checkmate converts test result files from many tools into markdown reports, HTML pages and capped failure annotations"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Unspecified errors are operational, default to exit code 2
			cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger, err := setupLogging(ctx)
	if err != nil {
		return checkmate.NewRuntimeError(err)
	}

	if ctx.Bool(flags.Tracing.Name) {
		shutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithServiceName("checkmate"),
			otelconfig.WithServiceVersion(Version),
		)
		if err != nil {
			return checkmate.NewRuntimeError(fmt.Errorf("failed to setup open telemetry: %w", err))
		}
		defer shutdown()
	}

	cfg, err := checkmate.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return checkmate.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	if cfg.HTTPAddr != "" {
		svc := service.New()
		svc.Start(cfg.HTTPAddr)
		defer func() {
			if err := svc.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down http server", "error", err)
			}
		}()
	}

	converter, err := checkmate.New(cfg, Version)
	if err != nil {
		return checkmate.NewRuntimeError(fmt.Errorf("failed to create checkmate: %w", err))
	}

	return converter.Run(ctx.Context)
}

// setupLogging installs the process-wide logger from the log-level and
// log-format flags. Logs go to stderr, stdout carries the report.
func setupLogging(ctx *cli.Context) (log.Logger, error) {
	level, err := parseLogLevel(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch format := ctx.String(flags.LogFormat.Name); format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "terminal":
		useColor := term.IsTerminal(int(os.Stderr.Fd()))
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}

func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}
