package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/a3tai/docingest/internal/config"
	"github.com/a3tai/docingest/internal/deadline"
	exterr "github.com/a3tai/docingest/internal/errors"
	"github.com/a3tai/docingest/internal/input"
	"github.com/a3tai/docingest/internal/mcp"
	"github.com/a3tai/docingest/internal/pipeline"
	"github.com/a3tai/docingest/internal/recognize"
	"github.com/a3tai/docingest/internal/wrapper"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	// The deadline covers the whole process, argument parsing included
	start := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, start, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code
func run(ctx context.Context, start time.Time, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.LoadFromArgs(args, stderr)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(stdout)
		return exterr.ExitOK
	case errors.Is(err, pflag.ErrHelp):
		return exterr.ExitOK
	case err != nil:
		fmt.Fprintf(stderr, "docingest: %v\n", err)
		return exterr.ExitCodeOf(err)
	}

	logger := setupLogging(cfg, stderr)
	logger.Debug("configuration loaded", "config", cfg.String())

	opener := wrapper.NewOpener(&wrapper.Poppler{Binary: cfg.Renderer}, logger)

	if cfg.MCP {
		return runMCPMode(ctx, cfg, opener, logger, stderr)
	}

	source, err := input.NewResolver(cfg.MaxInputSize).WithStdin(stdin).Resolve(cfg.File)
	if err != nil {
		fmt.Fprintf(stderr, "docingest: %v\n", err)
		return exterr.ExitCodeOf(err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("removing temporary input failed", "path", source.Path, "error", err)
		}
	}()

	var recognizer recognize.Recognizer
	if cfg.OCREnabled() {
		recognizer = newRecognizer(cfg, logger)
	}

	supervisor := deadline.StartedAt(cfg.Timeout, start)
	controller := pipeline.NewController(cfg, opener, recognizer,
		pipeline.WithDeadlineCheck(supervisor.Expired),
		pipeline.WithLogger(logger),
	)
	outcome := controller.Run(ctx, source, stdout)

	switch outcome.Status {
	case pipeline.Failed:
		fmt.Fprintf(stderr, "docingest: %v\n", outcome.Err)
	case pipeline.CompletedPartial:
		fmt.Fprintf(stderr, "docingest: stopped early (%s) after %d of %d pages\n",
			outcome.Reason, outcome.PagesWritten, outcome.PagesSelected)
	}
	return outcome.ExitCode()
}

// setupLogging keeps stderr quiet unless verbose output was asked for, so
// that only the fatal diagnostic line reaches it
func setupLogging(cfg config.RunConfig, stderr io.Writer) *slog.Logger {
	if !cfg.Verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRecognizer(cfg config.RunConfig, logger *slog.Logger) *recognize.Tesseract {
	return recognize.NewTesseract(recognize.TesseractOptions{
		TessdataDir:   cfg.Tessdata,
		MinConfidence: cfg.MinConfidence,
		Logger:        logger,
	})
}

// runMCPMode serves extraction as an MCP tool; stdout carries the protocol
func runMCPMode(ctx context.Context, cfg config.RunConfig, opener *wrapper.Opener, logger *slog.Logger, stderr io.Writer) int {
	server, err := mcp.NewServer(cfg, version, opener, newRecognizer(cfg, logger), logger)
	if err != nil {
		fmt.Fprintf(stderr, "docingest: failed to create MCP server: %v\n", err)
		return exterr.ExitInternal
	}
	if err := server.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "docingest: %v\n", err)
		return exterr.ExitInternal
	}
	return exterr.ExitOK
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "docingest\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
