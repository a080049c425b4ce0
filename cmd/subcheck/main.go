// Command subcheck validates a timestamp,labels submission file.
//
//	subcheck [-expected-rows N] [-format text|json] [-delimiter ,] [-max-bytes N] FILE
//	subcheck serve
//
// Exit status is 0 when every check passed, 1 when a check failed and 2 when
// the file could not be loaded or the command line was invalid.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/JonMunkholm/subcheck/internal/config"
	"github.com/JonMunkholm/subcheck/internal/core"
	"github.com/JonMunkholm/subcheck/internal/history"
	"github.com/JonMunkholm/subcheck/internal/logging"
	"github.com/JonMunkholm/subcheck/internal/render"
	"github.com/JonMunkholm/subcheck/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const (
	exitPassed = 0
	exitFailed = 1
	exitError  = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// optionalInt is a flag that remembers whether it was given.
type optionalInt struct {
	n   int
	set bool
}

func (o *optionalInt) String() string {
	if !o.set {
		return ""
	}
	return strconv.Itoa(o.n)
}

func (o *optionalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid expected rows %q", s)
	}
	o.n, o.set = n, true
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// .env does not override variables already set in the environment
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "subcheck: %v\n", err)
		return exitError
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)
	if envErr == nil {
		logger.Debug("loaded .env file")
	}

	if len(args) > 0 && args[0] == "serve" {
		return serve(ctx, cfg, logger)
	}
	return check(args, cfg, logger, stdout, stderr)
}

func check(args []string, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	var expected optionalInt

	fs := flag.NewFlagSet("subcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&expected, "expected-rows", "expected number of data rows; enables the row count check")
	format := fs.String("format", "text", "report format: text or json")
	delimiter := fs.String("delimiter", cfg.Check.Delimiter, `field separator such as "," ";" or "tab" (default: by file extension)`)
	maxBytes := fs.Int64("max-bytes", cfg.Upload.MaxFileSize, "maximum file size in bytes; 0 disables the limit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: subcheck [flags] FILE")
		fmt.Fprintln(stderr, "       subcheck serve")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitPassed
		}
		return exitError
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitError
	}

	var writeReport func(io.Writer, core.Report) error
	switch strings.ToLower(*format) {
	case "text":
		writeReport = render.Text
	case "json":
		writeReport = render.JSON
	default:
		fmt.Fprintf(stderr, "subcheck: unknown format %q (want text or json)\n", *format)
		return exitError
	}

	opts := core.Options{ExpectedRows: cfg.Check.ExpectedRows}
	if expected.set {
		opts = core.WithExpectedRows(expected.n)
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(stderr, "subcheck: %s\n", core.FormatUserError(err))
		return exitError
	}

	comma, err := config.ParseDelimiter(*delimiter)
	if err != nil {
		fmt.Fprintf(stderr, "subcheck: invalid delimiter: %v\n", err)
		return exitError
	}
	if *maxBytes < 0 {
		fmt.Fprintln(stderr, "subcheck: -max-bytes must be non-negative")
		return exitError
	}

	validator := core.NewValidator(core.LoadOptions{Comma: comma, MaxBytes: *maxBytes}, logger)
	report := validator.ValidateFile(fs.Arg(0), opts)

	if err := writeReport(stdout, report); err != nil {
		logger.Error("write report", "error", err)
		return exitError
	}

	switch {
	case report.Status == core.StatusLoadFailed:
		return exitError
	case !report.Passed():
		return exitFailed
	default:
		return exitPassed
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	logger.Info("configuration loaded", "config", cfg.String())

	var runs web.RunStore
	if cfg.Database.Enabled() {
		pool, err := openPool(ctx, logger, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return exitFailed
		}
		defer pool.Close()

		store := history.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare run history", "error", err)
			return exitFailed
		}
		runs = store
	}

	server := web.NewServer(cfg, logger, runs)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return exitFailed
		}
		return exitPassed
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return exitFailed
	}
	logger.Info("server stopped")
	return exitPassed
}

func openPool(ctx context.Context, logger *slog.Logger, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(db.URL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
