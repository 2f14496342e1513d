package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-txcache/cache"
	"github.com/goliatone/go-txcache/internal/database"
	"github.com/goliatone/go-txcache/pkg/di"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	driver     string
	dsn        string
	setupFiles []string
)

var rootCmd = &cobra.Command{
	Use:   "txcachectl",
	Short: "Run mapped statements through the transactional cache",
	Long: `txcachectl loads mapper documents, runs their statements against a
database through transactional cache sessions and reports how the shared
cache behaves. By default it uses an in-memory sqlite database that can be
prepared with --setup scripts.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", database.DriverSQLite, "Database driver (sqlite3, postgres)")
	rootCmd.PersistentFlags().
		StringVar(&dsn, "dsn", "file:txcachectl?mode=memory&cache=shared", "Database connection string")
	rootCmd.PersistentFlags().
		StringSliceVar(&setupFiles, "setup", nil, "SQL scripts executed before running, in order")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger logs to stderr at debug level in verbose mode and discards otherwise.
func newLogger() *slog.Logger {
	if !verbose || quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// environment is an opened database plus a container with mappers loaded.
type environment struct {
	db        *bun.DB
	container *di.Container
	logger    *slog.Logger
}

func openEnvironment(ctx context.Context, mappers ...string) (*environment, error) {
	logger := newLogger()

	db, err := database.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	for _, path := range setupFiles {
		if err := runScript(ctx, db, path); err != nil {
			db.Close()
			return nil, err
		}
		printVerbose("Applied setup script %s\n", path)
	}

	container, err := di.NewContainer(cache.DefaultConfig(), di.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, path := range mappers {
		if err := container.LoadMapperFile(path); err != nil {
			db.Close()
			return nil, err
		}
		printVerbose("Loaded mapper %s\n", path)
	}

	return &environment{db: db, container: container, logger: logger}, nil
}

func (e *environment) Close() error {
	return e.db.Close()
}

// runScript executes the ;-separated statements of a SQL file.
func runScript(ctx context.Context, db *bun.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read setup script: %w", err)
	}
	for _, stmt := range strings.Split(string(data), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setup script %s: %w", path, err)
		}
	}
	return nil
}

// parseParams turns name=value arguments into a parameter object. Values
// that parse as integers, floats or booleans keep that type.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", arg)
		}
		params[name] = parseValue(value)
	}
	return params, nil
}

func parseValue(value string) any {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
