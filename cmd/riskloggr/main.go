package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dshills/riskloggr/internal/config"
	"github.com/dshills/riskloggr/internal/store"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitNoResult = 2
	exitInput    = 3
	exitProvider = 4
	exitStorage  = 5
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose bool
	db      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:     "riskloggr",
		Short:   "Classify operational-risk incidents",
		Long:    "riskloggr classifies operational-risk incident descriptions into Basel II categories, scores them, and maps them to COSO, ISO 31000, SOX and GDPR.",
		Version: version,
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&g.verbose, "verbose", false, "Log processing steps to stderr")
	pf.StringVar(&g.db, "db", "", "Database directory (overrides config and "+config.EnvDatabase+")")

	root.AddCommand(
		newClassifyCmd(g),
		newListCmd(g),
		newShowCmd(g),
		newUpdateCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newHeatmapCmd(g),
		newConfigureCmd(g),
	)
	return root
}

// newLogger writes warnings and errors to stderr, and everything down to
// debug when verbose is set.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and environment, then applies --db.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, codeError(exitInput, "loading config: %s", err)
	}
	if g.db != "" {
		cfg.Database = g.db
	}
	return cfg, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(store.Config{Path: cfg.Database, Logger: logger})
	if err != nil {
		return nil, codeError(exitStorage, "opening database %s: %s", cfg.Database, err)
	}
	return st, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return codeError(exitInput, "writing output file: %s", err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return codeError(exitInput, "writing output: %s", err)
	}
	// Ensure output ends with a newline for terminal friendliness.
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}
