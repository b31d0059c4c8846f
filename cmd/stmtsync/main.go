package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/config"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger/lunchmoney"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger/sqlite"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/logging"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ui"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		ui.SetOutput(os.Stderr)
		ui.Error(err.Error())
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every subcommand
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "stmtsync",
		Short:   "Import bank statement exports into a personal-finance ledger",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every detection and row decision")

	rootCmd.AddCommand(newImportCommand(opts))
	rootCmd.AddCommand(newAccountsCommand(opts))

	return rootCmd
}

// setup loads the configuration and builds the logger.
func (o *globalOptions) setup(stderr io.Writer) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	return cfg, logging.New(level, stderr), nil
}

// openLedger connects the configured ledger driver. The returned close
// function must be called when done.
func openLedger(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (ledger.Ledger, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	switch cfg.Ledger.Driver {
	case config.DriverSQLite:
		seed, err := cfg.SeedAccounts()
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.Open(ctx, cfg.Ledger.SQLitePath, seed, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		return store, store.Close, nil
	default:
		client, err := lunchmoney.New(lunchmoney.Config{
			BaseURL:           cfg.Ledger.BaseURL,
			AccessToken:       cfg.Ledger.AccessToken,
			RequestsPerSecond: cfg.Ledger.RequestsPerSecond,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}
}
