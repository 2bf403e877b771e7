package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lawnledger/internal/backend"
	"lawnledger/internal/cli"
	"lawnledger/internal/config"
	applog "lawnledger/internal/log"
	"lawnledger/internal/services"
	"lawnledger/internal/voice"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:   "ledger",
		Short: "Record lawn-care income and expenses",
		Long: `A personal income/expense ledger for a lawn-care business.

Transactions are stored in the configured backend (DATA_BACKEND) and can be
captured from a form, a spoken sentence or a saved template.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newParseCmd(),
		newAddCmd(a),
		newRemoveCmd(a),
		newViewCmd(a),
		newHistoryCmd(a),
		newTemplatesCmd(a),
		newEventsCmd(a),
	)
	return root
}

// openService hydrates the ledger from the configured backend. The returned
// cleanup releases the backend.
func (a *app) openService(ctx context.Context) (*services.LedgerService, *backend.BackendResult, func(), error) {
	if a.cfg.DataBackend == config.BackendMemory {
		a.logger.WarnContext(ctx, "Memory backend: changes are lost when the process exits",
			applog.FieldComponent, applog.ComponentBackend)
	}

	l, res, err := cli.OpenLedger(ctx, a.logger, a.cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var parser *voice.Parser
	if a.cfg.VoiceEnabled {
		parser = voice.NewParser()
	}
	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			a.logger.ErrorContext(ctx, "Backend cleanup failed", applog.FieldError, err)
		}
	}
	return services.NewLedgerService(l, parser, res.Publisher), res, cleanup, nil
}

// commandContext returns the command context carrying the process logger.
func (a *app) commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return applog.NewContext(ctx, a.logger)
}
