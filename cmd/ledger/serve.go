package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lawnledger/internal/cli"
	apphttp "lawnledger/internal/http"
	applog "lawnledger/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			ctx, stop := cli.SignalContext(a.commandContext(cmd))
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Override PORT")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	svc, res, cleanup, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := apphttp.NewServer(":"+a.cfg.Port, svc, apphttp.Options{
		HistoryLimit:  a.cfg.HistoryLimit,
		ViewCacheSize: a.cfg.ViewCacheSize,
		ViewCacheTTL:  a.cfg.ViewCacheTTL,
		Ready:         res.Ping,
		Logger:        a.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.InfoContext(gctx, "Starting ledger server",
			"port", a.cfg.Port,
			"backend", a.cfg.DataBackend,
			"voice", a.cfg.VoiceEnabled,
			"amqp", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("Server error", applog.FieldError, err)
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
