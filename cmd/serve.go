package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealmachine-cli/internal/config"
	"github.com/sells-group/dealmachine-cli/internal/monitoring"
	"github.com/sells-group/dealmachine-cli/internal/server"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead proxy and scrape log server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		api := server.New(newDealMachineClient(cfg), st, serverOptions(cfg))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			g.Go(func() error {
				checker.Run(gctx)
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})

		return g.Wait()
	},
}

func serverOptions(c *config.Config) server.Options {
	return server.Options{
		PageSize:       c.DealMachine.PageSize,
		PageDelay:      time.Duration(c.DealMachine.PageDelayMs) * time.Millisecond,
		AuthToken:      c.Server.AuthToken,
		AllowedOrigins: c.Server.AllowedOrigins,
		AuditTimeout:   time.Duration(c.Audit.TimeoutSecs) * time.Second,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
