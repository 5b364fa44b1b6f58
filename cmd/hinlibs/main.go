// cmd/hinlibs/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hinlibs/internal/circulation"
	"hinlibs/internal/clients"
	"hinlibs/internal/config"
	"hinlibs/internal/desk"
	"hinlibs/internal/eventstore"
	"hinlibs/internal/logger"
	"hinlibs/internal/membership"
	"hinlibs/internal/server"
	"hinlibs/internal/telemetry"
)

var version = "dev"

// app holds what both subcommands share once the environment is loaded.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    *circulation.Store
	sessions membership.Service
	closers  []func(context.Context) error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port        string
		logLevel    string
		databaseURL string
	)

	root := &cobra.Command{
		Use:          "hinlibs",
		Short:        "HinLIBS library circulation desk",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres journal DSN (overrides DATABASE_URL)")

	overrides := func(cfg *config.Config) {
		if port != "" {
			cfg.Port = port
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the circulation desk over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, overrides)
			if err != nil {
				return err
			}
			defer a.close()

			return server.New(a.cfg.Addr(), a.store, a.sessions, a.log).Run(ctx)
		},
	}
	serve.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")

	deskCmd := &cobra.Command{
		Use:   "desk",
		Short: "Run the interactive terminal desk",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := bootstrap(ctx, overrides)
			if err != nil {
				return err
			}
			defer a.close()

			// Desk sessions are never rate limited.
			a.sessions = membership.NewService(a.store, membership.DeskLimits, a.log.Named("membership"))

			fmt.Fprintln(cmd.OutOrStdout(), "Welcome to HinLIBS. Type 'exit' at the name prompt to leave.")
			d := desk.New(a.store, a.sessions, cmd.InOrStdin(), cmd.OutOrStdout(), desk.WithLogger(a.log))
			return d.Run(ctx)
		},
	}

	var target string
	check := &cobra.Command{
		Use:   "check",
		Short: "Probe a running server's health and consistency audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client := clients.NewCirculationClient(target, &http.Client{Timeout: 5 * time.Second})
			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			report, err := client.Audit(ctx)
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}
			if !report.Consistent {
				for _, inc := range report.Inconsistencies {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", inc.Subject, inc.Detail)
				}
				return fmt.Errorf("%d inconsistencies found", len(report.Inconsistencies))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok: circulation tables consistent")
			return nil
		},
	}
	check.Flags().StringVar(&target, "url", "http://localhost:8080", "base URL of the hinlibs server")

	root.AddCommand(serve, deskCmd, check)
	return root
}

func bootstrap(ctx context.Context, overrides func(*config.Config)) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	overrides(&cfg)

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error {
		log.Sync()
		return nil
	})

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Version:     version,
	}, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	opts := []circulation.Option{circulation.WithLogger(log.Named("circulation"))}
	if cfg.DatabaseURL != "" {
		journal, err := eventstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return journal.Close() })
		opts = append(opts, circulation.WithEventStore(journal))
		log.Info("journalling to postgres")
	}

	a.store, err = circulation.NewStore(opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sessions = membership.NewService(a.store, membership.Limits{
		PerMinute: cfg.SessionRatePerMinute,
		Burst:     cfg.SessionBurst,
	}, log.Named("membership"))

	return a, nil
}

// close runs the registered closers in reverse order.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown step failed", zap.Error(err))
		}
	}
}
