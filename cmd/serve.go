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

	"github.com/sells-group/fsbo/internal/api"
	"github.com/sells-group/fsbo/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

var (
	servePort    int
	serveNoSweep bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var sched *scheduler.Scheduler
		if !serveNoSweep {
			sched, err = scheduler.New(scheduler.Jobs(cfg.Offers, cfg.Listings, env.Offers, env.Listings))
			if err != nil {
				return err
			}
			sched.Start()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.NewRouter(cfg.Server, api.NewAuthenticator(cfg.Auth), env.Deps()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
			if sched != nil {
				if err := sched.Stop(shutdownCtx); err != nil {
					zap.L().Warn("scheduler shutdown", zap.Error(err))
				}
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		<-stopped

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoSweep, "no-sweep", false, "do not run the offer and listing expiry sweeps")
	rootCmd.AddCommand(serveCmd)
}
