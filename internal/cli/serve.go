package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	appLog "predicacal/internal/log"
	"predicacal/internal/service"
	"predicacal/internal/web"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI, the API and the cache warmer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.listen != "" {
				a.cfg.Listen = a.listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&a.listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// serve blocks until ctx is cancelled, then shuts the HTTP server and the
// scheduler down.
func (a *app) serve(ctx context.Context) error {
	appLog.Info("predicacal starting", "version", version)
	appLog.Info("effective config",
		"listen", a.cfg.Listen,
		"timezone", a.cfg.Timezone,
		"refresh", a.cfg.RefreshCron,
		"storage", a.cfg.Storage.Driver,
		"cache", a.cfg.Cache.Driver,
		"locale", a.cfg.Style.Locale,
	)

	svc, closeFn, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	sched, err := service.NewScheduler(svc, a.cfg.RefreshCron)
	if err != nil {
		return err
	}
	sched.Start()

	srv := web.NewServer(a.cfg, svc, nil).NewHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			_ = sched.Stop(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		appLog.Warn("scheduler did not stop in time", "err", err)
	}
	appLog.Info("predicacal exiting")
	return nil
}
