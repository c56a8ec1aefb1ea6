package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"dailytasks/internal/handlers"
	"dailytasks/internal/store"
	"dailytasks/internal/taskstore"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task list over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	slot, err := store.Open(ctx, a.cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", a.cfg.Storage.Driver, err)
	}

	tasks, err := taskstore.Open(ctx, slot, taskstore.WithLogger(a.log))
	if err != nil {
		slot.Close()
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handlers.New(tasks, a.log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr, "driver", a.cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		a.cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				a.log.Info("shutting down server")
				return errors.Join(srv.Shutdown(ctx), slot.Close())
			},
		},
	)

	select {
	case err := <-listenErr:
		slot.Close()
		return fmt.Errorf("server failed: %w", err)
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		a.log.Info("server stopped")
		return nil
	}
}
