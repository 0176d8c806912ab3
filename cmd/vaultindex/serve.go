package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"vaultindex/internal/http"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the retrieval and maintenance HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(ctx context.Context, a *app) error {
				if port == "" {
					port = a.cfg.APIPort
				}
				router := http.NewRouter(&http.Deps{
					Retriever:  a.retrieval,
					Maintainer: a.maintenance,
					DB:         a.db,
					Store:      a.store,
					Table:      a.cfg.Embedding.TableName(),
					Logger:     a.logger,
					JobContext: func() context.Context { return ctx },
				})
				return listenAndServe(ctx, a, ":"+port, router)
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default from config)")
	return cmd
}

// listenAndServe runs the server until ctx is cancelled, then shuts it down.
func listenAndServe(ctx context.Context, a *app, addr string, handler nethttp.Handler) error {
	srv := &nethttp.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown: %w", err)
	}
	a.logger.Info("API server stopped")
	return nil
}
