package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/offer-diagnostics/internal/api"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report HTTP API",
	RunE:  serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialising storage: %w", err)
	}
	rt, err := buildRuntime(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer rt.close()

	server := api.NewServer(cfg.Server, rt.svc, rt.health, rt.metrics)
	errc := make(chan error, 1)
	go func() {
		logger.Info("offerdiag: listening", "addr", cfg.Server.Addr(), "source", cfg.Report.Source, "storage", cfg.Storage.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("offerdiag: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("offerdiag: server stopped")
	return nil
}
