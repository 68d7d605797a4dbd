package cmd

import (
	"context"
	"errors"
	"fmt"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"trading-dashboard/internal/delivery/http"
	"trading-dashboard/pkg/logger"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the dashboard API and the analysis scheduler",
	RunE:  Start,
}

func Start(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return fmt.Errorf("failed to create app dependency: %w", err)
	}
	defer func() {
		if err := appDep.Close(); err != nil {
			appDep.log.Error("Failed to close app dependency", logger.ErrorField(err))
		}
		_ = appDep.log.Sync()
	}()

	if appDep.cfg.DB.AutoMigrateOnBoot {
		if err := runMigrations(appDep.cfg, "up"); err != nil {
			return err
		}
	}

	repo := appDep.Repository()
	services := appDep.Services(repo)
	httpHandler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, services, appDep.log, appDep.hub, appDep.HealthChecks(repo))

	if appDep.cfg.Scheduler.AutoStart {
		if _, err := services.SchedulerService.Start(ctx); err != nil {
			appDep.log.Error("Failed to start scheduler", logger.ErrorField(err))
		}
	}

	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		appDep.log.Info("Shutting down gracefully...")
	case err := <-serverErr:
		appDep.log.Error("HTTP server stopped unexpectedly", logger.ErrorField(err))
	}

	if err := apiServer.Stop(); err != nil {
		appDep.log.Warn("HTTP server did not stop cleanly", logger.ErrorField(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appDep.cfg.Scheduler.ShutdownTimeout)
	defer cancel()
	if err := services.SchedulerService.Shutdown(shutdownCtx); err != nil {
		appDep.log.Warn("Scheduler did not drain before timeout", logger.ErrorField(err))
	}
	return nil
}
