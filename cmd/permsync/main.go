// Command permsync manages connector permission trees and drives the sync
// workflow.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/permsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/permsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/permsync/internal/core/services"
	"github.com/custodia-labs/permsync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("loading .env: %v", err)
	}

	configStore, err := file.NewConfigStore(os.Getenv("PERMSYNC_CONFIG"))
	if err != nil {
		logger.Error("config: %v", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		logger.Error("settings: %v", err)
		return 1
	}
	if settings.Verbose {
		logger.SetVerbose(true)
	}

	svc := cli.Services{Settings: settingsService}

	// Backend failures leave the config commands usable so the
	// configuration can be fixed.
	if err := settingsService.Validate(); err != nil {
		logger.Warn("configuration: %v", err)
	} else {
		wired, err := wire(ctx, settings)
		if err != nil {
			logger.Error("startup: %v", err)
		} else {
			defer wired.Close()
			svc.Permissions = wired.Permissions
			svc.Connectors = wired.Connectors
			svc.Scheduler = wired.Scheduler
		}
	}

	cli.SetVersion(version)
	cli.SetServices(svc)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
