package app

import (
	"context"
	"time"
)

// RunUntilShutdown runs the app until ctx is cancelled, then closes it within
// the configured shutdown timeout.
func (app *App) RunUntilShutdown(ctx context.Context) error {
	runErr := app.Run(ctx)
	if runErr != nil {
		app.Observability.Logger.Error("Application stopped with error", "error", runErr)
	}

	timeout := app.Config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Close(shutdownCtx); err != nil {
		app.Observability.Logger.Error("Error during shutdown", "error", err)
		if runErr == nil {
			return err
		}
	}
	return runErr
}
