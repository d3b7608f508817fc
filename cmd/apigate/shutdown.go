package main

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// run starts the sweeper and the server, then blocks until ctx is cancelled
// or the server fails, and shuts everything down.
func (app *application) run(ctx context.Context) error {
	app.limiter.StartSweeper(app.config.RateLimit.SweepInterval.Duration())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		app.logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			app.logger.Error("server failed", observability.Error(serveErr))
		}
	}

	timeout := app.config.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	return errors.Join(serveErr, app.shutdown(shutdownCtx))
}

// shutdown fails readiness, stops the server so in-flight requests drain
// through the limiter, then stops the sweeper and the tracer.
func (app *application) shutdown(ctx context.Context) error {
	var errs []error

	app.health.SetDraining(true)

	if err := app.server.Stop(ctx); err != nil {
		app.logger.Error("failed to stop server gracefully", observability.Error(err))
		errs = append(errs, err)
	}

	app.limiter.Stop()

	if err := app.tracer.Shutdown(ctx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
		errs = append(errs, err)
	}

	app.logger.Info("apigate stopped")
	return errors.Join(errs...)
}
