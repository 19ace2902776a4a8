package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(signalCtx)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	validator, err := auth.NewAccessValidator(auth.AccessValidatorConfig{
		SigningSecret: []byte(app.config.AuthSigningSecret),
		Issuer:        app.config.AuthIssuer,
		Audience:      app.config.AuthAudience,
		CookieName:    app.config.AuthCookieName,
	})
	if err != nil {
		return err
	}

	scheduler, err := app.newScheduler()
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Validator:     validator,
		Entries:       app.entries,
		Medications:   app.medications,
		Reminders:     app.reminders,
		Ticks:         scheduler,
		Metrics:       app.recorder,
		Location:      app.reminders.Location(),
		CORSOrigins:   app.config.CORSOrigins,
		TriggerSecret: app.config.ReminderTriggerSecret,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              app.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedulerDone := make(chan struct{})
	if app.config.ReminderSchedulerEnabled {
		go func() {
			defer close(schedulerDone)
			logger.Info("reminder scheduler starting", zap.String("time_zone", app.config.ReminderTimeZone))
			if err := scheduler.Run(signalCtx); err != nil {
				logger.Error("reminder scheduler stopped", zap.Error(err))
			}
		}()
	} else {
		close(schedulerDone)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", app.config.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		<-schedulerDone
		return err
	case err := <-errCh:
		stop()
		<-schedulerDone
		return err
	}
}
