package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/config"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/database"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/entries"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/medications"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/push"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/reminders"
)

// application holds the wired services shared by the commands.
type application struct {
	config      config.AppConfig
	logger      *zap.Logger
	db          *gorm.DB
	recorder    *metrics.Recorder
	entries     *entries.Service
	medications *medications.Service
	reminders   *reminders.Service
	redis       *redis.Client
}

func newApplication(ctx context.Context) (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	location, err := appConfig.Location()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.Config{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:   appConfig,
		logger:   logger,
		db:       db,
		recorder: metrics.NewRecorder(),
	}

	app.entries, err = entries.NewService(entries.ServiceConfig{
		Database: db,
		Location: location,
		Logger:   logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	app.medications, err = medications.NewService(medications.ServiceConfig{
		Database:   db,
		IDProvider: medications.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	sender, err := newSender(appConfig, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.reminders, err = reminders.NewService(reminders.ServiceConfig{
		Database:    db,
		Sender:      sender,
		Location:    location,
		Concurrency: appConfig.ReminderConcurrency,
		Observer:    app.recorder,
		Logger:      logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	if appConfig.ReminderRedisURL != "" {
		app.redis, err = reminders.NewRedisClient(ctx, appConfig.ReminderRedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

func newSender(appConfig config.AppConfig, logger *zap.Logger) (reminders.Sender, error) {
	if !appConfig.PushEnabled() {
		logger.Warn("push delivery disabled: vapid keys not configured")
		return push.DisabledSender{}, nil
	}
	return push.NewWebPushSender(push.Config{
		VAPIDPublicKey:  appConfig.PushVAPIDPublicKey,
		VAPIDPrivateKey: appConfig.PushVAPIDPrivateKey,
		Subscriber:      appConfig.PushSubscriber,
		TTL:             appConfig.PushTTL,
		Logger:          logger,
	})
}

// newScheduler builds the per-minute scheduler, claiming minutes in redis when configured.
func (a *application) newScheduler() (*reminders.Scheduler, error) {
	cfg := reminders.SchedulerConfig{
		Runner:   a.reminders,
		Observer: a.recorder,
		Logger:   a.logger,
	}
	if a.redis != nil {
		lock, err := reminders.NewRedisTickLock(reminders.RedisTickLockConfig{Client: a.redis})
		if err != nil {
			return nil, err
		}
		cfg.Lock = lock
	}
	return reminders.NewScheduler(cfg)
}

func (a *application) Close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown cleanup failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
