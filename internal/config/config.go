package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "FROGSY"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "frogsy.db"
	defaultLogLevel     = "info"
	defaultCookieName   = "frogsy_access"
	defaultAudience     = "authenticated"
	defaultTimeZone     = "Africa/Johannesburg"
	defaultConcurrency  = 8
	defaultSubscriber   = "mailto:reminders@frogsy.app"
	defaultPushTTL      = time.Hour

	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

// AppConfig captures runtime configuration for the API server and CLI.
type AppConfig struct {
	HTTPAddress string
	CORSOrigins []string

	DatabaseDriver string
	DatabasePath   string
	DatabaseDSN    string

	LogLevel string

	AuthSigningSecret string
	AuthIssuer        string
	AuthAudience      string
	AuthCookieName    string

	ReminderTimeZone         string
	ReminderConcurrency      int
	ReminderSchedulerEnabled bool
	ReminderTriggerSecret    string
	ReminderRedisURL         string

	PushVAPIDPublicKey  string
	PushVAPIDPrivateKey string
	PushSubscriber      string
	PushTTL             time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.cors_origins", []string{"http://localhost:3000"})
	configViper.SetDefault("database.driver", DatabaseDriverSQLite)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.audience", defaultAudience)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("reminders.time_zone", defaultTimeZone)
	configViper.SetDefault("reminders.concurrency", defaultConcurrency)
	configViper.SetDefault("reminders.scheduler_enabled", true)
	configViper.SetDefault("push.subscriber", defaultSubscriber)
	configViper.SetDefault("push.ttl", defaultPushTTL)
}

// ReadFile merges an optional config file into configViper.
func ReadFile(configViper *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	configViper.SetConfigFile(path)
	if err := configViper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:              configViper.GetString("http.address"),
		CORSOrigins:              splitList(configViper.GetStringSlice("http.cors_origins")),
		DatabaseDriver:           strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:             configViper.GetString("database.path"),
		DatabaseDSN:              configViper.GetString("database.dsn"),
		LogLevel:                 configViper.GetString("log.level"),
		AuthSigningSecret:        configViper.GetString("auth.signing_secret"),
		AuthIssuer:               configViper.GetString("auth.issuer"),
		AuthAudience:             configViper.GetString("auth.audience"),
		AuthCookieName:           configViper.GetString("auth.cookie_name"),
		ReminderTimeZone:         configViper.GetString("reminders.time_zone"),
		ReminderConcurrency:      configViper.GetInt("reminders.concurrency"),
		ReminderSchedulerEnabled: configViper.GetBool("reminders.scheduler_enabled"),
		ReminderTriggerSecret:    configViper.GetString("reminders.trigger_secret"),
		ReminderRedisURL:         configViper.GetString("reminders.redis_url"),
		PushVAPIDPublicKey:       configViper.GetString("push.vapid_public_key"),
		PushVAPIDPrivateKey:      configViper.GetString("push.vapid_private_key"),
		PushSubscriber:           configViper.GetString("push.subscriber"),
		PushTTL:                  configViper.GetDuration("push.ttl"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Location resolves the reminder time zone.
func (c AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.ReminderTimeZone)
}

// PushEnabled reports whether a VAPID key pair is configured.
func (c AppConfig) PushEnabled() bool {
	return strings.TrimSpace(c.PushVAPIDPublicKey) != "" && strings.TrimSpace(c.PushVAPIDPrivateKey) != ""
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AuthSigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	switch c.DatabaseDriver {
	case DatabaseDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case DatabaseDriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.AuthCookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("reminders.time_zone: %w", err)
	}
	if c.ReminderConcurrency <= 0 {
		return fmt.Errorf("reminders.concurrency must be positive")
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
