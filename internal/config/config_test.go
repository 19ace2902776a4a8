package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	v := NewViper()
	v.Set("auth.signing_secret", "secret")

	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, cfg.HTTPAddress)
	assert.Equal(t, DatabaseDriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "Africa/Johannesburg", cfg.ReminderTimeZone)
	assert.Equal(t, 8, cfg.ReminderConcurrency)
	assert.True(t, cfg.ReminderSchedulerEnabled)
	assert.Equal(t, time.Hour, cfg.PushTTL)
	assert.False(t, cfg.PushEnabled())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("FROGSY_AUTH_SIGNING_SECRET", "from-env")
	t.Setenv("FROGSY_HTTP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FROGSY_REMINDERS_CONCURRENCY", "3")

	cfg, err := Load(NewViper())

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AuthSigningSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.ReminderConcurrency)
}

func TestLoadValidates(t *testing.T) {
	cases := map[string]map[string]any{
		"missing secret":  {},
		"unknown driver":  {"auth.signing_secret": "s", "database.driver": "mysql"},
		"postgres no dsn": {"auth.signing_secret": "s", "database.driver": "postgres"},
		"bad zone":        {"auth.signing_secret": "s", "reminders.time_zone": "Mars/Olympus"},
		"zero workers":    {"auth.signing_secret": "s", "reminders.concurrency": 0},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			v := NewViper()
			for key, value := range values {
				v.Set(key, value)
			}
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestReadFileMergesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frogsy.yaml")
	content := "auth:\n  signing_secret: file-secret\npush:\n  vapid_public_key: pub\n  vapid_private_key: priv\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := NewViper()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.AuthSigningSecret)
	assert.True(t, cfg.PushEnabled())
	assert.Error(t, ReadFile(NewViper(), filepath.Join(t.TempDir(), "missing.yaml")))
}
