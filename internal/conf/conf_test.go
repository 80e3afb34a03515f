package conf

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/usecase"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("CHATWORK_API_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/moderator")
	t.Setenv("NOTICES_CONFIG_PATH", "")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30, cfg.Moderation.StampThreshold)
	assert.Equal(t, 10, cfg.Moderation.MentionThreshold)
	assert.Equal(t, 24, cfg.Moderation.ResetIntervalHours)
	assert.Equal(t, 5*time.Second, cfg.Polling.PollingInterval())
	assert.Equal(t, time.Hour, cfg.Polling.MemberMaxAge())
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "stub", cfg.Chatwork.PermissionMode)
	assert.Equal(t, 1.0, cfg.Chatwork.RatePerSecond)
	assert.Equal(t, "127.0.0.1:9877", cfg.APIAddr)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Empty(t, cfg.Polling.RoomIDs)

	mod := cfg.ToModerationConfig()
	assert.Equal(t, 24*time.Hour, mod.ResetWindow)
	assert.Equal(t, domain.DefaultEmoticons, mod.Emoticons)
	assert.Equal(t, usecase.DefaultNotices, cfg.ToNotices())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("CHATWORK_API_TOKEN", "token")
	t.Setenv("MONITORED_ROOM_IDS", "100, 200,abc,,-3")
	t.Setenv("STAMP_EMOJI_THRESHOLD", "3")
	t.Setenv("MENTION_THRESHOLD", "not-a-number")
	t.Setenv("COUNT_RESET_INTERVAL_HOURS", "1")
	t.Setenv("POLLING_INTERVAL_SECONDS", "2")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("PERMISSION_MODE", "live")
	t.Setenv("API_ADDR", "")
	t.Setenv("DEBUG", "true")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []domain.RoomID{100, 200}, cfg.Polling.RoomIDs)
	assert.Equal(t, 3, cfg.Moderation.StampThreshold)
	assert.Equal(t, 10, cfg.Moderation.MentionThreshold)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, "live", cfg.Chatwork.PermissionMode)
	assert.Empty(t, cfg.APIAddr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Chatwork:   ChatworkConfig{APIToken: "token", PermissionMode: "stub"},
			Moderation: ModerationConfig{ResetIntervalHours: 24},
			Polling:    PollingConfig{IntervalSeconds: 5},
			Store:      StoreConfig{Backend: BackendRedis, RedisURL: "redis://localhost:6379"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing token", func(c *Config) { c.Chatwork.APIToken = "" }, "CHATWORK_API_TOKEN"},
		{"bad permission mode", func(c *Config) { c.Chatwork.PermissionMode = "maybe" }, "PERMISSION_MODE"},
		{"zero interval", func(c *Config) { c.Polling.IntervalSeconds = 0 }, "POLLING_INTERVAL_SECONDS"},
		{"zero reset window", func(c *Config) { c.Moderation.ResetIntervalHours = 0 }, "COUNT_RESET_INTERVAL_HOURS"},
		{"missing redis url", func(c *Config) { c.Store.RedisURL = "" }, "REDIS_URL"},
		{"missing database url", func(c *Config) { c.Store.Backend = BackendPostgres }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, "STORE_BACKEND"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			var cfgErr *ConfigError
			require.True(t, errors.As(cfg.Validate(), &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoadNoticesConfig_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
commands:
  enabled: "on"
downgrade:
  stamp: "[To:{account_id}] calm down"
emoticons:
  - ":)"
`), 0644))

	cfg, err := LoadNoticesConfig(path)
	require.NoError(t, err)

	notices := cfg.ToNotices()
	assert.Equal(t, "on", notices.Enabled)
	assert.Equal(t, "[To:{account_id}] calm down", notices.StampDowngrade)
	assert.Equal(t, usecase.DefaultNotices.Disabled, notices.Disabled)
	assert.Equal(t, usecase.DefaultNotices.MentionDowngrade, notices.MentionDowngrade)
	assert.Equal(t, []string{":)"}, cfg.Emoticons)
}

func TestLoadNoticesConfig_Errors(t *testing.T) {
	_, err := LoadNoticesConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commands: [not, a, map"), 0644))
	_, err = LoadNoticesConfig(path)
	assert.Error(t, err)
}

func TestShippedNoticesMatchDefaults(t *testing.T) {
	cfg, err := LoadNoticesConfig(filepath.Join("..", "..", "configs", "notices.yaml"))
	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultNotices, cfg.ToNotices())
	assert.Equal(t, domain.DefaultEmoticons, cfg.Emoticons)
}
