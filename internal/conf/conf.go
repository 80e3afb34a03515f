package conf

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/usecase"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Config represents application configuration
type Config struct {
	// Chatwork configuration
	Chatwork ChatworkConfig

	// Moderation thresholds
	Moderation ModerationConfig

	// Polling configuration
	Polling PollingConfig

	// Enablement store configuration
	Store StoreConfig

	// Notices configuration (loaded from YAML)
	Notices *NoticesConfig

	// Status server listen address, empty disables it
	APIAddr string

	// Log level (debug, info, warn, error)
	LogLevel string
}

// ChatworkConfig contains Chatwork configuration
type ChatworkConfig struct {
	APIToken       string
	BaseURL        string
	RatePerSecond  float64
	PermissionMode string // stub or live
}

// ModerationConfig contains threshold configuration
type ModerationConfig struct {
	StampThreshold     int
	MentionThreshold   int
	ResetIntervalHours int
}

// PollingConfig contains scheduler configuration
type PollingConfig struct {
	RoomIDs              []domain.RoomID
	MonitorJoinedRooms   bool
	IntervalSeconds      int
	MemberRefreshMinutes int
}

// StoreConfig contains enablement store configuration
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	Table       string
	SQLitePath  string
	RedisURL    string
	RedisKey    string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// SQLite path
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		homeDir, _ := os.UserHomeDir()
		sqlitePath = filepath.Join(homeDir, ".chatwork-moderator", "moderator.db")
	}

	// Rate limit
	rate := 1.0
	if val := os.Getenv("CHATWORK_RATE_PER_SECOND"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			rate = parsed
		}
	}

	backend := strings.ToLower(os.Getenv("STORE_BACKEND"))
	if backend == "" {
		backend = BackendPostgres
	}

	permissionMode := strings.ToLower(os.Getenv("PERMISSION_MODE"))
	if permissionMode == "" {
		permissionMode = "stub"
	}

	apiAddr, ok := os.LookupEnv("API_ADDR")
	if !ok {
		apiAddr = "127.0.0.1:9877"
	}


	// Load notices from YAML
	noticesConfig, err := LoadNoticesConfig(os.Getenv("NOTICES_CONFIG_PATH"))
	if err != nil {
		slog.Warn("notices config unusable, using defaults", "err", err)
		noticesConfig = DefaultNoticesConfig()
	}

	return &Config{
		Chatwork: ChatworkConfig{
			APIToken:       os.Getenv("CHATWORK_API_TOKEN"),
			BaseURL:        os.Getenv("CHATWORK_API_BASE_URL"),
			RatePerSecond:  rate,
			PermissionMode: permissionMode,
		},
		Moderation: ModerationConfig{
			StampThreshold:     envInt("STAMP_EMOJI_THRESHOLD", 30),
			MentionThreshold:   envInt("MENTION_THRESHOLD", 10),
			ResetIntervalHours: envInt("COUNT_RESET_INTERVAL_HOURS", 24),
		},
		Polling: PollingConfig{
			RoomIDs:              ParseRoomIDs(os.Getenv("MONITORED_ROOM_IDS")),
			MonitorJoinedRooms:   os.Getenv("MONITOR_JOINED_ROOMS") == "true",
			IntervalSeconds:      envInt("POLLING_INTERVAL_SECONDS", 5),
			MemberRefreshMinutes: envInt("MEMBER_REFRESH_MINUTES", 60),
		},
		Store: StoreConfig{
			Backend:     backend,
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Table:       os.Getenv("ENABLEMENT_TABLE"),
			SQLitePath:  sqlitePath,
			RedisURL:    os.Getenv("REDIS_URL"),
			RedisKey:    os.Getenv("REDIS_KEY"),
		},
		Notices:  noticesConfig,
		APIAddr:  apiAddr,
		LogLevel: LogLevelFromEnv(),
	}
}

// ParseRoomIDs parses a comma-separated id list. Invalid entries are skipped with a warning.
func ParseRoomIDs(val string) []domain.RoomID {
	var ids []domain.RoomID
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			slog.Warn("ignoring invalid room id", "value", part)
			continue
		}
		ids = append(ids, domain.RoomID(id))
	}
	return ids
}

func envInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("ignoring invalid integer", "key", key, "value", val)
		return def
	}
	return parsed
}

// ToModerationConfig converts to usecase moderation configuration
func (c *Config) ToModerationConfig() usecase.ModerationConfig {
	cfg := usecase.ModerationConfig{
		StampThreshold:   c.Moderation.StampThreshold,
		MentionThreshold: c.Moderation.MentionThreshold,
		ResetWindow:      time.Duration(c.Moderation.ResetIntervalHours) * time.Hour,
		Emoticons:        domain.DefaultEmoticons,
	}
	if c.Notices != nil && len(c.Notices.Emoticons) > 0 {
		cfg.Emoticons = c.Notices.Emoticons
	}
	return cfg
}

// ToNotices converts to usecase notices
func (c *Config) ToNotices() usecase.Notices {
	if c.Notices == nil {
		return usecase.DefaultNotices
	}
	return c.Notices.ToNotices()
}

// PollingInterval returns the pause between cycles
func (c *PollingConfig) PollingInterval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MemberMaxAge returns how long a member snapshot is trusted
func (c *PollingConfig) MemberMaxAge() time.Duration {
	return time.Duration(c.MemberRefreshMinutes) * time.Minute
}

// SlogLevel maps LogLevel to a slog level
func (c *Config) SlogLevel() slog.Level {
	return parseLevel(c.LogLevel)
}

// ValidateStore validates the store settings only, for tooling that never talks to Chatwork
func (c *Config) ValidateStore() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return &ConfigError{Field: "DATABASE_URL", Message: "required for the postgres backend"}
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return &ConfigError{Field: "SQLITE_PATH", Message: "required for the sqlite backend"}
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return &ConfigError{Field: "REDIS_URL", Message: "required for the redis backend"}
		}
	default:
		return &ConfigError{Field: "STORE_BACKEND", Message: "must be postgres, sqlite or redis"}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Chatwork.APIToken == "" {
		return &ConfigError{Field: "CHATWORK_API_TOKEN", Message: "required"}
	}
	if c.Chatwork.PermissionMode != "stub" && c.Chatwork.PermissionMode != "live" {
		return &ConfigError{Field: "PERMISSION_MODE", Message: "must be stub or live"}
	}
	if c.Polling.IntervalSeconds <= 0 {
		return &ConfigError{Field: "POLLING_INTERVAL_SECONDS", Message: "must be positive"}
	}
	if c.Moderation.ResetIntervalHours <= 0 {
		return &ConfigError{Field: "COUNT_RESET_INTERVAL_HOURS", Message: "must be positive"}
	}
	return c.ValidateStore()
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
