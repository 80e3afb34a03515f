package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
	"github.com/roomguard/chatwork-moderator/internal/conf"
	"github.com/roomguard/chatwork-moderator/internal/data/gormstore"
	"github.com/roomguard/chatwork-moderator/internal/infra/chatwork"
)

// Repositories contains all repositories
type Repositories struct {
	Chat       repo.ChatRepo
	Enablement repo.EnablementRepo
}

// NewRepositories creates all repositories
func NewRepositories(ctx context.Context, cfg *conf.Config) (*Repositories, error) {
	enablementRepo, err := NewEnablementRepo(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	client := chatwork.NewClient(cfg.Chatwork.APIToken,
		chatwork.WithBaseURL(cfg.Chatwork.BaseURL),
		chatwork.WithRateLimit(cfg.Chatwork.RatePerSecond, 5),
	)

	return &Repositories{
		Chat:       NewChatworkRepo(client, PermissionMode(cfg.Chatwork.PermissionMode)),
		Enablement: enablementRepo,
	}, nil
}

// NewEnablementRepo opens the configured enablement backend
func NewEnablementRepo(ctx context.Context, cfg *conf.StoreConfig) (repo.EnablementRepo, error) {
	log := slog.Default().With("component", "store")

	switch cfg.Backend {
	case conf.BackendPostgres:
		log.Info("using postgres enablement store", "table", cfg.Table)
		return gormstore.OpenPostgres(cfg.DatabaseURL, cfg.Table)
	case conf.BackendSQLite:
		log.Info("using sqlite enablement store", "path", cfg.SQLitePath, "table", cfg.Table)
		return NewSQLiteEnablementRepo(cfg.SQLitePath, cfg.Table)
	case conf.BackendRedis:
		log.Info("using redis enablement store", "key", cfg.RedisKey)
		return NewRedisEnablementRepo(ctx, cfg.RedisURL, cfg.RedisKey)
	}
	return nil, &conf.ConfigError{Field: "STORE_BACKEND", Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
}

// Close releases the backend connections
func (r *Repositories) Close() error {
	return r.Enablement.Close()
}
