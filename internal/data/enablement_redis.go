package data

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
)

// DefaultRedisKey is the set holding enabled room ids
const DefaultRedisKey = "chatwork-moderator:enabled_rooms"

// redisEnablementRepo implements the enablement repository as a Redis set
type redisEnablementRepo struct {
	client *redis.Client
	key    string
}

// NewRedisEnablementRepo connects to Redis at url
func NewRedisEnablementRepo(ctx context.Context, url, key string) (repo.EnablementRepo, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &redisEnablementRepo{client: client, key: key}, nil
}

// ListEnabled lists all enabled rooms
func (r *redisEnablementRepo) ListEnabled(ctx context.Context) (map[domain.RoomID]struct{}, error) {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}

	rooms := make(map[domain.RoomID]struct{}, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		rooms[domain.RoomID(id)] = struct{}{}
	}
	return rooms, nil
}

// IsEnabled checks if a room is enabled
func (r *redisEnablementRepo) IsEnabled(ctx context.Context, room domain.RoomID) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, roomMember(room)).Result()
	if err != nil {
		return false, &domain.PersistenceError{Op: "select", Err: err}
	}
	return ok, nil
}

// Enable adds the room to the set
func (r *redisEnablementRepo) Enable(ctx context.Context, room domain.RoomID) error {
	if err := r.client.SAdd(ctx, r.key, roomMember(room)).Err(); err != nil {
		return &domain.PersistenceError{Op: "insert", Err: err}
	}
	return nil
}

// Disable removes the room from the set
func (r *redisEnablementRepo) Disable(ctx context.Context, room domain.RoomID) error {
	if err := r.client.SRem(ctx, r.key, roomMember(room)).Err(); err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// Close closes the client
func (r *redisEnablementRepo) Close() error {
	return r.client.Close()
}

func roomMember(room domain.RoomID) string {
	return strconv.FormatInt(int64(room), 10)
}
