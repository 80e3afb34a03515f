package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
)

// DefaultMemberRefreshInterval is how long a role snapshot is trusted
const DefaultMemberRefreshInterval = time.Hour

// MembershipCache keeps a role snapshot per room
type MembershipCache struct {
	chatRepo repo.ChatRepo
	maxAge   time.Duration
	rooms    map[domain.RoomID]*domain.MemberRoles
	log      *slog.Logger
}

// NewMembershipCache creates a new membership cache
func NewMembershipCache(chatRepo repo.ChatRepo, maxAge time.Duration) *MembershipCache {
	if maxAge <= 0 {
		maxAge = DefaultMemberRefreshInterval
	}
	return &MembershipCache{
		chatRepo: chatRepo,
		maxAge:   maxAge,
		rooms:    make(map[domain.RoomID]*domain.MemberRoles),
		log:      slog.Default().With("component", "membership"),
	}
}

// Ensure refreshes the room snapshot when it is missing or stale.
// On failure the previous snapshot is kept and the error is returned.
func (c *MembershipCache) Ensure(ctx context.Context, room domain.RoomID, now time.Time) (*domain.MemberRoles, error) {
	current := c.rooms[room]
	if !current.IsStale(now, c.maxAge) {
		return current, nil
	}

	members, err := c.chatRepo.GetRoomMembers(ctx, room)
	if err != nil {
		return current, fmt.Errorf("refresh members of room %d: %w", room, err)
	}

	snapshot := domain.NewMemberRoles(members, now)
	c.rooms[room] = snapshot
	c.log.Info("member roles refreshed", "room", room, "members", len(members))
	return snapshot, nil
}

// Get returns the last snapshot for room, which may be stale or nil
func (c *MembershipCache) Get(room domain.RoomID) *domain.MemberRoles {
	return c.rooms[room]
}

// RoleOf looks up a role in the last snapshot
func (c *MembershipCache) RoleOf(room domain.RoomID, account domain.AccountID) domain.Role {
	return c.rooms[room].RoleOf(account)
}
