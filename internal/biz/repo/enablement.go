package repo

import (
	"context"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
)

// EnablementRepo is the durable set of rooms where moderation is active.
// Failures are reported as *domain.PersistenceError.
type EnablementRepo interface {
	// ListEnabled returns every enabled room
	ListEnabled(ctx context.Context) (map[domain.RoomID]struct{}, error)

	// IsEnabled checks a single room
	IsEnabled(ctx context.Context, room domain.RoomID) (bool, error)

	// Enable inserts the room; enabling an enabled room is a no-op
	Enable(ctx context.Context, room domain.RoomID) error

	// Disable deletes the room; disabling an absent room is a no-op
	Disable(ctx context.Context, room domain.RoomID) error

	Close() error
}
