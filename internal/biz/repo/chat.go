package repo

import (
	"context"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
)

// ChatRepo is the chat platform interface
// Responsible for reading rooms and acting on them through the Chatwork API
type ChatRepo interface {
	// ListRooms lists the rooms the bot account has joined
	ListRooms(ctx context.Context) ([]domain.RoomID, error)

	// GetRoomMembers gets the member list with roles
	GetRoomMembers(ctx context.Context, room domain.RoomID) ([]domain.Member, error)

	// GetMessages gets messages with ID strictly greater than lastID, ascending.
	// An empty slice is a valid result.
	GetMessages(ctx context.Context, room domain.RoomID, lastID domain.MessageID) ([]domain.Message, error)

	// ChangePermission sets the role of account in room
	ChangePermission(ctx context.Context, room domain.RoomID, account domain.AccountID, role domain.Role) error

	// PostMessage posts a chat message
	PostMessage(ctx context.Context, room domain.RoomID, body string) error
}
