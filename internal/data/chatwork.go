package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
	"github.com/roomguard/chatwork-moderator/internal/infra/chatwork"
)

// PermissionMode selects how ChangePermission talks to Chatwork
type PermissionMode string

const (
	// PermissionStub logs the change and reports success without calling the API
	PermissionStub PermissionMode = "stub"
	// PermissionLive rewrites the room's member list
	PermissionLive PermissionMode = "live"
)

// chatworkRepo implements the chat repository over the Chatwork API
type chatworkRepo struct {
	client *chatwork.Client
	mode   PermissionMode
	log    *slog.Logger
}

// NewChatworkRepo creates a new Chatwork repository
func NewChatworkRepo(client *chatwork.Client, mode PermissionMode) repo.ChatRepo {
	if mode != PermissionLive {
		mode = PermissionStub
	}
	return &chatworkRepo{
		client: client,
		mode:   mode,
		log:    slog.Default().With("component", "chatwork"),
	}
}

// ListRooms lists joined group rooms
func (r *chatworkRepo) ListRooms(ctx context.Context) ([]domain.RoomID, error) {
	rooms, err := r.client.ListRooms(ctx)
	if err != nil {
		return nil, transportError("list rooms", err)
	}

	var result []domain.RoomID
	for _, room := range rooms {
		if room.Type == "group" {
			result = append(result, domain.RoomID(room.RoomID))
		}
	}
	return result, nil
}

// GetRoomMembers gets room members with their roles
func (r *chatworkRepo) GetRoomMembers(ctx context.Context, room domain.RoomID) ([]domain.Member, error) {
	members, err := r.client.GetMembers(ctx, int64(room))
	if err != nil {
		return nil, transportError("get members", err)
	}

	result := make([]domain.Member, 0, len(members))
	for _, m := range members {
		result = append(result, domain.Member{
			AccountID: domain.AccountID(m.AccountID),
			Name:      m.Name,
			Role:      domain.Role(m.Role),
		})
	}
	return result, nil
}

// GetMessages gets messages newer than lastID in ascending order.
// Only messages not yet fetched with this token are requested, so a restart
// starting from lastID 0 does not replay the room's history. The lastID filter
// still guards against anything the endpoint hands out twice.
func (r *chatworkRepo) GetMessages(ctx context.Context, room domain.RoomID, lastID domain.MessageID) ([]domain.Message, error) {
	msgs, err := r.client.GetMessages(ctx, int64(room), false)
	if err != nil {
		return nil, transportError("get messages", err)
	}

	var result []domain.Message
	for _, m := range msgs {
		id := domain.MessageID(m.MessageID)
		if id <= lastID {
			continue
		}
		result = append(result, domain.Message{
			ID:              id,
			RoomID:          room,
			SenderAccountID: domain.AccountID(m.Account.AccountID),
			SenderName:      m.Account.Name,
			Body:            m.Body,
			SendTime:        time.Unix(m.SendTime, 0),
		})
	}
	slices.SortFunc(result, func(a, b domain.Message) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return result, nil
}

// ChangePermission sets the role of account in room
func (r *chatworkRepo) ChangePermission(ctx context.Context, room domain.RoomID, account domain.AccountID, role domain.Role) error {
	if r.mode == PermissionStub {
		r.log.Warn("permission change simulated (PERMISSION_MODE=stub)", "room", room, "account", account, "role", role)
		return nil
	}

	members, err := r.client.GetMembers(ctx, int64(room))
	if err != nil {
		return transportError("get members", err)
	}

	roles, changed, err := reassignRole(members, int64(account), role)
	if err != nil {
		return err
	}
	if !changed {
		r.log.Info("permission already set", "room", room, "account", account, "role", role)
		return nil
	}

	if _, err := r.client.UpdateMembers(ctx, int64(room), roles); err != nil {
		return transportError("update members", err)
	}
	r.log.Info("permission changed", "room", room, "account", account, "role", role)
	return nil
}

// PostMessage posts a chat message
func (r *chatworkRepo) PostMessage(ctx context.Context, room domain.RoomID, body string) error {
	if _, err := r.client.PostMessage(ctx, int64(room), body); err != nil {
		return transportError("post message", err)
	}
	return nil
}

// reassignRole moves account into the bucket for role and returns the full assignment
func reassignRole(members []chatwork.Member, account int64, role domain.Role) (chatwork.MemberRoles, bool, error) {
	var roles chatwork.MemberRoles
	found, changed := false, false

	for _, m := range members {
		target := domain.Role(m.Role)
		if m.AccountID == account {
			found = true
			if target != role {
				changed = true
				target = role
			}
		}
		switch target {
		case domain.RoleAdmin:
			roles.Admin = append(roles.Admin, m.AccountID)
		case domain.RoleMember:
			roles.Member = append(roles.Member, m.AccountID)
		case domain.RoleReadonly:
			roles.Readonly = append(roles.Readonly, m.AccountID)
		default:
			return roles, false, fmt.Errorf("account %d has unsupported role %q", m.AccountID, m.Role)
		}
	}

	if !found {
		return roles, false, fmt.Errorf("account %d is not a member of the room", account)
	}
	if len(roles.Admin) == 0 {
		return roles, false, fmt.Errorf("refusing to leave the room without an admin")
	}
	return roles, changed, nil
}

func transportError(op string, err error) error {
	terr := &domain.TransportError{Op: op, Err: err}
	var apiErr *chatwork.APIError
	if errors.As(err, &apiErr) {
		terr.StatusCode = apiErr.StatusCode
	}
	return terr
}
