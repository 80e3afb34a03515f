package usecase

import (
	"context"
	"errors"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
)

// Mock implementations

type permissionChange struct {
	Room    domain.RoomID
	Account domain.AccountID
	Role    domain.Role
}

type postedMessage struct {
	Room domain.RoomID
	Body string
}

type mockChatRepo struct {
	members     map[domain.RoomID][]domain.Member
	messages    map[domain.RoomID][]domain.Message
	memberCalls int

	changes []permissionChange
	posts   []postedMessage

	membersErr    error
	permissionErr error
	postErr       error
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{
		members:  make(map[domain.RoomID][]domain.Member),
		messages: make(map[domain.RoomID][]domain.Message),
	}
}

func (m *mockChatRepo) ListRooms(ctx context.Context) ([]domain.RoomID, error) {
	var rooms []domain.RoomID
	for id := range m.members {
		rooms = append(rooms, id)
	}
	return rooms, nil
}

func (m *mockChatRepo) GetRoomMembers(ctx context.Context, room domain.RoomID) ([]domain.Member, error) {
	m.memberCalls++
	if m.membersErr != nil {
		return nil, m.membersErr
	}
	return m.members[room], nil
}

func (m *mockChatRepo) GetMessages(ctx context.Context, room domain.RoomID, lastID domain.MessageID) ([]domain.Message, error) {
	var result []domain.Message
	for _, msg := range m.messages[room] {
		if msg.ID > lastID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockChatRepo) ChangePermission(ctx context.Context, room domain.RoomID, account domain.AccountID, role domain.Role) error {
	m.changes = append(m.changes, permissionChange{Room: room, Account: account, Role: role})
	return m.permissionErr
}

func (m *mockChatRepo) PostMessage(ctx context.Context, room domain.RoomID, body string) error {
	m.posts = append(m.posts, postedMessage{Room: room, Body: body})
	return m.postErr
}

type mockEnablementRepo struct {
	rooms map[domain.RoomID]struct{}

	enableCalls  int
	disableCalls int
	err          error
}

func newMockEnablementRepo(rooms ...domain.RoomID) *mockEnablementRepo {
	m := &mockEnablementRepo{rooms: make(map[domain.RoomID]struct{})}
	for _, r := range rooms {
		m.rooms[r] = struct{}{}
	}
	return m
}

func (m *mockEnablementRepo) ListEnabled(ctx context.Context) (map[domain.RoomID]struct{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[domain.RoomID]struct{}, len(m.rooms))
	for r := range m.rooms {
		out[r] = struct{}{}
	}
	return out, nil
}

func (m *mockEnablementRepo) IsEnabled(ctx context.Context, room domain.RoomID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.rooms[room]
	return ok, nil
}

func (m *mockEnablementRepo) Enable(ctx context.Context, room domain.RoomID) error {
	m.enableCalls++
	if m.err != nil {
		return m.err
	}
	m.rooms[room] = struct{}{}
	return nil
}

func (m *mockEnablementRepo) Disable(ctx context.Context, room domain.RoomID) error {
	m.disableCalls++
	if m.err != nil {
		return m.err
	}
	delete(m.rooms, room)
	return nil
}

func (m *mockEnablementRepo) Close() error {
	return nil
}

var errBackendDown = &domain.PersistenceError{Op: "insert", Err: errors.New("connection refused")}
