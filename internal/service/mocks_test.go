package service

import (
	"context"
	"errors"
	"sync"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
)

var errUnavailable = errors.New("service unavailable")

type permissionChange struct {
	Room    domain.RoomID
	Account domain.AccountID
	Role    domain.Role
}

type postedMessage struct {
	Room domain.RoomID
	Body string
}

// mockChatRepo serves a fixed message log per room, like the real endpoint does
type mockChatRepo struct {
	mu sync.Mutex

	joined   []domain.RoomID
	members  map[domain.RoomID][]domain.Member
	messages map[domain.RoomID][]domain.Message

	membersErr  map[domain.RoomID]error
	messagesErr map[domain.RoomID]error
	fetches     map[domain.RoomID][]domain.MessageID // lastID per call

	changes []permissionChange
	posts   []postedMessage

	permissionErr error
	postErr       error
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{
		members:     make(map[domain.RoomID][]domain.Member),
		messages:    make(map[domain.RoomID][]domain.Message),
		membersErr:  make(map[domain.RoomID]error),
		messagesErr: make(map[domain.RoomID]error),
		fetches:     make(map[domain.RoomID][]domain.MessageID),
	}
}

func (m *mockChatRepo) addMessage(room domain.RoomID, id domain.MessageID, sender domain.AccountID, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[room] = append(m.messages[room], domain.Message{ID: id, RoomID: room, SenderAccountID: sender, Body: body})
}

func (m *mockChatRepo) ListRooms(ctx context.Context) ([]domain.RoomID, error) {
	return m.joined, nil
}

func (m *mockChatRepo) GetRoomMembers(ctx context.Context, room domain.RoomID) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.membersErr[room]; err != nil {
		return nil, err
	}
	return m.members[room], nil
}

func (m *mockChatRepo) GetMessages(ctx context.Context, room domain.RoomID, lastID domain.MessageID) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[room] = append(m.fetches[room], lastID)
	if err := m.messagesErr[room]; err != nil {
		return nil, err
	}
	var result []domain.Message
	for _, msg := range m.messages[room] {
		if msg.ID > lastID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockChatRepo) ChangePermission(ctx context.Context, room domain.RoomID, account domain.AccountID, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, permissionChange{Room: room, Account: account, Role: role})
	return m.permissionErr
}

func (m *mockChatRepo) PostMessage(ctx context.Context, room domain.RoomID, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, postedMessage{Room: room, Body: body})
	return m.postErr
}

func (m *mockChatRepo) recorded() ([]permissionChange, []postedMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]permissionChange(nil), m.changes...), append([]postedMessage(nil), m.posts...)
}

type mockEnablementRepo struct {
	mu        sync.Mutex
	rooms     map[domain.RoomID]struct{}
	listCalls int
	listErr   error
	panicOn   int // panic on this ListEnabled call, 1-based; 0 never
}

func newMockEnablementRepo(rooms ...domain.RoomID) *mockEnablementRepo {
	m := &mockEnablementRepo{rooms: make(map[domain.RoomID]struct{})}
	for _, r := range rooms {
		m.rooms[r] = struct{}{}
	}
	return m
}

func (m *mockEnablementRepo) ListEnabled(ctx context.Context) (map[domain.RoomID]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listCalls == m.panicOn {
		panic("store exploded")
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make(map[domain.RoomID]struct{}, len(m.rooms))
	for r := range m.rooms {
		result[r] = struct{}{}
	}
	return result, nil
}

func (m *mockEnablementRepo) IsEnabled(ctx context.Context, room domain.RoomID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[room]
	return ok, nil
}

func (m *mockEnablementRepo) Enable(ctx context.Context, room domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room] = struct{}{}
	return nil
}

func (m *mockEnablementRepo) Disable(ctx context.Context, room domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, room)
	return nil
}

func (m *mockEnablementRepo) Close() error {
	return nil
}

func (m *mockEnablementRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}
