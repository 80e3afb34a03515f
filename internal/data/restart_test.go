package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomguard/chatwork-moderator/internal/biz"
	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/usecase"
	"github.com/roomguard/chatwork-moderator/internal/infra/chatwork"
	"github.com/roomguard/chatwork-moderator/internal/service"
)

// fakeChatwork keeps a per-token read marker like the real messages endpoint
type fakeChatwork struct {
	mu       sync.Mutex
	messages []chatwork.Message
	marker   chatwork.ID
	forces   []string
	posts    []string
	puts     int
}

func (f *fakeChatwork) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rooms/100/members":
		w.Write([]byte(membersJSON))
	case r.Method == http.MethodGet && r.URL.Path == "/rooms/100/messages":
		force := r.URL.Query().Get("force")
		f.forces = append(f.forces, force)
		var out []chatwork.Message
		for _, m := range f.messages {
			if force == "1" || m.MessageID > f.marker {
				out = append(out, m)
			}
		}
		if len(f.messages) > 0 {
			f.marker = f.messages[len(f.messages)-1].MessageID
		}
		if len(out) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && r.URL.Path == "/rooms/100/messages":
		r.ParseForm()
		f.posts = append(f.posts, r.PostForm.Get("body"))
		w.Write([]byte(`{"message_id":"1000"}`))
	case r.Method == http.MethodPut:
		f.puts++
		w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeChatwork) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

// startProcess wires a fresh scheduler the way cmd/moderator does and runs two cycles
func startProcess(t *testing.T, serverURL, dbPath string) {
	t.Helper()
	ctx := context.Background()

	store, err := NewSQLiteEnablementRepo(dbPath, "")
	require.NoError(t, err)
	defer store.Close()

	client := chatwork.NewClient("token",
		chatwork.WithBaseURL(serverURL),
		chatwork.WithRateLimit(0, 0),
		chatwork.WithRetry(0, time.Millisecond, time.Millisecond),
	)
	chat := NewChatworkRepo(client, PermissionStub)
	ucs := biz.NewUsecases(chat, store, usecase.DefaultModerationConfig, usecase.DefaultNotices, time.Hour)
	scheduler := service.NewPollingScheduler(chat, store, ucs, service.SchedulerConfig{
		Rooms:    []domain.RoomID{100},
		Interval: time.Millisecond,
	})

	require.NoError(t, scheduler.RunCycle(ctx))
	require.NoError(t, scheduler.RunCycle(ctx))
}

func TestRestartDoesNotReplayMessages(t *testing.T) {
	fake := &fakeChatwork{messages: []chatwork.Message{
		{MessageID: 10, Account: chatwork.Account{AccountID: 1}, Body: "/command OK"},
		{MessageID: 11, Account: chatwork.Account{AccountID: 55}, Body: "[toall] hi"},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "moderator.db")
	store, err := NewSQLiteEnablementRepo(dbPath, "")
	require.NoError(t, err)
	require.NoError(t, store.Enable(context.Background(), 100))
	require.NoError(t, store.Close())

	startProcess(t, srv.URL, dbPath)
	require.Equal(t, 2, fake.postCount(), "already-enabled reply and broadcast notice")
	assert.Equal(t, usecase.DefaultNotices.AlreadyEnabled, fake.posts[0])
	assert.Contains(t, fake.posts[1], "[To:55]")

	startProcess(t, srv.URL, dbPath)
	assert.Equal(t, 2, fake.postCount(), "a restarted process must not act on old messages")
	assert.Zero(t, fake.puts, "stub mode never writes members")
	for _, force := range fake.forces {
		assert.Equal(t, "0", force)
	}
}
