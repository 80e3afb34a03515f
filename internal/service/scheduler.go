package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz"
	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
	"github.com/roomguard/chatwork-moderator/internal/biz/usecase"
)

// Stage names the step of a room cycle that failed
type Stage string

const (
	StageMembership Stage = "membership"
	StageFetch      Stage = "fetch"
	StageDispatch   Stage = "dispatch"
)

// StageError is a failure confined to one room (or one message) of a cycle
type StageError struct {
	Stage Stage
	Room  domain.RoomID
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("room %d: %s: %v", e.Room, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// SchedulerConfig contains polling configuration
type SchedulerConfig struct {
	Rooms              []domain.RoomID
	MonitorJoinedRooms bool // resolve rooms from the joined group rooms when Rooms is empty
	Interval           time.Duration
}

// RoomStatus is the externally visible state of one room
type RoomStatus struct {
	RoomID             domain.RoomID    `json:"room_id"`
	Cursor             domain.MessageID `json:"cursor"`
	Enabled            bool             `json:"enabled"`
	MembersRefreshedAt *time.Time       `json:"members_refreshed_at,omitempty"`
}

// Status is a copy of the scheduler state taken at the end of a cycle
type Status struct {
	Rooms       []RoomStatus `json:"rooms"`
	LastCycleAt *time.Time   `json:"last_cycle_at,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
}

// PollingScheduler polls every monitored room at a fixed interval and dispatches
// new messages to the command and moderation handlers.
// Cycles run on a single goroutine; only Snapshot and Cursor may be called concurrently.
type PollingScheduler struct {
	chatRepo       repo.ChatRepo
	enablementRepo repo.EnablementRepo
	membership     *usecase.MembershipCache
	ledger         *usecase.Ledger
	commands       *usecase.CommandUsecase
	moderation     *usecase.ModerationUsecase

	config        SchedulerConfig
	rooms         []domain.RoomID
	roomsResolved bool

	// now is swapped in tests
	now func() time.Time

	mu      sync.RWMutex
	cursors map[domain.RoomID]domain.MessageID
	status  Status

	stopCh   chan struct{}
	stopOnce sync.Once
	log      *slog.Logger
}

// NewPollingScheduler creates a new polling scheduler
func NewPollingScheduler(
	chatRepo repo.ChatRepo,
	enablementRepo repo.EnablementRepo,
	ucs *biz.Usecases,
	config SchedulerConfig,
) *PollingScheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	return &PollingScheduler{
		chatRepo:       chatRepo,
		enablementRepo: enablementRepo,
		membership:     ucs.Membership,
		ledger:         ucs.Ledger,
		commands:       ucs.Command,
		moderation:     ucs.Moderation,
		config:         config,
		rooms:          config.Rooms,
		roomsResolved:  len(config.Rooms) > 0 || !config.MonitorJoinedRooms,
		now:            time.Now,
		cursors:        make(map[domain.RoomID]domain.MessageID),
		stopCh:         make(chan struct{}),
		log:            slog.Default().With("component", "scheduler"),
	}
}

// Run runs cycles until ctx is cancelled or Stop is called.
// A failed cycle is followed by a pause of twice the interval.
func (s *PollingScheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "interval", s.config.Interval, "rooms", len(s.rooms))
	defer s.log.Info("scheduler stopped")

	for {
		wait := s.config.Interval
		if err := s.safeCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("cycle failed", "err", err, "retry_in", 2*wait)
			wait *= 2
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop makes Run return after the current cycle
func (s *PollingScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// safeCycle runs one cycle, turning a panic into a cycle error
func (s *PollingScheduler) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
		s.finishCycle(err)
	}()
	return s.RunCycle(ctx)
}

// RunCycle polls every monitored room once.
// Room-level failures are logged and skipped; the returned error is cycle-level.
func (s *PollingScheduler) RunCycle(ctx context.Context) error {
	if err := s.resolveRooms(ctx); err != nil {
		return err
	}

	enabled, err := s.enablementRepo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("read enabled rooms: %w", err)
	}

	for _, room := range s.rooms {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.processRoom(ctx, room, enabled)
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			roomSkips.WithLabelValues(string(stageErr.Stage)).Inc()
			s.log.Warn("room skipped", "room", room, "stage", stageErr.Stage, "err", stageErr.Err)
		}
	}

	s.publishStatus(enabled)
	return nil
}

// resolveRooms fills the room list from the joined group rooms, once
func (s *PollingScheduler) resolveRooms(ctx context.Context) error {
	if s.roomsResolved {
		return nil
	}
	rooms, err := s.chatRepo.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("resolve joined rooms: %w", err)
	}
	s.rooms = rooms
	s.roomsResolved = true
	s.log.Info("monitoring joined group rooms", "rooms", len(rooms))
	return nil
}

// processRoom fetches and dispatches the new messages of one room.
// The cursor only moves after the whole batch was dispatched.
func (s *PollingScheduler) processRoom(ctx context.Context, room domain.RoomID, enabled map[domain.RoomID]struct{}) error {
	roles, err := s.membership.Ensure(ctx, room, s.now())
	if err != nil {
		return &StageError{Stage: StageMembership, Room: room, Err: err}
	}

	cursor := s.Cursor(room)
	msgs, err := s.chatRepo.GetMessages(ctx, room, cursor)
	if err != nil {
		return &StageError{Stage: StageFetch, Room: room, Err: err}
	}
	if len(msgs) == 0 {
		return nil
	}

	_, isEnabled := enabled[room]
	for i := range msgs {
		msg := &msgs[i]
		s.dispatch(ctx, room, msg, roles.RoleOf(msg.SenderAccountID), isEnabled)
	}

	last := msgs[len(msgs)-1].ID
	if last > cursor {
		s.setCursor(room, last)
	}
	return nil
}

// dispatch runs one message through the command handler and, when the room
// is enabled and the message is not a command, the moderation rules
func (s *PollingScheduler) dispatch(ctx context.Context, room domain.RoomID, msg *domain.Message, role domain.Role, enabled bool) {
	messagesProcessed.Inc()

	handled, err := s.commands.Handle(ctx, room, msg, role)
	if err != nil {
		s.logDispatchError(room, msg, err)
	}
	if handled || !enabled {
		return
	}

	if _, err := s.moderation.Evaluate(ctx, room, msg, role, s.now()); err != nil {
		s.logDispatchError(room, msg, err)
	}
}

func (s *PollingScheduler) logDispatchError(room domain.RoomID, msg *domain.Message, err error) {
	err = &StageError{Stage: StageDispatch, Room: room, Err: err}
	s.log.Error("message action failed", "message", msg.ID, "sender", msg.SenderAccountID, "err", err)
}

// Cursor returns the id of the last processed message of room, 0 before the first batch
func (s *PollingScheduler) Cursor(room domain.RoomID) domain.MessageID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[room]
}

func (s *PollingScheduler) setCursor(room domain.RoomID, id domain.MessageID) {
	s.mu.Lock()
	s.cursors[room] = id
	s.mu.Unlock()
	roomCursor.WithLabelValues(strconv.FormatInt(int64(room), 10)).Set(float64(id))
}

// publishStatus copies the per-room state for Snapshot readers
func (s *PollingScheduler) publishStatus(enabled map[domain.RoomID]struct{}) {
	rooms := make([]RoomStatus, 0, len(s.rooms))
	for _, room := range s.rooms {
		rs := RoomStatus{RoomID: room, Cursor: s.Cursor(room)}
		_, rs.Enabled = enabled[room]
		if roles := s.membership.Get(room); roles != nil {
			refreshed := roles.RefreshedAt
			rs.MembersRefreshedAt = &refreshed
		}
		rooms = append(rooms, rs)
	}
	trackedCounters.Set(float64(s.ledger.Len()))

	s.mu.Lock()
	s.status.Rooms = rooms
	s.mu.Unlock()
}

func (s *PollingScheduler) finishCycle(err error) {
	now := s.now()
	result := "ok"
	if err != nil {
		result = "error"
	}
	cyclesTotal.WithLabelValues(result).Inc()
	lastCycleTimestamp.Set(float64(now.Unix()))

	s.mu.Lock()
	s.status.LastCycleAt = &now
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the state published by the last cycle
func (s *PollingScheduler) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.Rooms = append([]RoomStatus(nil), s.status.Rooms...)
	return status
}
