package usecase

import (
	"time"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
)

// Ledger holds activity counters per (room, account).
// Not safe for concurrent use; the scheduler owns it.
type Ledger struct {
	resetWindow time.Duration
	counters    map[domain.ActivityKey]*domain.ActivityCounter
}

// NewLedger creates a new ledger whose counters reset after resetWindow
func NewLedger(resetWindow time.Duration) *Ledger {
	return &Ledger{
		resetWindow: resetWindow,
		counters:    make(map[domain.ActivityKey]*domain.ActivityCounter),
	}
}

// Counter returns the counter for (room, account), creating it with LastResetAt = now.
// The returned pointer stays valid for later lookups.
func (l *Ledger) Counter(room domain.RoomID, account domain.AccountID, now time.Time) *domain.ActivityCounter {
	key := domain.ActivityKey{Room: room, Account: account}
	c, ok := l.counters[key]
	if !ok {
		c = &domain.ActivityCounter{LastResetAt: now}
		l.counters[key] = c
	}
	return c
}

// Touch returns the counter for (room, account) after applying the reset window
func (l *Ledger) Touch(room domain.RoomID, account domain.AccountID, now time.Time) *domain.ActivityCounter {
	c := l.Counter(room, account, now)
	c.ResetIfExpired(now, l.resetWindow)
	return c
}

// Lookup returns the counter without creating it
func (l *Ledger) Lookup(room domain.RoomID, account domain.AccountID) (*domain.ActivityCounter, bool) {
	c, ok := l.counters[domain.ActivityKey{Room: room, Account: account}]
	return c, ok
}

// Len returns the number of tracked counters
func (l *Ledger) Len() int {
	return len(l.counters)
}
