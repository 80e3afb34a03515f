package domain

import "time"

// ActivityCounter tracks one user's activity in one room
type ActivityCounter struct {
	StampCount   int
	MentionCount int
	LastResetAt  time.Time
}

// ActivityKey keys a counter by room and account
type ActivityKey struct {
	Room    RoomID
	Account AccountID
}

// ResetIfExpired zeroes both counters once window has elapsed since the last reset.
// It reports whether a reset happened.
func (c *ActivityCounter) ResetIfExpired(now time.Time, window time.Duration) bool {
	if now.Sub(c.LastResetAt) < window {
		return false
	}
	c.StampCount = 0
	c.MentionCount = 0
	c.LastResetAt = now
	return true
}

// AddStamps adds n stamps and reports whether threshold was reached.
// Reaching the threshold resets the stamp count only.
func (c *ActivityCounter) AddStamps(n, threshold int) bool {
	c.StampCount += n
	if threshold > 0 && c.StampCount >= threshold {
		c.StampCount = 0
		return true
	}
	return false
}

// AddMentions adds n mentions and reports whether threshold was reached.
// Reaching the threshold resets the mention count only.
func (c *ActivityCounter) AddMentions(n, threshold int) bool {
	c.MentionCount += n
	if threshold > 0 && c.MentionCount >= threshold {
		c.MentionCount = 0
		return true
	}
	return false
}
