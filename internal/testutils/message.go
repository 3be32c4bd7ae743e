// Package testutils holds shared builders for tests.
package testutils

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lessucettes/chatmod/internal/chat"
)

// TestUser is used by tests that don't need a specific sender.
const TestUser = "viewer42"

// Epoch is a fixed reference time so that tests are deterministic.
var Epoch = time.Date(2024, time.March, 9, 20, 0, 0, 0, time.UTC)

var msgSeq atomic.Uint64

// MakeMessage builds a chat message with a predictable, unique ID.
func MakeMessage(user, text string, ts time.Time) chat.Message {
	return chat.Message{
		ID:        fmt.Sprintf("msg-%d", msgSeq.Add(1)),
		User:      user,
		Message:   text,
		Timestamp: ts,
	}
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
