// Package actionlog keeps the bounded, time-ordered record of emitted
// moderation actions.
package actionlog

import (
	"slices"
	"sync"
	"time"

	"github.com/lessucettes/chatmod/internal/chat"
)

const DefaultCapacity = 100

type Log struct {
	mu       sync.RWMutex
	capacity int
	entries  []chat.Action
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]chat.Action, 0, capacity)}
}

// Append adds a, dropping the oldest entries beyond capacity.
func (l *Log) Append(a chat.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if over := len(l.entries) + 1 - l.capacity; over > 0 {
		l.entries = slices.Delete(l.entries, 0, over)
	}
	l.entries = append(l.entries, a)
}

// Snapshot returns the entries, oldest first.
func (l *Log) Snapshot() []chat.Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// PruneOlderThan drops entries timestamped before cutoff and returns how many went.
func (l *Log) PruneOlderThan(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	before := len(l.entries)
	l.entries = slices.DeleteFunc(l.entries, func(a chat.Action) bool {
		return a.Timestamp.Before(cutoff)
	})
	return before - len(l.entries)
}

// Counts aggregates the log by action type.
type Counts struct {
	Total     int `json:"totalActions"`
	Last24h   int `json:"last24hActions"`
	Timeouts  int `json:"timeouts"`
	Bans      int `json:"bans"`
	Warnings  int `json:"warnings"`
	Deletions int `json:"deletions"`
}

func (l *Log) Counts(now time.Time) Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c := Counts{Total: len(l.entries)}
	dayAgo := now.Add(-24 * time.Hour)
	for _, a := range l.entries {
		if !a.Timestamp.Before(dayAgo) {
			c.Last24h++
		}
		switch a.Type {
		case chat.ActionTimeout:
			c.Timeouts++
		case chat.ActionBan:
			c.Bans++
		case chat.ActionWarn:
			c.Warnings++
		case chat.ActionDelete:
			c.Deletions++
		}
	}
	return c
}
