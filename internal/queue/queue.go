// Package queue manages the Q&A and giveaway queues.
package queue

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lessucettes/chatmod/internal/chat"
)

var ErrUnknownType = errors.New("unknown queue item type")

type Option func(*Manager)

// WithClock overrides the time source used to stamp items.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRandom overrides the [0,1) source used by DrawWinner.
func WithRandom(r func() float64) Option {
	return func(m *Manager) { m.random = r }
}

type Manager struct {
	mu     sync.RWMutex
	items  []chat.QueueItem
	now    func() time.Time
	random func() float64
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{now: time.Now, random: rand.Float64}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends a new item with a fresh id and timestamp.
func (m *Manager) Add(user, message string, typ chat.ItemType) (chat.QueueItem, error) {
	if !typ.Valid() {
		return chat.QueueItem{}, fmt.Errorf("%w: %q (must be question or giveaway)", ErrUnknownType, typ)
	}
	item := chat.QueueItem{
		ID:        uuid.NewString(),
		User:      user,
		Message:   message,
		Timestamp: m.now(),
		Type:      typ,
	}

	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	return item, nil
}

// Approve marks the item approved. It reports whether the id exists.
func (m *Manager) Approve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Approved = true
			return true
		}
	}
	return false
}

// Remove deletes the item. It reports whether the id existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.items)
	m.items = slices.DeleteFunc(m.items, func(it chat.QueueItem) bool { return it.ID == id })
	return len(m.items) != before
}

// Clear removes every item of typ, or every item when typ is empty.
func (m *Manager) Clear(typ chat.ItemType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.items)
	if typ == "" {
		m.items = nil
		return before
	}
	m.items = slices.DeleteFunc(m.items, func(it chat.QueueItem) bool { return it.Type == typ })
	return before - len(m.items)
}

// DrawWinner picks one unapproved giveaway entry uniformly at random and
// approves it. The eligible set is computed under the lock, so an entry can
// never win twice.
func (m *Manager) DrawWinner() (chat.QueueItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var eligible []int
	for i, it := range m.items {
		if it.Type == chat.ItemGiveaway && !it.Approved {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return chat.QueueItem{}, false
	}

	pick := int(m.random() * float64(len(eligible)))
	pick = min(max(pick, 0), len(eligible)-1)

	idx := eligible[pick]
	m.items[idx].Approved = true
	return m.items[idx], true
}

// PruneOlderThan drops unapproved items stamped before cutoff.
func (m *Manager) PruneOlderThan(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.items)
	m.items = slices.DeleteFunc(m.items, func(it chat.QueueItem) bool {
		return !it.Approved && it.Timestamp.Before(cutoff)
	})
	return before - len(m.items)
}

// Snapshot returns the items in insertion order.
func (m *Manager) Snapshot() []chat.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

type Counts struct {
	Size            int `json:"queueSize"`
	Questions       int `json:"questionsInQueue"`
	GiveawayEntries int `json:"giveawayEntries"`
}

func (m *Manager) Counts() Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := Counts{Size: len(m.items)}
	for _, it := range m.items {
		switch it.Type {
		case chat.ItemQuestion:
			c.Questions++
		case chat.ItemGiveaway:
			c.GiveawayEntries++
		}
	}
	return c
}
