// Package history keeps the bounded sliding-window state the rule evaluators
// and the raid guard read: recent messages per user and recent join times.
package history

import (
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lessucettes/chatmod/internal/chat"
)

const DefaultPerUser = 10

// Users holds the last few messages of each active user. Users idle for
// longer than the TTL, or pushed out by the user cap, are forgotten.
type Users struct {
	mu      sync.Mutex
	perUser int
	cache   *lru.LRU[string, []chat.Message]
}

func NewUsers(perUser, maxUsers int, idleTTL time.Duration) *Users {
	if perUser <= 0 {
		perUser = DefaultPerUser
	}
	if maxUsers <= 0 {
		maxUsers = 10000
	}
	return &Users{
		perUser: perUser,
		cache:   lru.NewLRU[string, []chat.Message](maxUsers, nil, idleTTL),
	}
}

// Record appends msg to its sender's history, evicting the oldest entry
// once the per-user limit is exceeded.
func (u *Users) Record(msg chat.Message) {
	u.mu.Lock()
	defer u.mu.Unlock()

	prev, _ := u.cache.Get(msg.User)
	next := make([]chat.Message, 0, min(len(prev)+1, u.perUser))
	if over := len(prev) + 1 - u.perUser; over > 0 {
		prev = prev[over:]
	}
	next = append(next, prev...)
	next = append(next, msg)
	u.cache.Add(msg.User, next)
}

// History returns a copy of the user's messages, oldest first.
func (u *Users) History(user string) []chat.Message {
	u.mu.Lock()
	defer u.mu.Unlock()
	h, ok := u.cache.Peek(user)
	if !ok {
		return []chat.Message{}
	}
	return slices.Clone(h)
}

// Len returns the number of users currently tracked.
func (u *Users) Len() int {
	return u.cache.Len()
}

// Joins is a time-ordered list of join timestamps pruned to a retention window.
type Joins struct {
	mu     sync.Mutex
	retain time.Duration
	times  []time.Time
}

func NewJoins(retain time.Duration) *Joins {
	return &Joins{retain: retain}
}

// Record appends t and prunes entries older than the retention window relative to t.
func (j *Joins) Record(t time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.times = append(j.times, t)
	j.pruneLocked(t)
}

// Prune drops entries older than the retention window relative to now and
// returns how many were dropped.
func (j *Joins) Prune(now time.Time) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pruneLocked(now)
}

func (j *Joins) pruneLocked(now time.Time) int {
	cutoff := now.Add(-j.retain)
	i := 0
	for i < len(j.times) && j.times[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		j.times = slices.Delete(j.times, 0, i)
	}
	return i
}

// CountSince returns the number of joins at or after t.
func (j *Joins) CountSince(t time.Time) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for i := len(j.times) - 1; i >= 0 && !j.times[i].Before(t); i-- {
		n++
	}
	return n
}

func (j *Joins) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.times)
}
