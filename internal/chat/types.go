// Package chat defines the values exchanged between the moderation engine and
// its collaborators: inbound messages, emitted moderation actions and queue items.
package chat

import (
	"fmt"
	"time"
)

// Message is an inbound chat message. It is treated as immutable.
type Message struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Flagged   bool      `json:"flagged,omitempty"`
	Flags     []string  `json:"flags,omitempty"`
}

type ActionType string

const (
	ActionTimeout ActionType = "timeout"
	ActionBan     ActionType = "ban"
	ActionWarn    ActionType = "warn"
	ActionDelete  ActionType = "delete"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionTimeout, ActionBan, ActionWarn, ActionDelete:
		return true
	}
	return false
}

func (a *ActionType) UnmarshalText(text []byte) error {
	v := ActionType(text)
	if !v.Valid() {
		return fmt.Errorf("invalid action type: %q (must be timeout, ban, warn, delete)", string(text))
	}
	*a = v
	return nil
}

// Action is a moderation decision. Actions are append-only and never mutated.
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	User      string     `json:"user"`
	Reason    string     `json:"reason"`
	Moderator string     `json:"moderator"`
	Timestamp time.Time  `json:"timestamp"`
}

type ItemType string

const (
	ItemQuestion ItemType = "question"
	ItemGiveaway ItemType = "giveaway"
)

func (t ItemType) Valid() bool {
	return t == ItemQuestion || t == ItemGiveaway
}

// QueueItem is a Q&A question or a giveaway entry.
type QueueItem struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      ItemType  `json:"type"`
	Approved  bool      `json:"approved"`
}
