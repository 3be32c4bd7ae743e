// Package settings holds the moderation policy: the ModSettings structure,
// typed partial patches with a per-block merge, named presets, and the Store
// that serializes updates to them.
package settings

import (
	"fmt"
	"slices"
)

type ToxicityAction string

const (
	ToxicityWarn    ToxicityAction = "warn"
	ToxicityTimeout ToxicityAction = "timeout"
	ToxicityBan     ToxicityAction = "ban"
)

func (a ToxicityAction) valid() bool {
	switch a {
	case ToxicityWarn, ToxicityTimeout, ToxicityBan:
		return true
	}
	return false
}

type RaidAction string

const (
	RaidSlowMode RaidAction = "slowMode"
	RaidSubOnly  RaidAction = "subOnly"
	RaidLockdown RaidAction = "lockdown"
)

func (a RaidAction) valid() bool {
	switch a {
	case RaidSlowMode, RaidSubOnly, RaidLockdown:
		return true
	}
	return false
}

type SpamFilter struct {
	Enabled       bool    `json:"enabled"`
	MaxRepeats    int     `json:"maxRepeats"`
	CapsThreshold float64 `json:"capsThreshold"` // percent of letters
	EmoteLimit    int     `json:"emoteLimit"`
	MinInterval   float64 `json:"minInterval"` // seconds
}

type LinkPolicy struct {
	Enabled   bool     `json:"enabled"`
	BlockAll  bool     `json:"blockAll"`
	Whitelist []string `json:"whitelist"`
}

type BannedWords struct {
	Enabled       bool     `json:"enabled"`
	Words         []string `json:"words"`
	RegexPatterns []string `json:"regexPatterns"`
}

type ToxicityFilter struct {
	Enabled   bool           `json:"enabled"`
	Threshold float64        `json:"threshold"`
	Action    ToxicityAction `json:"action"`
}

type RaidGuard struct {
	Enabled   bool       `json:"enabled"`
	Threshold int        `json:"threshold"`
	Action    RaidAction `json:"action"`
}

// ModSettings is always a complete structure; partial changes go through Patch.
type ModSettings struct {
	SpamFilter     SpamFilter     `json:"spamFilter"`
	LinkPolicy     LinkPolicy     `json:"linkPolicy"`
	BannedWords    BannedWords    `json:"bannedWords"`
	ToxicityFilter ToxicityFilter `json:"toxicityFilter"`
	RaidGuard      RaidGuard      `json:"raidGuard"`
}

// Default returns the settings restored by Reset.
func Default() ModSettings {
	return ModSettings{
		SpamFilter: SpamFilter{
			Enabled:       true,
			MaxRepeats:    3,
			CapsThreshold: 70,
			EmoteLimit:    5,
			MinInterval:   1,
		},
		LinkPolicy: LinkPolicy{
			Enabled:   true,
			BlockAll:  false,
			Whitelist: []string{"youtube.com", "twitch.tv"},
		},
		BannedWords: BannedWords{
			Enabled:       true,
			Words:         []string{},
			RegexPatterns: []string{},
		},
		ToxicityFilter: ToxicityFilter{
			Enabled:   true,
			Threshold: 0.7,
			Action:    ToxicityTimeout,
		},
		RaidGuard: RaidGuard{
			Enabled:   true,
			Threshold: 50,
			Action:    RaidSlowMode,
		},
	}
}

// Clone returns a copy that shares no slices with s.
func (s ModSettings) Clone() ModSettings {
	out := s
	out.LinkPolicy.Whitelist = slices.Clone(s.LinkPolicy.Whitelist)
	out.BannedWords.Words = slices.Clone(s.BannedWords.Words)
	out.BannedWords.RegexPatterns = slices.Clone(s.BannedWords.RegexPatterns)
	return out
}

// Equal reports whether two settings hold the same values. Nil and empty lists compare equal.
func (s ModSettings) Equal(o ModSettings) bool {
	return s.SpamFilter == o.SpamFilter &&
		s.ToxicityFilter == o.ToxicityFilter &&
		s.RaidGuard == o.RaidGuard &&
		s.LinkPolicy.Enabled == o.LinkPolicy.Enabled &&
		s.LinkPolicy.BlockAll == o.LinkPolicy.BlockAll &&
		slices.Equal(s.LinkPolicy.Whitelist, o.LinkPolicy.Whitelist) &&
		s.BannedWords.Enabled == o.BannedWords.Enabled &&
		slices.Equal(s.BannedWords.Words, o.BannedWords.Words) &&
		slices.Equal(s.BannedWords.RegexPatterns, o.BannedWords.RegexPatterns)
}

// Validate checks ranges and enum values of every block.
func (s ModSettings) Validate() error {
	sf := s.SpamFilter
	if sf.MaxRepeats < 1 {
		return &ValidationError{Field: "spamFilter.maxRepeats", Reason: "must be >= 1"}
	}
	if sf.CapsThreshold < 0 || sf.CapsThreshold > 100 {
		return &ValidationError{Field: "spamFilter.capsThreshold", Reason: "must be in [0, 100]"}
	}
	if sf.EmoteLimit < 0 {
		return &ValidationError{Field: "spamFilter.emoteLimit", Reason: "must not be negative"}
	}
	if sf.MinInterval < 0 {
		return &ValidationError{Field: "spamFilter.minInterval", Reason: "must not be negative"}
	}
	for i, w := range s.LinkPolicy.Whitelist {
		if w == "" {
			return &ValidationError{Field: fmt.Sprintf("linkPolicy.whitelist[%d]", i), Reason: "must not be empty"}
		}
	}
	for i, w := range s.BannedWords.Words {
		if w == "" {
			return &ValidationError{Field: fmt.Sprintf("bannedWords.words[%d]", i), Reason: "must not be empty"}
		}
	}
	tf := s.ToxicityFilter
	if tf.Threshold < 0 || tf.Threshold > 1 {
		return &ValidationError{Field: "toxicityFilter.threshold", Reason: "must be in [0.0, 1.0]"}
	}
	if !tf.Action.valid() {
		return &ValidationError{Field: "toxicityFilter.action", Reason: fmt.Sprintf("unknown action %q (must be warn, timeout, ban)", tf.Action)}
	}
	rg := s.RaidGuard
	if rg.Threshold < 0 {
		return &ValidationError{Field: "raidGuard.threshold", Reason: "must not be negative"}
	}
	if !rg.Action.valid() {
		return &ValidationError{Field: "raidGuard.action", Reason: fmt.Sprintf("unknown action %q (must be slowMode, subOnly, lockdown)", rg.Action)}
	}
	return nil
}
