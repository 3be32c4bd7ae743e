package policy

import (
	"context"
	"regexp"

	"github.com/lessucettes/chatmod/internal/history"
)

const spamFilterName = "SpamFilter"

var emoteRegex = regexp.MustCompile(`:\w+:`)

// SpamFilter flags flooding, repeats, shouting and emote walls. It owns the
// per-user history and records every message it sees, enabled or not.
type SpamFilter struct {
	users *history.Users
}

func NewSpamFilter(users *history.Users) *SpamFilter {
	return &SpamFilter{users: users}
}

func (f *SpamFilter) Name() string { return spamFilterName }

func (f *SpamFilter) Match(_ context.Context, in *Input) (FilterResult, error) {
	newResult := NewResultFunc(spamFilterName)
	msg := in.Message
	prior := f.users.History(msg.User)
	f.users.Record(msg)

	cfg := in.Settings.SpamFilter
	if !cfg.Enabled {
		return newResult(nil, 0, nil)
	}

	var flags []string
	if n := len(prior); n > 0 {
		gap := msg.Timestamp.Sub(prior[n-1].Timestamp).Seconds()
		if gap < cfg.MinInterval {
			flags = append(flags, FlagFastMessaging)
		}

		window := prior[max(0, n-cfg.MaxRepeats):]
		repeats := 0
		for _, p := range window {
			if p.Message == msg.Message {
				repeats++
			}
		}
		if repeats >= cfg.MaxRepeats-1 {
			flags = append(flags, FlagRepeatedMessage)
		}
	}

	if ratio, ok := asciiCapsPercent(msg.Message); ok && ratio > cfg.CapsThreshold {
		flags = append(flags, FlagExcessiveCaps)
	}

	if len(emoteRegex.FindAllStringIndex(msg.Message, -1)) > cfg.EmoteLimit {
		flags = append(flags, FlagEmoteSpam)
	}

	return newResult(flags, 0, nil)
}

// asciiCapsPercent returns the share of A-Z among ASCII letters, in percent.
func asciiCapsPercent(s string) (float64, bool) {
	caps, letters := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			caps++
			letters++
		case c >= 'a' && c <= 'z':
			letters++
		}
	}
	if letters == 0 {
		return 0, false
	}
	return float64(caps) / float64(letters) * 100, true
}
