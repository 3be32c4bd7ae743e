package policy

import (
	"context"
	"time"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/settings"
)

// Flags emitted by the rule evaluators.
const (
	FlagFastMessaging   = "fast_messaging"
	FlagRepeatedMessage = "repeated_message"
	FlagExcessiveCaps   = "excessive_caps"
	FlagEmoteSpam       = "emote_spam"
	FlagContainsLink    = "contains_link"
	FlagBannedWord      = "banned_word"
	FlagToxicContent    = "toxic_content"
)

var spamFlags = map[string]struct{}{
	FlagFastMessaging:   {},
	FlagRepeatedMessage: {},
	FlagExcessiveCaps:   {},
	FlagEmoteSpam:       {},
}

// IsSpamFlag reports whether flag is produced by the spam detector.
func IsSpamFlag(flag string) bool {
	_, ok := spamFlags[flag]
	return ok
}

// Input is what every filter sees for one message.
type Input struct {
	Message  chat.Message
	Settings settings.ModSettings
}

// FilterResult is the structured return type for all filters.
type FilterResult struct {
	Filter   string
	Flags    []string
	Score    float64
	Duration time.Duration
}

// Filter is implemented by every rule evaluator.
type Filter interface {
	Name() string
	Match(ctx context.Context, in *Input) (FilterResult, error)
}

// NewResultFunc returns a helper function for creating FilterResult objects.
func NewResultFunc(filterName string) func(flags []string, score float64, err error) (FilterResult, error) {
	start := time.Now()
	return func(flags []string, score float64, err error) (FilterResult, error) {
		return FilterResult{
			Filter:   filterName,
			Flags:    flags,
			Score:    score,
			Duration: time.Since(start),
		}, err
	}
}
