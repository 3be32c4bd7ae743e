package policy

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	bannedWordFilterName  = "BannedWordFilter"
	defaultRegexCacheSize = 256
)

// compiledPattern caches a compile outcome; a nil regex marks an invalid pattern.
type compiledPattern struct {
	regex *regexp.Regexp
}

// BannedWordFilter matches banned substrings and user-supplied regexps.
// Patterns are compiled on first use and cached.
type BannedWordFilter struct {
	patterns *lru.Cache[string, compiledPattern]
}

func NewBannedWordFilter(cacheSize int) (*BannedWordFilter, error) {
	if cacheSize <= 0 {
		cacheSize = defaultRegexCacheSize
	}
	cache, err := lru.New[string, compiledPattern](cacheSize)
	if err != nil {
		return nil, err
	}
	return &BannedWordFilter{patterns: cache}, nil
}

func (f *BannedWordFilter) Name() string { return bannedWordFilterName }

func (f *BannedWordFilter) Match(_ context.Context, in *Input) (FilterResult, error) {
	newResult := NewResultFunc(bannedWordFilterName)
	cfg := in.Settings.BannedWords
	if !cfg.Enabled {
		return newResult(nil, 0, nil)
	}

	text := in.Message.Message
	lower := strings.ToLower(text)
	for _, word := range cfg.Words {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return newResult([]string{FlagBannedWord}, 0, nil)
		}
	}

	for _, pattern := range cfg.RegexPatterns {
		re := f.compile(pattern)
		if re != nil && re.MatchString(text) {
			return newResult([]string{FlagBannedWord}, 0, nil)
		}
	}
	return newResult(nil, 0, nil)
}

// compile returns the case-insensitive regexp for pattern, or nil if the
// pattern is malformed. Failures are logged once while they stay cached.
func (f *BannedWordFilter) compile(pattern string) *regexp.Regexp {
	if c, ok := f.patterns.Get(pattern); ok {
		return c.regex
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		slog.Error("Invalid banned-word regexp, skipping it", "pattern", pattern, "error", err)
		re = nil
	}
	f.patterns.Add(pattern, compiledPattern{regex: re})
	return re
}
