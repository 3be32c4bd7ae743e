package policy

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/lessucettes/chatmod/internal/config"
)

const toxicityFilterName = "ToxicityFilter"

var shoutPunctuation = regexp.MustCompile(`[!?]{3,}`)

// activeToxicityConfig holds a snapshot of the tunables with lower-cased words.
type activeToxicityConfig struct {
	raw   config.ToxicityConfig
	words []string
}

// ToxicityFilter scores messages with a fixed heuristic: toxic words, shouting
// and punctuation runs each add to a score clamped to [0, 1].
type ToxicityFilter struct {
	mu        sync.RWMutex
	activeCfg *activeToxicityConfig
}

func NewToxicityFilter(cfg config.ToxicityConfig) *ToxicityFilter {
	f := &ToxicityFilter{}
	f.activeCfg = buildToxicityConfig(cfg)
	return f
}

func (f *ToxicityFilter) Name() string { return toxicityFilterName }

// UpdateConfig atomically replaces the scoring tunables.
func (f *ToxicityFilter) UpdateConfig(cfg config.ToxicityConfig) {
	next := buildToxicityConfig(cfg)
	f.mu.Lock()
	f.activeCfg = next
	f.mu.Unlock()
}

func buildToxicityConfig(cfg config.ToxicityConfig) *activeToxicityConfig {
	words := make([]string, 0, len(cfg.Words))
	for _, w := range cfg.Words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	cfg.Words = append([]string(nil), cfg.Words...)
	return &activeToxicityConfig{raw: cfg, words: words}
}

// Score returns the toxicity score of text.
func (f *ToxicityFilter) Score(text string) float64 {
	f.mu.RLock()
	cfg := f.activeCfg
	f.mu.RUnlock()

	score := 0.0
	lower := strings.ToLower(text)
	for _, w := range cfg.words {
		if strings.Contains(lower, w) {
			score += cfg.raw.WordWeight
		}
	}

	if total := utf8.RuneCountInString(text); total > 0 {
		upper := 0
		for _, r := range text {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(total) > cfg.raw.CapsRatio {
			score += cfg.raw.CapsWeight
		}
	}

	if shoutPunctuation.MatchString(text) {
		score += cfg.raw.PunctuationWeight
	}

	return min(max(score, 0), 1)
}

func (f *ToxicityFilter) Match(_ context.Context, in *Input) (FilterResult, error) {
	newResult := NewResultFunc(toxicityFilterName)
	cfg := in.Settings.ToxicityFilter
	if !cfg.Enabled {
		return newResult(nil, 0, nil)
	}

	score := f.Score(in.Message.Message)
	if score > cfg.Threshold {
		return newResult([]string{FlagToxicContent}, score, nil)
	}
	return newResult(nil, score, nil)
}
