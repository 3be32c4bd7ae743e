package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/settings"
	"github.com/lessucettes/chatmod/internal/testutils"
)

func TestLinkFilter_Match(t *testing.T) {
	blockAll := settings.Default()
	blockAll.LinkPolicy = settings.LinkPolicy{Enabled: true, BlockAll: true, Whitelist: []string{"youtube.com"}}

	allowAll := blockAll.Clone()
	allowAll.LinkPolicy.BlockAll = false

	disabled := blockAll.Clone()
	disabled.LinkPolicy.Enabled = false

	testCases := []struct {
		name    string
		s       settings.ModSettings
		text    string
		blocked bool
	}{
		{name: "whitelisted bare domain with path", s: blockAll, text: "check youtube.com/xyz", blocked: false},
		{name: "unknown bare domain", s: blockAll, text: "check evil.com", blocked: true},
		{name: "scheme url", s: blockAll, text: "go to https://phish.example/login", blocked: true},
		{name: "www host", s: blockAll, text: "www.freestuff.net now", blocked: true},
		{name: "whitelist is case-insensitive", s: blockAll, text: "HTTPS://WWW.YOUTUBE.COM/watch?v=1", blocked: false},
		{name: "plain text", s: blockAll, text: "hello chat, how are you", blocked: false},
		{name: "block-all off", s: allowAll, text: "check evil.com", blocked: false},
		{name: "filter disabled", s: disabled, text: "check evil.com", blocked: false},
	}

	f := NewLinkFilter()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			flags := matchFlags(t, f, testutils.MakeMessage("alice", tc.text, testutils.Epoch), tc.s)
			if tc.blocked {
				require.Equal(t, []string{FlagContainsLink}, flags)
			} else {
				require.Empty(t, flags)
			}
		})
	}
}

func TestExtractLinks(t *testing.T) {
	require.Equal(t, []string{"youtube.com/xyz"}, ExtractLinks("check youtube.com/xyz"))
	require.Empty(t, ExtractLinks("nothing to see here"))
}

func TestBannedWordFilter_Match(t *testing.T) {
	s := settings.Default()
	s.BannedWords = settings.BannedWords{
		Enabled:       true,
		Words:         []string{"Scam"},
		RegexPatterns: []string{`[unclosed`, `free\s+v-?bucks`},
	}

	f, err := NewBannedWordFilter(8)
	require.NoError(t, err)

	t.Run("should match word case-insensitively as substring", func(t *testing.T) {
		flags := matchFlags(t, f, testutils.MakeMessage("alice", "total SCAMMER here", testutils.Epoch), s)
		require.Equal(t, []string{FlagBannedWord}, flags)
	})

	t.Run("should skip malformed pattern and evaluate the rest", func(t *testing.T) {
		flags := matchFlags(t, f, testutils.MakeMessage("alice", "get FREE VBUCKS", testutils.Epoch), s)
		require.Equal(t, []string{FlagBannedWord}, flags)
	})

	t.Run("should pass clean message", func(t *testing.T) {
		flags := matchFlags(t, f, testutils.MakeMessage("alice", "good game everyone", testutils.Epoch), s)
		require.Empty(t, flags)
	})

	t.Run("should do nothing when disabled", func(t *testing.T) {
		off := s.Clone()
		off.BannedWords.Enabled = false
		flags := matchFlags(t, f, testutils.MakeMessage("alice", "scam", testutils.Epoch), off)
		require.Empty(t, flags)
	})
}

func TestToxicityFilter_Score(t *testing.T) {
	f := NewToxicityFilter(config.DefaultToxicityConfig())

	testCases := []struct {
		name string
		text string
		want float64
	}{
		{name: "clean", text: "have a nice stream", want: 0},
		{name: "one toxic word", text: "you are an idiot", want: 0.2},
		{name: "two toxic words", text: "stupid idiot", want: 0.4},
		{name: "shouting", text: "WHAT IS THIS", want: 0.3},
		{name: "punctuation run", text: "really???", want: 0.2},
		{name: "everything clamps to one", text: "IDIOT STUPID MORON LOSER TRASH!!!", want: 1},
		{name: "empty", text: "", want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.want, f.Score(tc.text), 1e-9)
		})
	}
}

func TestToxicityFilter_Match(t *testing.T) {
	f := NewToxicityFilter(config.DefaultToxicityConfig())
	s := settings.Default()
	s.ToxicityFilter = settings.ToxicityFilter{Enabled: true, Threshold: 0.5, Action: settings.ToxicityTimeout}

	flags := matchFlags(t, f, testutils.MakeMessage("alice", "STUPID IDIOT!!!", testutils.Epoch), s)
	require.Equal(t, []string{FlagToxicContent}, flags)

	flags = matchFlags(t, f, testutils.MakeMessage("alice", "stupid idiot", testutils.Epoch), s)
	require.Empty(t, flags, "0.4 does not exceed 0.5")

	s.ToxicityFilter.Enabled = false
	flags = matchFlags(t, f, testutils.MakeMessage("alice", "STUPID IDIOT!!!", testutils.Epoch), s)
	require.Empty(t, flags)
}

func TestToxicityFilter_UpdateConfig(t *testing.T) {
	f := NewToxicityFilter(config.DefaultToxicityConfig())
	require.Zero(t, f.Score("rude words"))

	cfg := config.DefaultToxicityConfig()
	cfg.Words = []string{"  RUDE "}
	cfg.WordWeight = 0.5
	f.UpdateConfig(cfg)
	require.InDelta(t, 0.5, f.Score("rude words"), 1e-9)
}
