package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(text), 0o600))
	return p
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	_, _, err := Load(missing, false)
	require.Error(t, err)

	cfg, defaultsUsed, err := Load(missing, true)
	require.NoError(t, err)
	require.True(t, defaultsUsed)
	require.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
[log]
level = "debug"
flag_levels = { banned_word = "error", emote_spam = "info" }

[database]
in_memory = true

[engine]
moderator = "NightBot"
sweep_interval = "30s"

[engine.raid]
lockdown_delay = 60

[toxicity]
words = ["grief"]
word_weight = 0.5

[moderation]
preset = "party"
`)
	cfg, defaultsUsed, err := Load(p, false)
	require.NoError(t, err)
	require.False(t, defaultsUsed)

	require.Equal(t, DebugLevel, cfg.Log.Level)
	require.Equal(t, ErrorLevel, cfg.Log.FlagLevels["banned_word"])
	require.True(t, cfg.DB.InMemory)
	require.Equal(t, "NightBot", cfg.Engine.Moderator)
	require.Equal(t, 30*time.Second, cfg.Engine.SweepInterval)
	require.Equal(t, 60, cfg.Engine.Raid.LockdownDelay)
	require.Equal(t, 10, cfg.Engine.Raid.SlowModeDelay, "untouched keys keep defaults")
	require.Equal(t, []string{"grief"}, cfg.Toxicity.Words)
	require.Equal(t, 0.3, cfg.Toxicity.CapsWeight)
	require.Equal(t, "party", cfg.Moderation.Preset)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		text string
	}{
		{name: "bad log level", text: "[log]\nlevel = \"loud\"\n"},
		{name: "unknown preset", text: "[moderation]\npreset = \"rave\"\n"},
		{name: "zero sweep interval", text: "[engine]\nsweep_interval = \"0s\"\n"},
		{name: "detect window beyond retention", text: "[engine.raid]\ndetect_window = \"5m\"\n"},
		{name: "weight out of range", text: "[toxicity]\nword_weight = 1.5\n"},
		{name: "empty moderator", text: "[engine]\nmoderator = \"\"\n"},
		{name: "not toml", text: "this = = broken"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tc.text), false)
			require.Error(t, err)
		})
	}
}

func TestLogLevel_ToSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, DebugLevel.ToSlogLevel())
	require.Equal(t, slog.LevelWarn, WarnLevel.ToSlogLevel())
	require.Equal(t, slog.LevelInfo, LogLevel("").ToSlogLevel())
}

func TestLoad_UnknownPresetNamesKnownOnes(t *testing.T) {
	_, _, err := Load(writeConfig(t, "[moderation]\npreset = \"rave\"\n"), false)
	require.ErrorContains(t, err, `unknown preset "rave"`)
	require.ErrorContains(t, err, "chill, balanced, party, lockdown")

	for _, name := range []string{"chill", "balanced", "party", "lockdown"} {
		cfg, _, err := Load(writeConfig(t, "[moderation]\npreset = \""+name+"\"\n"), false)
		require.NoError(t, err)
		require.Equal(t, name, cfg.Moderation.Preset)
	}
}
