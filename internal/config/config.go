package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lessucettes/chatmod/internal/settings"
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	DB         DBConfig         `toml:"database"`
	Engine     EngineConfig     `toml:"engine"`
	Toxicity   ToxicityConfig   `toml:"toxicity"`
	Moderation ModerationConfig `toml:"moderation"`
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l *LogLevel) UnmarshalText(text []byte) error {
	v := string(text)
	switch LogLevel(v) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		*l = LogLevel(v)
		return nil
	default:
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, error)", v)
	}
}

func (l LogLevel) String() string { return string(l) }

func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogConfig struct {
	Level LogLevel `toml:"level"`
	// FlagLevels overrides the level used when a decision carrying the flag is logged.
	FlagLevels map[string]LogLevel `toml:"flag_levels"`
}

type DBConfig struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`

	// ArchiveTTL is how long emitted actions are kept in the audit archive.
	ArchiveTTL time.Duration `toml:"archive_ttl"`
}

type EngineConfig struct {
	Moderator      string        `toml:"moderator"`
	SweepInterval  time.Duration `toml:"sweep_interval"`
	HistorySize    int           `toml:"history_size"`
	HistoryUsers   int           `toml:"history_users"`
	HistoryTTL     time.Duration `toml:"history_ttl"`
	ActionLogSize  int           `toml:"action_log_size"`
	ActionTTL      time.Duration `toml:"action_ttl"`
	QueueTTL       time.Duration `toml:"queue_ttl"`
	RegexCacheSize int           `toml:"regex_cache_size"`
	Raid           RaidConfig    `toml:"raid"`
}

type RaidConfig struct {
	DetectWindow    time.Duration `toml:"detect_window"`
	RetainWindow    time.Duration `toml:"retain_window"`
	ClearBelow      int           `toml:"clear_below"`
	SlowModeDelay   int           `toml:"slow_mode_delay"`
	LockdownDelay   int           `toml:"lockdown_delay"`
	AlertsPerMinute float64       `toml:"alerts_per_minute"`
}

type ToxicityConfig struct {
	Words             []string `toml:"words"`
	WordWeight        float64  `toml:"word_weight"`
	CapsRatio         float64  `toml:"caps_ratio"`
	CapsWeight        float64  `toml:"caps_weight"`
	PunctuationWeight float64  `toml:"punctuation_weight"`
}

type ModerationConfig struct {
	// Preset is applied on startup and on every reload when set.
	Preset string `toml:"preset"`
}

// DefaultToxicWords is the built-in toxic word list.
var DefaultToxicWords = []string{"idiot", "stupid", "dumb", "loser", "trash", "noob", "hate", "kys", "stfu", "moron"}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Moderator:      "AutoMod",
		SweepInterval:  time.Minute,
		HistorySize:    10,
		HistoryUsers:   50000,
		HistoryTTL:     time.Hour,
		ActionLogSize:  100,
		ActionTTL:      time.Hour,
		QueueTTL:       time.Hour,
		RegexCacheSize: 256,
		Raid: RaidConfig{
			DetectWindow:    time.Minute,
			RetainWindow:    2 * time.Minute,
			ClearBelow:      10,
			SlowModeDelay:   10,
			LockdownDelay:   30,
			AlertsPerMinute: 6,
		},
	}
}

func DefaultToxicityConfig() ToxicityConfig {
	return ToxicityConfig{
		Words:             append([]string(nil), DefaultToxicWords...),
		WordWeight:        0.2,
		CapsRatio:         0.7,
		CapsWeight:        0.3,
		PunctuationWeight: 0.2,
	}
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: InfoLevel},
		DB: DBConfig{
			Enabled:    true,
			Path:       "./chatmod-db",
			ArchiveTTL: 24 * time.Hour,
		},
		Engine:   DefaultEngineConfig(),
		Toxicity: DefaultToxicityConfig(),
	}
}

// Default returns the built-in configuration.
func Default() *Config { return defaultConfig() }

func (c *Config) validate() error {
	// --- [database] ---
	if c.DB.Enabled && !c.DB.InMemory && c.DB.Path == "" {
		return errors.New("database.path must be set when the database is enabled")
	}
	if c.DB.Enabled && c.DB.ArchiveTTL <= 0 {
		return errors.New("database.archive_ttl must be a positive duration")
	}

	// --- [engine] ---
	e := c.Engine
	if e.Moderator == "" {
		return errors.New("engine.moderator must not be empty")
	}
	if e.SweepInterval <= 0 {
		return errors.New("engine.sweep_interval must be a positive duration")
	}
	if e.HistorySize <= 0 {
		return errors.New("engine.history_size must be > 0")
	}
	if e.HistoryUsers <= 0 {
		return errors.New("engine.history_users must be > 0")
	}
	if e.HistoryTTL <= 0 {
		return errors.New("engine.history_ttl must be a positive duration")
	}
	if e.ActionLogSize <= 0 {
		return errors.New("engine.action_log_size must be > 0")
	}
	if e.ActionTTL <= 0 || e.QueueTTL <= 0 {
		return errors.New("engine.action_ttl and engine.queue_ttl must be positive durations")
	}
	if e.RegexCacheSize <= 0 {
		return errors.New("engine.regex_cache_size must be > 0")
	}

	// [engine.raid]
	r := e.Raid
	if r.DetectWindow <= 0 || r.RetainWindow <= 0 {
		return errors.New("engine.raid.detect_window and engine.raid.retain_window must be positive durations")
	}
	if r.DetectWindow > r.RetainWindow {
		return fmt.Errorf("engine.raid.detect_window (%s) must not exceed retain_window (%s)", r.DetectWindow, r.RetainWindow)
	}
	if r.ClearBelow < 0 {
		return errors.New("engine.raid.clear_below must not be negative")
	}
	if r.SlowModeDelay < 0 || r.LockdownDelay < 0 {
		return errors.New("engine.raid delays must not be negative")
	}
	if r.AlertsPerMinute < 0 {
		return errors.New("engine.raid.alerts_per_minute must not be negative")
	}

	// --- [toxicity] ---
	t := c.Toxicity
	for name, w := range map[string]float64{
		"word_weight":        t.WordWeight,
		"caps_weight":        t.CapsWeight,
		"punctuation_weight": t.PunctuationWeight,
		"caps_ratio":         t.CapsRatio,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("toxicity.%s must be in [0.0, 1.0], got %f", name, w)
		}
	}

	// --- [moderation] ---
	if p := c.Moderation.Preset; p != "" {
		if _, ok := settings.LookupPreset(p); !ok {
			return fmt.Errorf("moderation.preset: unknown preset %q (must be one of %s)", p, strings.Join(settings.PresetNames(), ", "))
		}
	}
	return nil
}

func Load(path string, useDefaults bool) (*Config, bool, error) {
	cfg := defaultConfig()
	defaultsUsed := false

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if useDefaults {
				defaultsUsed = true
				if err := cfg.validate(); err != nil {
					return nil, true, err
				}
				return cfg, defaultsUsed, nil
			}
			return nil, false, fmt.Errorf("config file not found at %s", path)
		}
		return nil, false, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, false, err
	}
	return cfg, defaultsUsed, nil
}
