// Package raid detects bursts of joins and holds the resulting raid state.
package raid

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/history"
	"github.com/lessucettes/chatmod/internal/settings"
)

// State is the process-wide raid state read by the enforcement side.
type State struct {
	IsRaidMode           bool                `json:"isRaidMode"`
	SlowModeDelaySeconds int                 `json:"slowModeDelaySeconds"`
	Mitigation           settings.RaidAction `json:"mitigation,omitempty"`
}

type Guard struct {
	mu     sync.Mutex
	cfg    config.RaidConfig
	joins  *history.Joins
	state  State
	alerts *rate.Limiter
}

func NewGuard(cfg config.RaidConfig) *Guard {
	return &Guard{
		cfg:    cfg,
		joins:  history.NewJoins(cfg.RetainWindow),
		alerts: newAlertLimiter(cfg.AlertsPerMinute),
	}
}

func newAlertLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perMinute/60), 1)
}

// UpdateConfig swaps the delays and alert throttle. Windows keep their
// original values since recorded joins were pruned against them.
func (g *Guard) UpdateConfig(cfg config.RaidConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cfg.RetainWindow = g.cfg.RetainWindow
	cfg.DetectWindow = g.cfg.DetectWindow
	g.cfg = cfg
	g.alerts = newAlertLimiter(cfg.AlertsPerMinute)
}

// RecordJoin registers a join at now and re-evaluates the join velocity.
// It returns the joins in the detection window and whether the threshold
// was exceeded. Raid mode is never cleared here.
func (g *Guard) RecordJoin(now time.Time, policy settings.RaidGuard) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.joins.Record(now)
	recent := g.joins.CountSince(now.Add(-g.cfg.DetectWindow))
	if !policy.Enabled || recent <= policy.Threshold {
		return recent, false
	}

	wasRaid := g.state.IsRaidMode
	g.state.IsRaidMode = true
	g.state.Mitigation = policy.Action
	switch policy.Action {
	case settings.RaidSlowMode:
		g.state.SlowModeDelaySeconds = g.cfg.SlowModeDelay
	case settings.RaidLockdown:
		g.state.SlowModeDelaySeconds = g.cfg.LockdownDelay
	case settings.RaidSubOnly:
		g.state.SlowModeDelaySeconds = 0
	}

	if !wasRaid || g.alerts.Allow() {
		slog.Warn("Raid detected",
			"recent_joins", recent,
			"threshold", policy.Threshold,
			"mitigation", policy.Action,
			"slow_mode_delay", g.state.SlowModeDelaySeconds,
		)
	}
	return recent, true
}

// Sweep prunes old joins and leaves raid mode once fewer than the configured
// number of joins remain in the retention window.
func (g *Guard) Sweep(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.joins.Prune(now)
	if !g.state.IsRaidMode {
		return false
	}
	remaining := g.joins.CountSince(now.Add(-g.cfg.RetainWindow))
	if remaining >= g.cfg.ClearBelow {
		return false
	}
	g.state = State{}
	slog.Info("Raid mode cleared", "joins_in_window", remaining)
	return true
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// RecentJoins returns the number of joins within the detection window before now.
func (g *Guard) RecentJoins(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joins.CountSince(now.Add(-g.cfg.DetectWindow))
}
