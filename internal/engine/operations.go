package engine

import (
	"fmt"
	"log/slog"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/settings"
)

// --- queue ---

func (e *Engine) QueueAdd(user, message string, typ chat.ItemType) (chat.QueueItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Add(user, message, typ)
}

func (e *Engine) QueueApprove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Approve(id)
}

func (e *Engine) QueueRemove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Remove(id)
}

// QueueClear removes items of typ, or all items when typ is empty.
func (e *Engine) QueueClear(typ chat.ItemType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Clear(typ)
}

// DrawWinner approves one random giveaway entry and announces it in the
// action log. It reports false when no entry is eligible.
func (e *Engine) DrawWinner() (chat.QueueItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.queue.DrawWinner()
	if !ok {
		return chat.QueueItem{}, false
	}
	e.actions.Append(e.newAction(chat.ActionWarn, w.User,
		fmt.Sprintf("Congratulations %s, you won the giveaway!", w.User), e.cfg.Engine.Moderator))
	slog.Info("Giveaway winner drawn", "user", w.User, "item_id", w.ID)
	return w, true
}

func (e *Engine) Queue() []chat.QueueItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.Snapshot()
}

// --- settings ---

func (e *Engine) Settings() settings.ModSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Get()
}

func (e *Engine) ActivePreset() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.ActivePreset()
}

func (e *Engine) UpdateSettings(p settings.Patch) (settings.ModSettings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Update(p)
}

func (e *Engine) ApplyPreset(name string) (settings.ModSettings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.ApplyPreset(name)
}

func (e *Engine) ResetSettings() settings.ModSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Reset()
}

func (e *Engine) ExportSettings() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Export()
}

func (e *Engine) ImportSettings(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Import(data)
}

// SetTunables applies a reloaded configuration. Only the moderator identity,
// TTLs, toxicity weights, raid delays and flag log levels change at runtime;
// sizes and the sweep interval need a restart.
func (e *Engine) SetTunables(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.cfg
	next.Log = cfg.Log
	next.Toxicity = cfg.Toxicity
	next.Engine.Moderator = cfg.Engine.Moderator
	next.Engine.ActionTTL = cfg.Engine.ActionTTL
	next.Engine.QueueTTL = cfg.Engine.QueueTTL
	next.Engine.Raid.SlowModeDelay = cfg.Engine.Raid.SlowModeDelay
	next.Engine.Raid.LockdownDelay = cfg.Engine.Raid.LockdownDelay
	next.Engine.Raid.AlertsPerMinute = cfg.Engine.Raid.AlertsPerMinute
	next.Engine.Raid.ClearBelow = cfg.Engine.Raid.ClearBelow
	e.cfg = &next

	e.toxicity.UpdateConfig(next.Toxicity)
	e.raid.UpdateConfig(next.Engine.Raid)
	e.pipeline.SetFlagLevels(next.Log.FlagLevels)

	if cfg.Engine.SweepInterval != e.cfg.Engine.SweepInterval || cfg.Engine.HistorySize != e.cfg.Engine.HistorySize {
		slog.Warn("Some engine settings only take effect after a restart",
			"sweep_interval", cfg.Engine.SweepInterval, "history_size", cfg.Engine.HistorySize)
	}
	slog.Info("Engine tunables updated", "moderator", next.Engine.Moderator)
}
