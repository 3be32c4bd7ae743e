package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/engine"
	"github.com/lessucettes/chatmod/internal/raid"
	"github.com/lessucettes/chatmod/internal/settings"
	"github.com/lessucettes/chatmod/internal/store"
)

// Request is one line of host input. Which fields are read depends on Type.
type Request struct {
	Type string `json:"type"`

	// Message is a chat message object for "message" and plain text for "queue.add".
	Message   json.RawMessage `json:"message,omitempty"`
	User      string          `json:"user,omitempty"`
	ItemType  chat.ItemType   `json:"itemType,omitempty"`
	ID        string          `json:"id,omitempty"`
	Patch     *settings.Patch `json:"patch,omitempty"`
	Preset    string          `json:"preset,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Action    string          `json:"action,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Moderator string          `json:"moderator,omitempty"`
}

type Response struct {
	Type   string `json:"type"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

type settingsResult struct {
	Settings     settings.ModSettings `json:"settings"`
	ActivePreset string               `json:"activePreset"`
}

type joinResult struct {
	Action *chat.Action `json:"action"`
	Raid   raid.State   `json:"raid"`
}

// Host adapts the line protocol to the engine and persists what the engine
// exports. db may be nil when persistence is disabled.
type Host struct {
	engine     *engine.Engine
	db         store.Store
	dryRun     bool
	archiveTTL time.Duration
}

func NewHost(e *engine.Engine, db store.Store, dryRun bool, archiveTTL time.Duration) *Host {
	return &Host{engine: e, db: db, dryRun: dryRun, archiveTTL: archiveTTL}
}

// Restore imports the last saved settings snapshot, if any.
func (h *Host) Restore(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	data, err := h.db.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		slog.Info("No saved moderation settings, starting from defaults")
		return nil
	}
	if err := h.engine.ImportSettings(data); err != nil {
		return fmt.Errorf("saved settings rejected: %w", err)
	}
	slog.Info("Moderation settings restored", "active_preset", h.engine.ActivePreset())
	return nil
}

func (h *Host) persistSettings(ctx context.Context) {
	if h.db == nil {
		return
	}
	data, err := h.engine.ExportSettings()
	if err != nil {
		slog.Error("Failed to export settings for persistence", "error", err)
		return
	}
	if err := h.db.SaveSettings(ctx, data); err != nil {
		slog.Error("Failed to persist settings", "error", err)
	}
}

func (h *Host) archive(ctx context.Context, a *chat.Action) {
	if h.db == nil || a == nil || h.dryRun {
		return
	}
	if err := h.db.ArchiveAction(ctx, *a, h.archiveTTL); err != nil {
		slog.Error("Failed to archive action", "action_id", a.ID, "error", err)
	}
}

func (h *Host) settingsResult() settingsResult {
	return settingsResult{Settings: h.engine.Settings(), ActivePreset: h.engine.ActivePreset()}
}

// Handle executes one request. It never panics on bad input; problems are
// reported in the response.
func (h *Host) Handle(ctx context.Context, req *Request) Response {
	result, err := h.dispatch(ctx, req)
	if err != nil {
		return Response{Type: req.Type, OK: false, Error: err.Error()}
	}
	return Response{Type: req.Type, OK: true, Result: result}
}

func (h *Host) dispatch(ctx context.Context, req *Request) (any, error) {
	e := h.engine
	switch req.Type {
	case "message":
		var msg chat.Message
		if err := sonic.Unmarshal(req.Message, &msg); err != nil {
			return nil, fmt.Errorf("invalid message payload: %w", err)
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		a := e.SubmitMessage(ctx, msg)
		if a != nil && h.dryRun {
			slog.Warn("Dry run: action not reported", "action", a.Type, "user", a.User, "reason", a.Reason)
			return nil, nil
		}
		h.archive(ctx, a)
		return a, nil

	case "join":
		a := e.SubmitJoin()
		if a != nil && h.dryRun {
			slog.Warn("Dry run: action not reported", "action", a.Type, "user", a.User, "reason", a.Reason)
			return joinResult{Raid: e.RaidState()}, nil
		}
		h.archive(ctx, a)
		return joinResult{Action: a, Raid: e.RaidState()}, nil

	case "queue.add":
		var text string
		if err := sonic.Unmarshal(req.Message, &text); err != nil {
			return nil, fmt.Errorf("queue.add needs a text message: %w", err)
		}
		return e.QueueAdd(req.User, text, req.ItemType)
	case "queue.approve":
		return e.QueueApprove(req.ID), nil
	case "queue.remove":
		return e.QueueRemove(req.ID), nil
	case "queue.clear":
		return e.QueueClear(req.ItemType), nil
	case "queue.draw":
		w, ok := e.DrawWinner()
		if !ok {
			return nil, nil
		}
		return w, nil
	case "queue":
		return e.Queue(), nil

	case "settings.get":
		return h.settingsResult(), nil
	case "settings.update":
		if req.Patch == nil {
			return nil, errors.New("settings.update needs a patch")
		}
		if _, err := e.UpdateSettings(*req.Patch); err != nil {
			return nil, err
		}
		h.persistSettings(ctx)
		return h.settingsResult(), nil
	case "settings.preset":
		if _, err := e.ApplyPreset(req.Preset); err != nil {
			return nil, err
		}
		h.persistSettings(ctx)
		return h.settingsResult(), nil
	case "settings.reset":
		e.ResetSettings()
		h.persistSettings(ctx)
		return h.settingsResult(), nil
	case "settings.export":
		data, err := e.ExportSettings()
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	case "settings.import":
		if err := e.ImportSettings(req.Data); err != nil {
			return nil, err
		}
		h.persistSettings(ctx)
		return h.settingsResult(), nil

	case "actions":
		return e.Actions(), nil
	case "actions.archive":
		if h.db == nil {
			return nil, errors.New("persistence is disabled")
		}
		return h.db.ArchivedActions(ctx)
	case "action.manual":
		a, err := e.RecordManualAction(chat.ActionType(req.Action), req.User, req.Reason, req.Moderator)
		if err != nil {
			return nil, err
		}
		h.archive(ctx, &a)
		return a, nil
	case "stats":
		return e.Stats(), nil

	default:
		return nil, fmt.Errorf("unknown request type %q", req.Type)
	}
}
