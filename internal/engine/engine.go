// Package engine ties the policy store, the decision pipeline, the raid
// guard, the action log and the queues together behind one mutation gate.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lessucettes/chatmod/internal/actionlog"
	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/history"
	"github.com/lessucettes/chatmod/internal/policy"
	"github.com/lessucettes/chatmod/internal/queue"
	"github.com/lessucettes/chatmod/internal/raid"
	"github.com/lessucettes/chatmod/internal/settings"
)

// SystemUser is the subject of actions that concern the channel as a whole.
const SystemUser = "system"

var ErrInvalidAction = errors.New("invalid manual action")

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandom sets the [0,1) source used for giveaway draws.
func WithRandom(r func() float64) Option {
	return func(e *Engine) { e.random = r }
}

func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// Stats is the dashboard summary.
type Stats struct {
	TotalActions     int  `json:"totalActions"`
	Last24hActions   int  `json:"last24hActions"`
	Timeouts         int  `json:"timeouts"`
	Bans             int  `json:"bans"`
	Warnings         int  `json:"warnings"`
	Deletions        int  `json:"deletions"`
	QueueSize        int  `json:"queueSize"`
	QuestionsInQueue int  `json:"questionsInQueue"`
	GiveawayEntries  int  `json:"giveawayEntries"`
	IsRaidMode       bool `json:"isRaidMode"`
	SlowModeDelay    int  `json:"slowModeDelay"`
}

type Engine struct {
	// mu serializes every mutation. Readers of snapshots take it shared.
	mu sync.RWMutex

	cfg    *config.Config
	now    func() time.Time
	random func() float64

	settings *settings.Store
	users    *history.Users
	toxicity *policy.ToxicityFilter
	pipeline *policy.Pipeline
	raid     *raid.Guard
	actions  *actionlog.Log
	queue    *queue.Manager

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    config.Default(),
		now:    time.Now,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}

	ecfg := e.cfg.Engine
	e.settings = settings.NewStore()
	e.users = history.NewUsers(ecfg.HistorySize, ecfg.HistoryUsers, ecfg.HistoryTTL)
	e.raid = raid.NewGuard(ecfg.Raid)
	e.actions = actionlog.New(ecfg.ActionLogSize)
	e.queue = queue.NewManager(queue.WithClock(e.now), queue.WithRandom(e.random))

	pipeline, err := e.buildPipeline()
	if err != nil {
		return nil, err
	}
	e.pipeline = pipeline

	if name := e.cfg.Moderation.Preset; name != "" {
		if _, err := e.settings.ApplyPreset(name); err != nil {
			return nil, fmt.Errorf("failed to apply initial preset: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) buildPipeline() (*policy.Pipeline, error) {
	e.toxicity = policy.NewToxicityFilter(e.cfg.Toxicity)

	type filterFactory struct {
		name        string
		constructor func() (policy.Filter, error)
	}
	factories := []filterFactory{
		{"SpamFilter", func() (policy.Filter, error) { return policy.NewSpamFilter(e.users), nil }},
		{"LinkFilter", func() (policy.Filter, error) { return policy.NewLinkFilter(), nil }},
		{"BannedWordFilter", func() (policy.Filter, error) { return policy.NewBannedWordFilter(e.cfg.Engine.RegexCacheSize) }},
		{"ToxicityFilter", func() (policy.Filter, error) { return e.toxicity, nil }},
	}

	stages := make([]policy.PipelineStage, 0, len(factories))
	for _, factory := range factories {
		filter, err := factory.constructor()
		if err != nil {
			return nil, fmt.Errorf("failed to create filter '%s': %w", factory.name, err)
		}
		stages = append(stages, policy.PipelineStage{Filter: filter})
	}
	return policy.NewPipeline(stages, e.cfg.Log.FlagLevels), nil
}

func (e *Engine) newAction(typ chat.ActionType, user, reason, moderator string) chat.Action {
	return chat.Action{
		ID:        uuid.NewString(),
		Type:      typ,
		User:      user,
		Reason:    reason,
		Moderator: moderator,
		Timestamp: e.now(),
	}
}

// SubmitMessage evaluates msg and returns the resulting action, or nil when
// the message raised no flags. Emitted actions are appended to the log.
func (e *Engine) SubmitMessage(ctx context.Context, msg chat.Message) *chat.Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	in := &policy.Input{Message: msg, Settings: e.settings.Get()}
	d := e.pipeline.Evaluate(ctx, in)
	if d == nil {
		return nil
	}
	a := e.newAction(d.Action, msg.User, d.Reason, e.cfg.Engine.Moderator)
	e.actions.Append(a)
	return &a
}

// SubmitJoin records a viewer join. When the join pushes the channel over
// the raid threshold a system warning is logged and returned.
func (e *Engine) SubmitJoin() *chat.Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	recent, triggered := e.raid.RecordJoin(e.now(), e.settings.Get().RaidGuard)
	if !triggered {
		return nil
	}
	window := int(e.cfg.Engine.Raid.DetectWindow.Seconds())
	a := e.newAction(chat.ActionWarn, SystemUser,
		fmt.Sprintf("Raid detected: %d joins in the last %ds", recent, window), e.cfg.Engine.Moderator)
	e.actions.Append(a)
	return &a
}

// RecordManualAction appends an action taken by a human moderator.
func (e *Engine) RecordManualAction(typ chat.ActionType, user, reason, moderator string) (chat.Action, error) {
	if !typ.Valid() {
		return chat.Action{}, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, typ)
	}
	if user == "" || moderator == "" {
		return chat.Action{}, fmt.Errorf("%w: user and moderator are required", ErrInvalidAction)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.newAction(typ, user, reason, moderator)
	e.actions.Append(a)
	slog.Info("Manual action recorded", "action", a.Type, "user", user, "moderator", moderator)
	return a, nil
}

func (e *Engine) Actions() []chat.Action {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.actions.Snapshot()
}

func (e *Engine) RaidState() raid.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.raid.State()
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ac := e.actions.Counts(e.now())
	qc := e.queue.Counts()
	rs := e.raid.State()
	return Stats{
		TotalActions:     ac.Total,
		Last24hActions:   ac.Last24h,
		Timeouts:         ac.Timeouts,
		Bans:             ac.Bans,
		Warnings:         ac.Warnings,
		Deletions:        ac.Deletions,
		QueueSize:        qc.Size,
		QuestionsInQueue: qc.Questions,
		GiveawayEntries:  qc.GiveawayEntries,
		IsRaidMode:       rs.IsRaidMode,
		SlowModeDelay:    rs.SlowModeDelaySeconds,
	}
}
