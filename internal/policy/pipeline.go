package policy

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/settings"
)

type PipelineStage struct {
	Filter Filter
}

// Decision is the outcome for a flagged message.
type Decision struct {
	Action        chat.ActionType
	Flags         []string
	Reason        string
	ToxicityScore float64
}

type Pipeline struct {
	stages []PipelineStage

	mu         sync.RWMutex
	flagLevels map[string]config.LogLevel
}

func NewPipeline(stages []PipelineStage, flagLevels map[string]config.LogLevel) *Pipeline {
	return &Pipeline{
		stages:     stages,
		flagLevels: flagLevels,
	}
}

// SetFlagLevels replaces the per-flag log levels.
func (p *Pipeline) SetFlagLevels(levels map[string]config.LogLevel) {
	p.mu.Lock()
	p.flagLevels = levels
	p.mu.Unlock()
}

// Evaluate runs every stage and returns nil when no flag was raised. A
// failing or panicking stage is logged and contributes no flags.
func (p *Pipeline) Evaluate(ctx context.Context, in *Input) *Decision {
	var flags []string
	seen := make(map[string]struct{})
	score := 0.0
	var elapsed time.Duration

	for _, stage := range p.stages {
		res, err := p.runStage(ctx, stage, in)
		if err != nil {
			slog.Error("Filter execution failed", "error", err, "filter_name", stage.Filter.Name(), "message_id", in.Message.ID)
			continue
		}
		elapsed += res.Duration
		if len(res.Flags) > 0 {
			slog.Debug("Filter raised flags", "filter_name", res.Filter, "flags", res.Flags, "duration", res.Duration, "message_id", in.Message.ID)
		}
		if res.Filter == toxicityFilterName {
			score = res.Score
		}
		for _, fl := range res.Flags {
			if _, dup := seen[fl]; !dup {
				seen[fl] = struct{}{}
				flags = append(flags, fl)
			}
		}
	}

	if len(flags) == 0 {
		slog.Debug("Message passed all filters", "message_id", in.Message.ID, "user", in.Message.User, "duration", elapsed)
		return nil
	}

	d := &Decision{
		Action:        Decide(flags, in.Settings.ToxicityFilter),
		Flags:         flags,
		Reason:        strings.Join(flags, ","),
		ToxicityScore: score,
	}

	slog.LogAttrs(ctx, p.levelFor(flags), "Message flagged",
		slog.String("message_id", in.Message.ID),
		slog.String("user", in.Message.User),
		slog.String("flags", d.Reason),
		slog.String("action", string(d.Action)),
		slog.Float64("toxicity_score", score),
		slog.Duration("duration", elapsed),
	)
	return d
}

func (p *Pipeline) runStage(ctx context.Context, stage PipelineStage, in *Input) (res FilterResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in filter pipeline",
				"panic", r, "filter_name", stage.Filter.Name(), "message_id", in.Message.ID, "stack", string(debug.Stack()),
			)
			res, err = FilterResult{Filter: stage.Filter.Name()}, fmt.Errorf("filter %s panicked: %v", stage.Filter.Name(), r)
		}
	}()
	return stage.Filter.Match(ctx, in)
}

// levelFor picks the most severe configured level among flags, warn by default.
func (p *Pipeline) levelFor(flags []string) slog.Level {
	p.mu.RLock()
	defer p.mu.RUnlock()

	level := slog.LevelWarn
	found := false
	for _, fl := range flags {
		if l, ok := p.flagLevels[fl]; ok {
			if sl := l.ToSlogLevel(); !found || sl > level {
				level = sl
				found = true
			}
		}
	}
	return level
}

// Decide maps a flag set to one action. Banned words and toxicity win over
// links, links over heavy spam, and anything else is a warning.
func Decide(flags []string, tox settings.ToxicityFilter) chat.ActionType {
	hasSevere, hasLink, spam := false, false, 0
	for _, fl := range flags {
		switch {
		case fl == FlagBannedWord || fl == FlagToxicContent:
			hasSevere = true
		case fl == FlagContainsLink:
			hasLink = true
		case IsSpamFlag(fl):
			spam++
		}
	}

	switch {
	case hasSevere:
		if tox.Action == settings.ToxicityBan {
			return chat.ActionBan
		}
		return chat.ActionTimeout
	case hasLink:
		return chat.ActionDelete
	case spam > 2:
		return chat.ActionTimeout
	default:
		return chat.ActionWarn
	}
}
