package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/config"
	"github.com/lessucettes/chatmod/internal/settings"
	"github.com/lessucettes/chatmod/internal/testutils"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *testutils.Clock) {
	t.Helper()
	clock := testutils.NewClock(testutils.Epoch)
	e, err := New(append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, clock
}

func TestEngine_AllFiltersDisabledNeverActs(t *testing.T) {
	e, clock := newTestEngine(t)
	_, err := e.UpdateSettings(settings.Patch{
		SpamFilter:     &settings.SpamFilterPatch{Enabled: settings.Ptr(false)},
		LinkPolicy:     &settings.LinkPolicyPatch{Enabled: settings.Ptr(false)},
		BannedWords:    &settings.BannedWordsPatch{Enabled: settings.Ptr(false)},
		ToxicityFilter: &settings.ToxicityFilterPatch{Enabled: settings.Ptr(false)},
	})
	require.NoError(t, err)

	for _, text := range []string{"YOU STUPID IDIOT!!!", "visit evil.com", ":a: :b: :c: :d: :e: :f:", "spam", "spam", "spam"} {
		require.Nil(t, e.SubmitMessage(context.Background(), testutils.MakeMessage("troll", text, clock.Now())))
	}
	require.Empty(t, e.Actions())
}

func TestEngine_RepeatedSpamEscalatesToTimeout(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()

	var last *chat.Action
	for range 3 {
		last = e.SubmitMessage(ctx, testutils.MakeMessage("spammer", "BUY NOW BUY NOW", clock.Now()))
		require.NotNil(t, last)
		clock.Advance(500 * time.Millisecond)
	}

	require.Equal(t, chat.ActionTimeout, last.Type)
	require.Equal(t, "spammer", last.User)
	require.Equal(t, "AutoMod", last.Moderator)
	require.Equal(t, "fast_messaging,repeated_message,excessive_caps", last.Reason)
	require.NotEmpty(t, last.ID)

	actions := e.Actions()
	require.Len(t, actions, 3)
	assert.Equal(t, chat.ActionWarn, actions[0].Type)
	assert.Equal(t, chat.ActionWarn, actions[1].Type)
	assert.Equal(t, *last, actions[2])
}

func TestEngine_CleanMessageLeavesNoTrace(t *testing.T) {
	e, clock := newTestEngine(t)
	require.Nil(t, e.SubmitMessage(context.Background(), testutils.MakeMessage(testutils.TestUser, "Hello world", clock.Now())))
	require.Empty(t, e.Actions())
	require.Zero(t, e.Stats().TotalActions)
}

func TestEngine_LinkPolicy(t *testing.T) {
	e, clock := newTestEngine(t)
	_, err := e.UpdateSettings(settings.Patch{LinkPolicy: &settings.LinkPolicyPatch{
		BlockAll:  settings.Ptr(true),
		Whitelist: []string{"youtube.com"},
	}})
	require.NoError(t, err)

	ctx := context.Background()
	require.Nil(t, e.SubmitMessage(ctx, testutils.MakeMessage("alice", "check youtube.com/xyz", clock.Now())))

	clock.Advance(5 * time.Second)
	a := e.SubmitMessage(ctx, testutils.MakeMessage("bob", "check evil.com", clock.Now()))
	require.NotNil(t, a)
	require.Equal(t, chat.ActionDelete, a.Type)
	require.Equal(t, "contains_link", a.Reason)
}

func TestEngine_RaidLifecycle(t *testing.T) {
	e, clock := newTestEngine(t)
	_, err := e.UpdateSettings(settings.Patch{RaidGuard: &settings.RaidGuardPatch{
		Action: settings.Ptr(settings.RaidLockdown),
	}})
	require.NoError(t, err)

	for i := range 50 {
		require.Nil(t, e.SubmitJoin(), "join %d should not trigger", i+1)
		clock.Advance(100 * time.Millisecond)
	}
	a := e.SubmitJoin()
	require.NotNil(t, a)
	require.Equal(t, chat.ActionWarn, a.Type)
	require.Equal(t, SystemUser, a.User)
	require.Equal(t, "Raid detected: 51 joins in the last 60s", a.Reason)

	st := e.Stats()
	require.True(t, st.IsRaidMode)
	require.Equal(t, 30, st.SlowModeDelay)

	clock.Advance(time.Minute)
	e.Sweep()
	require.True(t, e.RaidState().IsRaidMode, "joins are still inside the retention window")

	clock.Advance(2 * time.Minute)
	e.Sweep()
	st = e.Stats()
	require.False(t, st.IsRaidMode)
	require.Zero(t, st.SlowModeDelay)
}

func TestEngine_DrawAnnouncesWinners(t *testing.T) {
	e, _ := newTestEngine(t, WithRandom(func() float64 { return 0 }))

	_, err := e.QueueAdd("asker", "what game is next?", chat.ItemQuestion)
	require.NoError(t, err)
	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := e.QueueAdd(u, "!enter", chat.ItemGiveaway)
		require.NoError(t, err)
	}

	var winners []string
	for range 3 {
		w, ok := e.DrawWinner()
		require.True(t, ok)
		require.True(t, w.Approved)
		winners = append(winners, w.User)
	}
	require.Equal(t, []string{"alice", "bob", "carol"}, winners)

	_, ok := e.DrawWinner()
	require.False(t, ok)

	actions := e.Actions()
	require.Len(t, actions, 3)
	for i, a := range actions {
		assert.Equal(t, chat.ActionWarn, a.Type)
		assert.Equal(t, winners[i], a.User)
		assert.Contains(t, a.Reason, winners[i])
	}
}

func TestEngine_ConcurrentDrawsPickDistinctWinners(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := range 30 {
		_, err := e.QueueAdd(fmt.Sprintf("user%d", i), "!enter", chat.ItemGiveaway)
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for range 60 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, ok := e.DrawWinner()
			if !ok {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[w.ID], "duplicate winner %s", w.User)
			seen[w.ID] = true
		}()
	}
	wg.Wait()
	require.Len(t, seen, 30)
	require.Len(t, e.Actions(), 30)
}

func TestEngine_SweepExpiresActionsAndQueue(t *testing.T) {
	e, clock := newTestEngine(t)

	_, err := e.RecordManualAction(chat.ActionBan, "troll", "manual ban", "mod_jane")
	require.NoError(t, err)
	stale, _ := e.QueueAdd("alice", "old question", chat.ItemQuestion)
	kept, _ := e.QueueAdd("bob", "answered", chat.ItemQuestion)
	require.True(t, e.QueueApprove(kept.ID))

	clock.Advance(61 * time.Minute)
	fresh, _ := e.QueueAdd("carol", "new question", chat.ItemQuestion)
	_, err = e.RecordManualAction(chat.ActionWarn, "troll", "again", "mod_jane")
	require.NoError(t, err)

	e.Sweep()

	actions := e.Actions()
	require.Len(t, actions, 1)
	require.Equal(t, "again", actions[0].Reason)

	var ids []string
	for _, it := range e.Queue() {
		ids = append(ids, it.ID)
	}
	require.ElementsMatch(t, []string{kept.ID, fresh.ID}, ids)
	require.NotContains(t, ids, stale.ID)
}

func TestEngine_Stats(t *testing.T) {
	e, clock := newTestEngine(t)
	for _, typ := range []chat.ActionType{chat.ActionTimeout, chat.ActionTimeout, chat.ActionBan, chat.ActionWarn, chat.ActionDelete} {
		_, err := e.RecordManualAction(typ, "u", "r", "mod")
		require.NoError(t, err)
	}
	clock.Advance(time.Minute)
	_, _ = e.QueueAdd("a", "q", chat.ItemQuestion)
	_, _ = e.QueueAdd("b", "g", chat.ItemGiveaway)
	_, _ = e.QueueAdd("c", "g", chat.ItemGiveaway)

	require.Equal(t, Stats{
		TotalActions:     5,
		Last24hActions:   5,
		Timeouts:         2,
		Bans:             1,
		Warnings:         1,
		Deletions:        1,
		QueueSize:        3,
		QuestionsInQueue: 1,
		GiveawayEntries:  2,
	}, e.Stats())
}

func TestEngine_RecordManualActionValidates(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.RecordManualAction(chat.ActionType("mute"), "u", "r", "mod")
	require.True(t, errors.Is(err, ErrInvalidAction))

	_, err = e.RecordManualAction(chat.ActionBan, "", "r", "mod")
	require.True(t, errors.Is(err, ErrInvalidAction))

	require.Empty(t, e.Actions())
}

func TestEngine_ActionLogIsBounded(t *testing.T) {
	e, clock := newTestEngine(t)
	for i := range 150 {
		_, err := e.RecordManualAction(chat.ActionWarn, fmt.Sprintf("u%d", i), "r", "mod")
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	actions := e.Actions()
	require.Len(t, actions, 100)
	require.Equal(t, "u50", actions[0].User)
}

func TestEngine_SettingsOperations(t *testing.T) {
	e, _ := newTestEngine(t)
	require.Equal(t, settings.PresetBalanced, e.ActivePreset())

	_, err := e.ApplyPreset(settings.PresetLockdown)
	require.NoError(t, err)
	require.Equal(t, settings.PresetLockdown, e.ActivePreset())

	data, err := e.ExportSettings()
	require.NoError(t, err)

	e.ResetSettings()
	require.Equal(t, settings.Default(), e.Settings())

	var verr *settings.ValidationError
	require.True(t, errors.As(e.ImportSettings([]byte(`{"version":1}`)), &verr))
	require.Equal(t, settings.Default(), e.Settings(), "failed import keeps prior settings")

	require.NoError(t, e.ImportSettings(data))
	require.Equal(t, settings.PresetLockdown, e.ActivePreset())
	require.True(t, e.Settings().LinkPolicy.BlockAll)
}

func TestEngine_InitialPresetFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Moderation.Preset = settings.PresetChill
	e, _ := newTestEngine(t, WithConfig(cfg))
	require.Equal(t, settings.PresetChill, e.ActivePreset())
}

func TestEngine_SetTunables(t *testing.T) {
	e, clock := newTestEngine(t)

	cfg := config.Default()
	cfg.Engine.Moderator = "NightBot"
	cfg.Toxicity.Words = []string{"grief"}
	cfg.Toxicity.WordWeight = 0.9
	e.SetTunables(cfg)

	a := e.SubmitMessage(context.Background(), testutils.MakeMessage("griefer", "stop the grief", clock.Now()))
	require.NotNil(t, a)
	require.Equal(t, "NightBot", a.Moderator)
	require.Equal(t, chat.ActionTimeout, a.Type)
	require.Equal(t, "toxic_content", a.Reason)
}

func TestEngine_StartAndCloseSweeper(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.SweepInterval = 5 * time.Millisecond
	e, clock := newTestEngine(t, WithConfig(cfg))

	_, err := e.RecordManualAction(chat.ActionWarn, "u", "r", "mod")
	require.NoError(t, err)

	e.Start(context.Background())
	e.Start(context.Background())
	clock.Advance(2 * time.Hour)

	require.Eventually(t, func() bool { return len(e.Actions()) == 0 }, time.Second, 5*time.Millisecond)

	e.Close()
	e.Close()
}
