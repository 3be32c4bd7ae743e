package actionlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/testutils"
)

func action(i int, typ chat.ActionType, ts time.Time) chat.Action {
	return chat.Action{ID: fmt.Sprintf("a%d", i), Type: typ, User: "u", Reason: "r", Moderator: "AutoMod", Timestamp: ts}
}

func TestLog_CapacityDropsOldest(t *testing.T) {
	l := New(DefaultCapacity)
	for i := 0; i < 250; i++ {
		l.Append(action(i, chat.ActionWarn, testutils.Epoch.Add(time.Duration(i)*time.Second)))
		require.LessOrEqual(t, l.Len(), DefaultCapacity)
	}
	snap := l.Snapshot()
	require.Len(t, snap, DefaultCapacity)
	require.Equal(t, "a150", snap[0].ID)
	require.Equal(t, "a249", snap[len(snap)-1].ID)
}

func TestLog_PruneOlderThan(t *testing.T) {
	l := New(10)
	l.Append(action(1, chat.ActionWarn, testutils.Epoch))
	l.Append(action(2, chat.ActionBan, testutils.Epoch.Add(30*time.Minute)))
	l.Append(action(3, chat.ActionDelete, testutils.Epoch.Add(90*time.Minute)))

	dropped := l.PruneOlderThan(testutils.Epoch.Add(time.Hour))
	require.Equal(t, 2, dropped)
	require.Equal(t, "a3", l.Snapshot()[0].ID)
}

func TestLog_Counts(t *testing.T) {
	l := New(10)
	now := testutils.Epoch.Add(48 * time.Hour)
	l.Append(action(1, chat.ActionWarn, testutils.Epoch))
	l.Append(action(2, chat.ActionTimeout, now.Add(-time.Hour)))
	l.Append(action(3, chat.ActionTimeout, now.Add(-time.Minute)))
	l.Append(action(4, chat.ActionBan, now))
	l.Append(action(5, chat.ActionDelete, now))

	require.Equal(t, Counts{Total: 5, Last24h: 4, Timeouts: 2, Bans: 1, Warnings: 1, Deletions: 1}, l.Counts(now))
}

func TestLog_SnapshotIsCopy(t *testing.T) {
	l := New(2)
	l.Append(action(1, chat.ActionWarn, testutils.Epoch))
	snap := l.Snapshot()
	snap[0].Reason = "edited"
	require.Equal(t, "r", l.Snapshot()[0].Reason)
}
