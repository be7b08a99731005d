package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

func TestDailyDedupKey(t *testing.T) {
	assert.Equal(t, "POST_2026-08-28_u1", DailyDedupKey(CategoryNewPost, "2026-08-28", "u1"))
	assert.Equal(t, "VISIT_2026-08-28_u1", DailyDedupKey(CategoryFriendVisited, "2026-08-28", "u1"))
}

func TestSendDailyDedupedSameDaySuppressed(t *testing.T) {
	e := newEnv(t)
	e.addUser("r1")
	ctx := context.Background()

	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryNewPost, "p1", "", "alice"))
	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryNewPost, "p2", "", "bob"))

	assert.Len(t, e.notificationsFor("r1", CategoryNewPost), 1)
	assert.Equal(t, 1, e.gateway.count())

	// 类别之间互不占位
	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryFriendVisited, "p2", "", "bob"))
	assert.Len(t, e.notificationsFor("r1", CategoryFriendVisited), 1)
}

func TestSendDailyDedupedNextDayAllowed(t *testing.T) {
	e := newEnv(t)
	e.addUser("r1")
	ctx := context.Background()

	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryNewPost, "p1", "", "alice"))
	e.now = e.now.Add(24 * time.Hour)
	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryNewPost, "p2", "", "alice"))

	assert.Len(t, e.notificationsFor("r1", CategoryNewPost), 2)
}

// 日期按接收者时区推进：UTC 已过午夜而首尔未过时,首尔侧仍被抑制
func TestSendDailyDedupedUsesReceiverLocalDate(t *testing.T) {
	e := newEnv(t)
	e.addUser("utc")
	e.addUser("seoul", withTimezone("Asia/Seoul"))
	ctx := context.Background()

	// 2026-08-28 20:00 UTC = 2026-08-29 05:00 KST
	e.now = time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)
	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"utc", "seoul"}, CategoryNewPost, "p1", "", "alice"))

	// 2026-08-29 01:00 UTC = 2026-08-29 10:00 KST:UTC 侧换日,首尔侧同日
	e.now = time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC)
	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"utc", "seoul"}, CategoryNewPost, "p2", "", "alice"))

	assert.Len(t, e.notificationsFor("utc", CategoryNewPost), 2)
	assert.Len(t, e.notificationsFor("seoul", CategoryNewPost), 1)
}

func TestSendSkipsInactiveReceivers(t *testing.T) {
	e := newEnv(t)
	e.addUser("gone", withStatus(model.UserStatusWithdrawn))
	ctx := context.Background()

	require.NoError(t, e.notifier.Send(ctx, "gone", CategoryNudge, "x", "", "alice"))
	require.NoError(t, e.notifier.Send(ctx, "missing", CategoryNudge, "x", "", "alice"))

	assert.Empty(t, e.notificationsFor("gone", CategoryNudge))
	assert.Zero(t, e.gateway.count())
}

// 推送失败不回滚已落库的通知行,且去重键照记(先发后记只保证不漏)
func TestPushFailureKeepsRowsAndDedup(t *testing.T) {
	e := newEnv(t)
	e.addUser("r1")
	e.gateway.fail = true
	ctx := context.Background()

	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryNewPost, "p1", "", "alice"))
	assert.Len(t, e.notificationsFor("r1", CategoryNewPost), 1)

	e.gateway.fail = false
	require.NoError(t, e.notifier.SendDailyDeduped(ctx, []string{"r1"}, CategoryNewPost, "p2", "", "alice"))
	assert.Len(t, e.notificationsFor("r1", CategoryNewPost), 1, "day already consumed")
}

func TestSendRendersReceiverLocale(t *testing.T) {
	e := newEnv(t)
	e.addUser("ko", withLocale("ko"))
	ctx := context.Background()

	require.NoError(t, e.notifier.Send(ctx, "ko", CategoryNudge, "x", "", "alice"))
	rows := e.notificationsFor("ko", CategoryNudge)
	require.Len(t, rows, 1)
	assert.Equal(t, "콕 찌르기", rows[0].Title)
	assert.Contains(t, rows[0].Body, "alice")
}

func TestSendWithoutTokenPersistsRowOnly(t *testing.T) {
	e := newEnv(t)
	e.addUser("quiet", withoutToken())
	ctx := context.Background()

	require.NoError(t, e.notifier.Send(ctx, "quiet", CategoryNudge, "x", "", "alice"))
	assert.Len(t, e.notificationsFor("quiet", CategoryNudge), 1)
	assert.Zero(t, e.gateway.count())
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	e := newEnv(t)
	e.addUser("r1")
	ctx := context.Background()

	require.NoError(t, e.notifier.Send(ctx, "r1", CategoryNudge, "x", "", "a"))
	require.NoError(t, e.notifier.Send(ctx, "r1", CategoryComment, "y", "", "b"))

	cnt, err := e.notifier.CountUnread(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cnt)

	list, err := e.notifier.List(ctx, "r1", 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, e.notifier.MarkRead(ctx, "r1", list[0].ID))
	cnt, _ = e.notifier.CountUnread(ctx, "r1")
	assert.EqualValues(t, 1, cnt)
}
