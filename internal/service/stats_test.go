package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

func (e *env) applyPost(author string, at time.Time, beacon string) *model.UserStat {
	e.t.Helper()
	u, err := e.users.Get(context.Background(), author)
	require.NoError(e.t, err)
	require.NotNil(e.t, u)
	stat, err := e.stats.ApplyPost(context.Background(), u, &model.Post{
		ID: "tmp", AuthorID: author, BeaconID: beacon, CreatedAt: at,
	})
	require.NoError(e.t, err)
	return stat
}

func TestApplyPostStreak(t *testing.T) {
	e := newEnv(t)
	e.addUser("u1")
	day1 := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	stat := e.applyPost("u1", day1, "b9:0:0")
	assert.Equal(t, 1, stat.Streak)

	// 同日第二帖不推进
	stat = e.applyPost("u1", day1.Add(3*time.Hour), "b9:0:0")
	assert.Equal(t, 1, stat.Streak)

	// 翌日 +1
	stat = e.applyPost("u1", day1.AddDate(0, 0, 1), "b9:0:0")
	assert.Equal(t, 2, stat.Streak)

	// 断档重置为 1
	stat = e.applyPost("u1", day1.AddDate(0, 0, 4), "b9:0:0")
	assert.Equal(t, 1, stat.Streak)
}

// 日期按作者时区换算：首尔 00:30 与 UTC 前一日 15:30 是同一刻,
// 但对首尔作者来说已是新的一天
func TestApplyPostStreakAuthorLocalDate(t *testing.T) {
	e := newEnv(t)
	e.addUser("seoul", withTimezone("Asia/Seoul"))

	// 2026-08-28 23:00 KST
	first := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	stat := e.applyPost("seoul", first, "b9:0:0")
	assert.Equal(t, 1, stat.Streak)

	// 90 分钟后已是 KST 次日 00:30
	stat = e.applyPost("seoul", first.Add(90*time.Minute), "b9:0:0")
	assert.Equal(t, 2, stat.Streak)
}

func TestApplyPostTimeWindows(t *testing.T) {
	e := newEnv(t)
	e.addUser("u1")
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	e.applyPost("u1", day.Add(6*time.Hour), "b9:0:0")                // 06:00 morning
	e.applyPost("u1", day.Add(7*time.Hour+59*time.Minute), "b9:0:0") // 07:59 morning
	e.applyPost("u1", day.Add(8*time.Hour), "b9:0:0")                // 08:00 neither
	e.applyPost("u1", day.Add(22*time.Hour), "b9:0:0")               // 22:00 night
	stat := e.applyPost("u1", day.Add(23*time.Hour), "b9:0:0")       // 23:00 night

	assert.EqualValues(t, 2, stat.MorningPosts)
	assert.EqualValues(t, 2, stat.NightPosts)
	assert.EqualValues(t, 5, stat.PostCount)
}

func TestApplyPostVisitedPlaces(t *testing.T) {
	e := newEnv(t)
	e.addUser("u1")
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	e.seedPost("h1", "u1", "b9:0:0", at.Add(-time.Hour))
	e.seedPost("h2", "u1", "b9:1:0", at.Add(-time.Hour))
	e.seedPost("h3", "u1", "b9:1:0", at.Add(-time.Hour))

	stat := e.applyPost("u1", at, "b9:2:0")
	assert.EqualValues(t, 2, stat.VisitedPlaces, "counts distinct beacons of stored posts")
}

func TestOnCommentAndOnNudgeCounters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	n, err := e.stats.OnComment(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = e.stats.OnComment(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = e.stats.OnNudge(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
