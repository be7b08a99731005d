package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/beacon-feed/internal/event"
)

func TestAccumulateWeights(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.intimacy.Accumulate(ctx, "a", "b", InteractionVisit))
	require.NoError(t, e.intimacy.Accumulate(ctx, "a", "b", InteractionComment))
	require.NoError(t, e.intimacy.Accumulate(ctx, "a", "b", InteractionNudge))
	require.NoError(t, e.intimacy.Accumulate(ctx, "a", "b", InteractionCollaboration))

	assert.EqualValues(t, 1+1+2+5, e.score("a", "b"))
}

func TestAccumulateCommutative(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.intimacy.Accumulate(ctx, "a", "b", InteractionNudge))
	require.NoError(t, e.intimacy.Accumulate(ctx, "b", "a", InteractionNudge))

	assert.EqualValues(t, 4, e.score("a", "b"))
	assert.EqualValues(t, 4, e.score("b", "a"))
}

func TestAccumulateSelfNoOp(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.intimacy.Accumulate(context.Background(), "a", "a", InteractionNudge))
	assert.Zero(t, e.score("a", "a"))
}

func TestAccumulateUnknownKind(t *testing.T) {
	e := newEnv(t)
	assert.Error(t, e.intimacy.Accumulate(context.Background(), "a", "b", InteractionKind("BOGUS")))
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score int64
		level int
	}{
		{0, 0}, {9, 0}, {10, 1}, {29, 1}, {30, 2}, {100, 4}, {279, 6}, {280, 7}, {1000, 7},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, levelFor(c.score), "score %d", c.score)
	}
}

func TestAccumulateEmitsLevelUpOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []*event.LevelUp
	e.bus.Subscribe(event.KindLevelUp, func(_ context.Context, payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload.(*event.LevelUp))
	})
	stop := e.bus.Start()

	// 9 分不升级，第 10 分跨过阈值
	for i := 0; i < 4; i++ {
		require.NoError(t, e.intimacy.Accumulate(ctx, "a", "b", InteractionNudge))
	}
	require.NoError(t, e.intimacy.Accumulate(ctx, "b", "a", InteractionNudge))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))

	assert.Equal(t, "a", got[0].UserA)
	assert.Equal(t, "b", got[0].UserB)
	assert.Equal(t, 1, got[0].Level)

	level, err := e.intimacy.Level(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, level)
}

func TestAccumulateConcurrentNoLostUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			actor, other := "a", "b"
			if i%2 == 0 {
				actor, other = "b", "a"
			}
			_ = e.intimacy.Accumulate(ctx, actor, other, InteractionVisit)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, n, e.score("a", "b"))
}
