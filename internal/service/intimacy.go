package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
)

// InteractionKind 亲密度互动类型，权重固定
type InteractionKind string

const (
	InteractionVisit         InteractionKind = "VISIT"
	InteractionCollaboration InteractionKind = "COLLABORATION"
	InteractionNudge         InteractionKind = "NUDGE"
	InteractionComment       InteractionKind = "COMMENT"
)

var interactionWeights = map[InteractionKind]int64{
	InteractionVisit:         1,
	InteractionCollaboration: 5,
	InteractionNudge:         2,
	InteractionComment:       1,
}

// levelThresholds 固定递增的升级表；score 达到第 i 项即为 level i+1
var levelThresholds = []int64{10, 30, 60, 100, 150, 210, 280}

func levelFor(score int64) int {
	level := 0
	for _, t := range levelThresholds {
		if score < t {
			break
		}
		level++
	}
	return level
}

// IntimacyLedger 亲密度账本：同一无序对的累加串行化（进程内按对互斥 +
// 数据库原子自增），分数与等级只增不减
type IntimacyLedger struct {
	repo      repository.IntimacyRepository
	publisher *event.Publisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewIntimacyLedger(repo repository.IntimacyRepository, publisher *event.Publisher) *IntimacyLedger {
	return &IntimacyLedger{repo: repo, publisher: publisher, locks: make(map[string]*sync.Mutex)}
}

func (s *IntimacyLedger) pairLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Accumulate adds the kind's weight to the unordered pair (actor,
// counterpart) and emits a LevelUp event when a threshold is crossed.
// Accumulating A→B and B→A target the same record.
func (s *IntimacyLedger) Accumulate(ctx context.Context, actorID, counterpartID string, kind InteractionKind) error {
	if actorID == counterpartID {
		return nil
	}
	delta, ok := interactionWeights[kind]
	if !ok {
		return fmt.Errorf("intimacy: unknown interaction kind %q", kind)
	}

	key := model.PairKeyOf(actorID, counterpartID)
	l := s.pairLock(key)
	l.Lock()
	defer l.Unlock()

	if err := s.repo.EnsureRow(ctx, actorID, counterpartID); err != nil {
		return err
	}
	if err := s.repo.AddScore(ctx, actorID, counterpartID, delta); err != nil {
		return err
	}
	row, err := s.repo.Get(ctx, actorID, counterpartID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("intimacy: row missing after accumulate for %s", key)
	}

	if newLevel := levelFor(row.Score); newLevel > row.Level {
		if err := s.repo.SetLevelIfHigher(ctx, actorID, counterpartID, newLevel); err != nil {
			return err
		}
		s.publisher.LevelUp(ctx, row.UserA, row.UserB, newLevel)
	}
	return nil
}

// Level returns the pair's current level (0 if no record).
func (s *IntimacyLedger) Level(ctx context.Context, a, b string) (int, error) {
	row, err := s.repo.Get(ctx, a, b)
	if err != nil || row == nil {
		return 0, err
	}
	return row.Level, nil
}

// Score returns the pair's cumulative score (0 if no record).
func (s *IntimacyLedger) Score(ctx context.Context, a, b string) (int64, error) {
	row, err := s.repo.Get(ctx, a, b)
	if err != nil || row == nil {
		return 0, err
	}
	return row.Score, nil
}
