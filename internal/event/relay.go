package event

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

// Relay claims committed outbox rows and republishes them on the in-process
// bus. Because rows only become visible after the writer's transaction
// commits, every consumer downstream observes committed posts only.
type Relay struct {
	db           *gorm.DB
	bus          *Bus
	claimLimit   int
	pollInterval time.Duration
}

func NewRelay(db *gorm.DB, bus *Bus, claimLimit int, pollInterval time.Duration) *Relay {
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &Relay{db: db, bus: bus, claimLimit: claimLimit, pollInterval: pollInterval}
}

// Start 启动轮询；返回停止函数
func (r *Relay) Start() func(context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := r.ProcessOnce(context.Background()); err != nil {
					logger.Warn("outbox relay pass failed", zap.Error(err))
				}
			}
		}
	}()
	return func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ProcessOnce claims one batch of pending rows and publishes them. Claiming
// uses FOR UPDATE SKIP LOCKED so concurrent relays never double-deliver;
// sqlite (tests) has a single writer and skips the clause.
func (r *Relay) ProcessOnce(ctx context.Context) error {
	type row struct {
		ID      string
		Kind    string
		Payload string
	}
	var batch []row

	q := `
		SELECT id, kind, payload
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT ?`
	if r.db.Dialector.Name() == "postgres" {
		q += `
		FOR UPDATE SKIP LOCKED`
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(q, r.claimLimit).Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Update("status", "processing").Error
	})
	if err != nil || len(batch) == 0 {
		return err
	}

	now := time.Now()
	for _, b := range batch {
		if payload, ok := decode(b.Kind, b.Payload); ok {
			r.bus.Publish(b.Kind, payload)
		} else {
			logger.Error("outbox row undecodable, skipping",
				zap.String("id", b.ID), zap.String("kind", b.Kind))
		}
		_ = r.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{"status": "done", "processed_at": now}).Error
	}
	return nil
}

func decode(kind, payload string) (any, bool) {
	var e any
	switch kind {
	case KindPostCreated:
		e = &PostCreated{}
	case KindCommentCreated:
		e = &CommentCreated{}
	case KindNudge:
		e = &Nudge{}
	case KindLevelUp:
		e = &LevelUp{}
	case KindLogin:
		e = &Login{}
	default:
		return nil, false
	}
	if json.Unmarshal([]byte(payload), e) != nil {
		return nil, false
	}
	return e, true
}
