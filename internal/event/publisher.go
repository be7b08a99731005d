package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

// Publisher is the write side of the bus. PostCreated goes through the outbox
// inside the caller's transaction; the other triggers are fire-and-forget and
// must only be called after their own transaction committed.
type Publisher struct {
	bus *Bus
}

func NewPublisher(bus *Bus) *Publisher { return &Publisher{bus: bus} }

// PostCreatedTx 在发帖事务内落 outbox 行；提交后由 Relay 派发
func (p *Publisher) PostCreatedTx(tx *gorm.DB, postID string) error {
	payload, err := json.Marshal(PostCreated{PostID: postID})
	if err != nil {
		return err
	}
	out := &model.Outbox{
		ID:        uuid.New().String(),
		Kind:      KindPostCreated,
		Payload:   string(payload),
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	return tx.Create(out).Error
}

func (p *Publisher) CommentCreated(ctx context.Context, authorID, postID, ownerID string) {
	p.bus.Publish(KindCommentCreated, &CommentCreated{AuthorID: authorID, PostID: postID, OwnerID: ownerID})
}

func (p *Publisher) Nudge(ctx context.Context, actorID, targetID string) {
	p.bus.Publish(KindNudge, &Nudge{ActorID: actorID, TargetID: targetID})
}

func (p *Publisher) LevelUp(ctx context.Context, userA, userB string, level int) {
	p.bus.Publish(KindLevelUp, &LevelUp{UserA: userA, UserB: userB, Level: level})
}

func (p *Publisher) Login(ctx context.Context, userID string, first bool) {
	p.bus.Publish(KindLogin, &Login{UserID: userID, First: first})
}
