package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/metrics"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

// Orchestrator 发帖后扇出编排：每一步独立事务、独立失败域，
// 步骤间只有"后面读前面产物"的顺序依赖
type Orchestrator struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	graph    FriendGraph
	stats    *StatsService
	intimacy *IntimacyLedger
	badges   *BadgeEvaluator
	notifier *Notifier
}

func NewOrchestrator(
	posts repository.PostRepository,
	users repository.UserRepository,
	graph FriendGraph,
	stats *StatsService,
	intimacy *IntimacyLedger,
	badges *BadgeEvaluator,
	notifier *Notifier,
) *Orchestrator {
	return &Orchestrator{
		posts:    posts,
		users:    users,
		graph:    graph,
		stats:    stats,
		intimacy: intimacy,
		badges:   badges,
		notifier: notifier,
	}
}

// Register subscribes every fan-out handler on the bus.
func (o *Orchestrator) Register(bus *event.Bus) {
	bus.Subscribe(event.KindPostCreated, o.OnPostCreated)
	bus.Subscribe(event.KindCommentCreated, o.OnCommentCreated)
	bus.Subscribe(event.KindNudge, o.OnNudge)
	bus.Subscribe(event.KindLevelUp, o.OnLevelUp)
	bus.Subscribe(event.KindLogin, o.OnLogin)
}

// step 单步隔离：异常只记录（日志 + sentry + 指标），不传播给兄弟步骤
func (o *Orchestrator) step(ctx context.Context, eventID, name string, fn func(context.Context) error) {
	tracer := otel.Tracer("fanout")
	ctx, span := tracer.Start(ctx, "fanout."+name)
	span.SetAttributes(attribute.String("event.id", eventID))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerFailures.WithLabelValues(name).Inc()
			logger.Error("fanout step panic",
				zap.String("event", eventID), zap.String("step", name), zap.Any("panic", r))
			sentry.CurrentHub().Recover(r)
		}
	}()
	if err := fn(ctx); err != nil {
		metrics.HandlerFailures.WithLabelValues(name).Inc()
		logger.Error("fanout step failed",
			zap.String("event", eventID), zap.String("step", name), zap.Error(err))
		sentry.CaptureException(fmt.Errorf("fanout %s (event %s): %w", name, eventID, err))
	}
}

// OnPostCreated runs the full post-creation cascade. Steps execute in order
// because later ones consume facts produced by earlier ones, but each failure
// stays inside its step.
func (o *Orchestrator) OnPostCreated(ctx context.Context, payload any) {
	e, ok := payload.(*event.PostCreated)
	if !ok {
		return
	}
	metrics.EventsConsumed.WithLabelValues(event.KindPostCreated).Inc()

	post, err := o.posts.Get(ctx, e.PostID)
	if err != nil {
		logger.Error("fanout: post lookup failed", zap.String("post", e.PostID), zap.Error(err))
		return
	}
	author, err := o.users.Get(ctx, post.AuthorID)
	if err != nil || author == nil {
		logger.Error("fanout: author lookup failed", zap.String("post", e.PostID), zap.Error(err))
		return
	}

	// 1. beacon 在发帖时已定，不重算
	beaconID := post.BeaconID

	// 2. 滚动统计（徽章判定的输入）
	var stat *model.UserStat
	o.step(ctx, e.PostID, "stats", func(ctx context.Context) error {
		var err error
		stat, err = o.stats.ApplyPost(ctx, author, post)
		return err
	})

	// 3. 同行人：亲密度 + POST_TAGGED 通知
	o.step(ctx, e.PostID, "collaborators", func(ctx context.Context) error {
		for _, collab := range post.Collaborators {
			if collab == author.ID {
				continue
			}
			if err := o.intimacy.Accumulate(ctx, author.ID, collab, InteractionCollaboration); err != nil {
				return err
			}
			if err := o.notifier.Send(ctx, collab, CategoryPostTagged, post.ID, post.Thumbnail, author.Nickname); err != nil {
				return err
			}
		}
		return nil
	})

	// 4. 好友图遍历：曾到访该 beacon 的好友累计 VISIT
	var friends, visited []string
	o.step(ctx, e.PostID, "friends", func(ctx context.Context) error {
		var err error
		friends, err = o.graph.ActiveFriends(ctx, author.ID)
		if err != nil {
			return err
		}
		visited, err = o.graph.UsersWhoPostedInBeacon(ctx, beaconID, friends)
		if err != nil {
			return err
		}
		for _, friendID := range visited {
			if err := o.intimacy.Accumulate(ctx, author.ID, friendID, InteractionVisit); err != nil {
				return err
			}
		}
		return nil
	})

	// 5. 徽章扫描（消费步骤 2-4 的事实）
	o.step(ctx, e.PostID, "badges", func(ctx context.Context) error {
		o.badges.SweepPost(ctx, post, stat)
		return nil
	})

	// 6. 去重通知：好友新帖 / 好友到访过的地方
	o.step(ctx, e.PostID, "notify", func(ctx context.Context) error {
		if err := o.notifier.SendDailyDeduped(ctx, friends, CategoryNewPost, post.ID, post.Thumbnail, author.Nickname); err != nil {
			return err
		}
		return o.notifier.SendDailyDeduped(ctx, visited, CategoryFriendVisited, post.ID, post.Thumbnail, author.Nickname)
	})

	// 7. 作者聚合缓存失效
	o.step(ctx, e.PostID, "invalidate", func(ctx context.Context) error {
		o.graph.Invalidate(ctx, author.ID)
		return nil
	})
}

// OnCommentCreated feeds the heavy-talker fact, comment intimacy, and the
// comment notification.
func (o *Orchestrator) OnCommentCreated(ctx context.Context, payload any) {
	e, ok := payload.(*event.CommentCreated)
	if !ok {
		return
	}
	metrics.EventsConsumed.WithLabelValues(event.KindCommentCreated).Inc()

	var count int64
	o.step(ctx, e.PostID, "comment_stats", func(ctx context.Context) error {
		var err error
		count, err = o.stats.OnComment(ctx, e.AuthorID)
		return err
	})
	o.step(ctx, e.PostID, "comment_badges", func(ctx context.Context) error {
		o.badges.CheckHeavyTalker(ctx, e.AuthorID, count)
		return nil
	})
	if e.AuthorID == e.OwnerID {
		return
	}
	o.step(ctx, e.PostID, "comment_intimacy", func(ctx context.Context) error {
		return o.intimacy.Accumulate(ctx, e.AuthorID, e.OwnerID, InteractionComment)
	})
	o.step(ctx, e.PostID, "comment_notify", func(ctx context.Context) error {
		author, err := o.users.Get(ctx, e.AuthorID)
		if err != nil || author == nil {
			return err
		}
		return o.notifier.Send(ctx, e.OwnerID, CategoryComment, e.PostID, "", author.Nickname)
	})
}

// OnNudge feeds the beloved fact, nudge intimacy, and the nudge notification.
func (o *Orchestrator) OnNudge(ctx context.Context, payload any) {
	e, ok := payload.(*event.Nudge)
	if !ok {
		return
	}
	metrics.EventsConsumed.WithLabelValues(event.KindNudge).Inc()

	eventID := e.ActorID + ">" + e.TargetID
	var received int64
	o.step(ctx, eventID, "nudge_stats", func(ctx context.Context) error {
		var err error
		received, err = o.stats.OnNudge(ctx, e.TargetID)
		return err
	})
	o.step(ctx, eventID, "nudge_badges", func(ctx context.Context) error {
		o.badges.CheckBeloved(ctx, e.TargetID, received)
		return nil
	})
	o.step(ctx, eventID, "nudge_intimacy", func(ctx context.Context) error {
		return o.intimacy.Accumulate(ctx, e.ActorID, e.TargetID, InteractionNudge)
	})
	o.step(ctx, eventID, "nudge_notify", func(ctx context.Context) error {
		actor, err := o.users.Get(ctx, e.ActorID)
		if err != nil || actor == nil {
			return err
		}
		return o.notifier.Send(ctx, e.TargetID, CategoryNudge, e.ActorID, "", actor.Nickname)
	})
}

// OnLevelUp awards soulmates and tells both members.
func (o *Orchestrator) OnLevelUp(ctx context.Context, payload any) {
	e, ok := payload.(*event.LevelUp)
	if !ok {
		return
	}
	metrics.EventsConsumed.WithLabelValues(event.KindLevelUp).Inc()

	eventID := e.UserA + "|" + e.UserB
	o.step(ctx, eventID, "levelup_badges", func(ctx context.Context) error {
		o.badges.CheckSoulmate(ctx, e.UserA, e.UserB, e.Level)
		return nil
	})
	o.step(ctx, eventID, "levelup_notify", func(ctx context.Context) error {
		a, err := o.users.Get(ctx, e.UserA)
		if err != nil || a == nil {
			return err
		}
		b, err := o.users.Get(ctx, e.UserB)
		if err != nil || b == nil {
			return err
		}
		level := strconv.Itoa(e.Level)
		if err := o.notifier.Send(ctx, a.ID, CategoryLevelUp, b.ID, "", b.Nickname, level); err != nil {
			return err
		}
		return o.notifier.Send(ctx, b.ID, CategoryLevelUp, a.ID, "", a.Nickname, level)
	})
}

// OnLogin awards the newbie badge on a first login.
func (o *Orchestrator) OnLogin(ctx context.Context, payload any) {
	e, ok := payload.(*event.Login)
	if !ok {
		return
	}
	metrics.EventsConsumed.WithLabelValues(event.KindLogin).Inc()

	o.step(ctx, e.UserID, "login_badges", func(ctx context.Context) error {
		o.badges.CheckNewbie(ctx, e.UserID, e.First)
		return nil
	})
}
