package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/beacon-feed/internal/metrics"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

// 徽章类型
const (
	BadgePerfectAttendance = "PERFECT_ATTENDANCE"
	BadgeEarlyBird         = "EARLY_BIRD"
	BadgeOwl               = "OWL"
	BadgeExplorer          = "EXPLORER"
	BadgeTheLandlord       = "THE_LANDLORD"
	BadgeFirstEncounter    = "FIRST_ENCOUNTER"
	BadgeHeavyTalker       = "HEAVY_TALKER"
	BadgeSoulmate          = "SOULMATE"
	BadgeBeloved           = "BELOVED"
	BadgeNewbie            = "NEWBIE"
)

// 判定阈值
const (
	streakForAttendance   = 30
	windowPostsForBadge   = 10
	placesForExplorer     = 20
	beaconPostsForLandlord = 30
	commentsForHeavyTalker = 100
	levelForSoulmate       = 7
	nudgesForBeloved       = 50
)

// DefaultBadgeCatalog is the immutable reference catalog seeded at startup.
func DefaultBadgeCatalog() []model.Badge {
	return []model.Badge{
		{Type: BadgePerfectAttendance, Name: "Perfect Attendance", Condition: "Post every day for 30 days in a row"},
		{Type: BadgeEarlyBird, Name: "Early Bird", Condition: "Post 10 times between 6 and 8 in the morning"},
		{Type: BadgeOwl, Name: "Owl", Condition: "Post 10 times between 22 and 24 at night"},
		{Type: BadgeExplorer, Name: "Explorer", Condition: "Leave posts in 20 different places"},
		{Type: BadgeTheLandlord, Name: "The Landlord", Condition: "Post 30 times in a single place"},
		{Type: BadgeFirstEncounter, Name: "First Encounter", Condition: "Post together with a friend"},
		{Type: BadgeHeavyTalker, Name: "Heavy Talker", Condition: "Write 100 comments"},
		{Type: BadgeSoulmate, Name: "Soulmate", Condition: "Reach intimacy level 7 with a friend"},
		{Type: BadgeBeloved, Name: "Beloved", Condition: "Get nudged 50 times"},
		{Type: BadgeNewbie, Name: "Newbie", Condition: "Sign in for the first time"},
	}
}

// BadgeEvaluator runs independent, idempotent rule checks. Every predicate is
// isolated: one failing check never blocks the others.
type BadgeEvaluator struct {
	badges   repository.BadgeRepository
	posts    repository.PostRepository
	notifier *Notifier
}

func NewBadgeEvaluator(badges repository.BadgeRepository, posts repository.PostRepository, notifier *Notifier) *BadgeEvaluator {
	return &BadgeEvaluator{badges: badges, posts: posts, notifier: notifier}
}

// Award grants a badge at most once per (user, badge). On the first grant it
// notifies the user and, if the user has no featured badge yet, features it.
func (e *BadgeEvaluator) Award(ctx context.Context, userID, badgeType string) error {
	first, err := e.badges.Award(ctx, userID, badgeType)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}
	metrics.BadgesAwarded.WithLabelValues(badgeType).Inc()
	if err := e.badges.SetFeaturedIfUnset(ctx, userID, badgeType); err != nil {
		logger.Warn("featured badge side effect failed",
			zap.String("user", userID), zap.String("badge", badgeType), zap.Error(err))
	}
	return e.notifier.Send(ctx, userID, CategoryBadgeAcquired, badgeType, "", badgeType)
}

// Catalog returns the immutable badge reference table.
func (e *BadgeEvaluator) Catalog(ctx context.Context) ([]*model.Badge, error) {
	return e.badges.Catalog(ctx)
}

// ListForUser returns the badges a user has earned, oldest first.
func (e *BadgeEvaluator) ListForUser(ctx context.Context, userID string) ([]*model.UserBadge, error) {
	return e.badges.ListForUser(ctx, userID)
}

// check 单条判定隔离执行：失败只记日志，不影响兄弟判定
func (e *BadgeEvaluator) check(ctx context.Context, userID, badgeType string, run func() (bool, error)) {
	met, err := run()
	if err != nil {
		logger.Warn("badge predicate failed",
			zap.String("user", userID), zap.String("badge", badgeType), zap.Error(err))
		metrics.HandlerFailures.WithLabelValues("badge:" + badgeType).Inc()
		return
	}
	if !met {
		return
	}
	if err := e.Award(ctx, userID, badgeType); err != nil {
		logger.Warn("badge award failed",
			zap.String("user", userID), zap.String("badge", badgeType), zap.Error(err))
		metrics.HandlerFailures.WithLabelValues("badge:" + badgeType).Inc()
	}
}

// SweepPost evaluates every post-triggered badge for the author using the
// already-updated rolling stats.
func (e *BadgeEvaluator) SweepPost(ctx context.Context, post *model.Post, stat *model.UserStat) {
	userID := post.AuthorID
	if stat == nil {
		stat = &model.UserStat{UserID: userID}
	}

	e.check(ctx, userID, BadgePerfectAttendance, func() (bool, error) {
		return stat.Streak >= streakForAttendance, nil
	})
	e.check(ctx, userID, BadgeEarlyBird, func() (bool, error) {
		return stat.MorningPosts >= windowPostsForBadge, nil
	})
	e.check(ctx, userID, BadgeOwl, func() (bool, error) {
		return stat.NightPosts >= windowPostsForBadge, nil
	})
	e.check(ctx, userID, BadgeExplorer, func() (bool, error) {
		return stat.VisitedPlaces >= placesForExplorer, nil
	})
	e.check(ctx, userID, BadgeTheLandlord, func() (bool, error) {
		cnt, err := e.posts.CountByUserInBeacon(ctx, userID, post.BeaconID)
		return cnt >= beaconPostsForLandlord, err
	})
	e.check(ctx, userID, BadgeFirstEncounter, func() (bool, error) {
		return len(post.Collaborators) > 0, nil
	})
}

// CheckHeavyTalker awards for total authored comments.
func (e *BadgeEvaluator) CheckHeavyTalker(ctx context.Context, userID string, commentCount int64) {
	e.check(ctx, userID, BadgeHeavyTalker, func() (bool, error) {
		return commentCount >= commentsForHeavyTalker, nil
	})
}

// CheckSoulmate awards both members of a pair that reached the level.
func (e *BadgeEvaluator) CheckSoulmate(ctx context.Context, userA, userB string, level int) {
	if level < levelForSoulmate {
		return
	}
	e.check(ctx, userA, BadgeSoulmate, func() (bool, error) { return true, nil })
	e.check(ctx, userB, BadgeSoulmate, func() (bool, error) { return true, nil })
}

// CheckBeloved awards for received nudges.
func (e *BadgeEvaluator) CheckBeloved(ctx context.Context, userID string, nudgesReceived int64) {
	e.check(ctx, userID, BadgeBeloved, func() (bool, error) {
		return nudgesReceived >= nudgesForBeloved, nil
	})
}

// CheckNewbie awards on the first login.
func (e *BadgeEvaluator) CheckNewbie(ctx context.Context, userID string, firstLogin bool) {
	e.check(ctx, userID, BadgeNewbie, func() (bool, error) { return firstLogin, nil })
}
