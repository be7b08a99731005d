package service

import (
	"context"
	"time"

	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
)

// StatsService 维护发帖滚动统计；日期一律用作者本地时区推进
type StatsService struct {
	stats repository.StatRepository
	posts repository.PostRepository

	now func() time.Time
}

func NewStatsService(stats repository.StatRepository, posts repository.PostRepository) *StatsService {
	return &StatsService{stats: stats, posts: posts, now: time.Now}
}

// ApplyPost folds one new post into the author's rolling stats and returns
// the updated row for the badge sweep.
func (s *StatsService) ApplyPost(ctx context.Context, author *model.User, post *model.Post) (*model.UserStat, error) {
	stat, err := s.stats.Get(ctx, author.ID)
	if err != nil {
		return nil, err
	}

	local := post.CreatedAt
	if local.IsZero() {
		local = s.now()
	}
	local = local.In(author.Location())
	today := local.Format("2006-01-02")
	yesterday := local.AddDate(0, 0, -1).Format("2006-01-02")

	switch stat.LastPostDate {
	case today:
		// 同日多帖不推进连续天数
	case yesterday:
		stat.Streak++
	default:
		stat.Streak = 1
	}
	stat.LastPostDate = today
	stat.PostCount++

	switch h := local.Hour(); {
	case h >= 6 && h < 8:
		stat.MorningPosts++
	case h >= 22:
		stat.NightPosts++
	}

	visited, err := s.posts.DistinctBeaconCount(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	stat.VisitedPlaces = visited

	if err := s.stats.Save(ctx, stat); err != nil {
		return nil, err
	}
	return stat, nil
}

// OnComment bumps the author's comment counter and returns the new total.
func (s *StatsService) OnComment(ctx context.Context, authorID string) (int64, error) {
	if err := s.stats.Incr(ctx, authorID, "comment_count", 1); err != nil {
		return 0, err
	}
	stat, err := s.stats.Get(ctx, authorID)
	if err != nil {
		return 0, err
	}
	return stat.CommentCount, nil
}

// OnNudge bumps the target's received-nudge counter and returns the new total.
func (s *StatsService) OnNudge(ctx context.Context, targetID string) (int64, error) {
	if err := s.stats.Incr(ctx, targetID, "nudges_received", 1); err != nil {
		return 0, err
	}
	stat, err := s.stats.Get(ctx, targetID)
	if err != nil {
		return 0, err
	}
	return stat.NudgesReceived, nil
}

// Get returns the user's current stats row (zero row if none yet).
func (s *StatsService) Get(ctx context.Context, userID string) (*model.UserStat, error) {
	return s.stats.Get(ctx, userID)
}

// SetClock 测试用
func (s *StatsService) SetClock(now func() time.Time) { s.now = now }
