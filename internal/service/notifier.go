package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/beacon-feed/internal/metrics"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/push"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

// dedupPrefixes 按类别集中定义幂等键前缀，避免类别间冲突。
// 键形如 "POST_2025-11-03_<userID>"。
var dedupPrefixes = map[string]string{
	CategoryNewPost:       "POST_",
	CategoryFriendVisited: "VISIT_",
}

// DailyDedupKey builds the idempotency key for one (category, local date,
// user). All dedup key construction goes through here.
func DailyDedupKey(category, date, userID string) string {
	return dedupPrefixes[category] + date + "_" + userID
}

// Notifier persists notification rows and pushes best-effort. Push failures
// are logged and counted, never surfaced: the row is already durable.
type Notifier struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	dedup         repository.DedupLog
	gateway       push.Gateway

	now func() time.Time
}

func NewNotifier(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	dedup repository.DedupLog,
	gateway push.Gateway,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		dedup:         dedup,
		gateway:       gateway,
		now:           time.Now,
	}
}

// Send delivers one ungated notification to a single receiver.
func (n *Notifier) Send(ctx context.Context, receiverID, category, relatedID, thumbnail string, args ...string) error {
	u, err := n.users.Get(ctx, receiverID)
	if err != nil {
		return err
	}
	if u == nil || u.Status != model.UserStatusActive {
		return nil
	}
	return n.sendToUsers(ctx, []*model.User{u}, category, relatedID, thumbnail, args...)
}

// SendMulticast delivers one ungated notification to many receivers.
func (n *Notifier) SendMulticast(ctx context.Context, receiverIDs []string, category, relatedID, thumbnail string, args ...string) error {
	users, err := n.activeUsers(ctx, receiverIDs)
	if err != nil {
		return err
	}
	return n.sendToUsers(ctx, users, category, relatedID, thumbnail, args...)
}

// SendDailyDeduped delivers at most one notification of the category per
// receiver per receiver-local day. The check-then-act sequence sends before
// recording: a concurrent trigger can cost one duplicate, never a lost send.
func (n *Notifier) SendDailyDeduped(ctx context.Context, receiverIDs []string, category, relatedID, thumbnail string, args ...string) error {
	users, err := n.activeUsers(ctx, receiverIDs)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	now := n.now()
	keyByUser := make(map[string]string, len(users))
	keys := make([]string, 0, len(users))
	for _, u := range users {
		k := DailyDedupKey(category, now.In(u.Location()).Format("2006-01-02"), u.ID)
		keyByUser[u.ID] = k
		keys = append(keys, k)
	}

	unsent, err := n.dedup.Unsent(ctx, keys)
	if err != nil {
		return err
	}
	eligible := make([]*model.User, 0, len(users))
	eligibleKeys := make([]string, 0, len(users))
	for _, u := range users {
		k := keyByUser[u.ID]
		if unsent[k] {
			eligible = append(eligible, u)
			eligibleKeys = append(eligibleKeys, k)
		} else {
			metrics.DedupSuppressed.WithLabelValues(category).Inc()
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	if err := n.sendToUsers(ctx, eligible, category, relatedID, thumbnail, args...); err != nil {
		return err
	}
	// 先发后记：竞态最多多发一条，绝不漏发
	if err := n.dedup.MarkSent(ctx, eligibleKeys); err != nil {
		logger.Warn("dedup mark failed, duplicate possible",
			zap.String("category", category), zap.Error(err))
	}
	return nil
}

func (n *Notifier) activeUsers(ctx context.Context, ids []string) ([]*model.User, error) {
	users, err := n.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if u.Status == model.UserStatusActive {
			out = append(out, u)
		}
	}
	return out, nil
}

// sendToUsers persists one row per receiver, then pushes grouped by locale.
// Gateway partial failure never touches the persisted rows.
func (n *Notifier) sendToUsers(ctx context.Context, users []*model.User, category, relatedID, thumbnail string, args ...string) error {
	if len(users) == 0 {
		return nil
	}

	rows := make([]*model.Notification, 0, len(users))
	tokensByLocale := make(map[string][]string)
	for _, u := range users {
		title, body := RenderMessage(category, u.Locale, args...)
		rows = append(rows, &model.Notification{
			ID:         uuid.New().String(),
			ReceiverID: u.ID,
			Category:   category,
			Title:      title,
			Body:       body,
			RelatedID:  relatedID,
			Thumbnail:  thumbnail,
		})
		if u.PushToken != "" {
			tokensByLocale[u.Locale] = append(tokensByLocale[u.Locale], u.PushToken)
		}
	}
	if err := n.notifications.CreateBatch(ctx, rows); err != nil {
		return err
	}

	for locale, tokens := range tokensByLocale {
		title, body := RenderMessage(category, locale, args...)
		msg := push.Message{Title: title, Body: body, Category: category, RelatedID: relatedID, Thumbnail: thumbnail}
		sent, failed, err := n.gateway.PushMulticast(ctx, tokens, msg)
		metrics.PushSent.Add(float64(sent))
		metrics.PushFailed.Add(float64(failed))
		if err != nil {
			logger.Warn("push delivery failed",
				zap.String("category", category),
				zap.Int("tokens", len(tokens)),
				zap.Error(err))
		}
	}
	return nil
}

// List 查询某接收者的通知
func (n *Notifier) List(ctx context.Context, receiverID string, offset, limit int) ([]*model.Notification, error) {
	return n.notifications.ListByReceiver(ctx, receiverID, offset, limit)
}

// MarkRead flips one notification's read flag.
func (n *Notifier) MarkRead(ctx context.Context, receiverID, notificationID string) error {
	return n.notifications.MarkRead(ctx, receiverID, notificationID)
}

// CountUnread returns the receiver's unread count.
func (n *Notifier) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	return n.notifications.CountUnread(ctx, receiverID)
}

// SetClock 测试用
func (n *Notifier) SetClock(now func() time.Time) { n.now = now }
