package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/cache"
	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/geo"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/push"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/pkg/database"
)

// recordingGateway 记录每次推送；fail=true 时模拟 provider 整体失败
type recordingGateway struct {
	mu     sync.Mutex
	pushes []push.Message
	tokens [][]string
	fail   bool
}

func (g *recordingGateway) Push(ctx context.Context, token string, msg push.Message) error {
	_, _, err := g.PushMulticast(ctx, []string{token}, msg)
	return err
}

func (g *recordingGateway) PushMulticast(_ context.Context, tokens []string, msg push.Message) (int, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return 0, len(tokens), context.DeadlineExceeded
	}
	g.pushes = append(g.pushes, msg)
	g.tokens = append(g.tokens, tokens)
	return len(tokens), 0, nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pushes)
}

type env struct {
	t   *testing.T
	db  *gorm.DB
	mr  *miniredis.Miniredis
	now time.Time

	users         repository.UserRepository
	posts         repository.PostRepository
	friendships   repository.FriendshipRepository
	notifications repository.NotificationRepository
	statRepo      repository.StatRepository
	badgeRepo     repository.BadgeRepository

	bus       *event.Bus
	publisher *event.Publisher
	relay     *event.Relay
	gateway   *recordingGateway

	graph     FriendGraph
	notifier  *Notifier
	intimacy  *IntimacyLedger
	evaluator *BadgeEvaluator
	stats     *StatsService
	postSvc   *PostService
	relations *RelationService
	orch      *Orchestrator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// :memory: 每个连接各自一份库，收敛到单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := &env{
		t:   t,
		db:  db,
		mr:  mr,
		now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	}
	e.users = repository.NewUserRepository(db)
	e.posts = repository.NewPostRepository(db)
	e.friendships = repository.NewFriendshipRepository(db)
	e.notifications = repository.NewNotificationRepository(db)
	e.statRepo = repository.NewStatRepository(db)
	e.badgeRepo = repository.NewBadgeRepository(db)
	dedup := repository.NewDedupLog(rdb)
	friendCache := cache.NewFriendCache(rdb, time.Minute)

	e.bus = event.NewBus(1, 256)
	e.publisher = event.NewPublisher(e.bus)
	e.relay = event.NewRelay(db, e.bus, 64, time.Hour)
	e.gateway = &recordingGateway{}

	e.graph = NewFriendGraph(e.friendships, e.posts, friendCache)
	e.notifier = NewNotifier(e.notifications, e.users, dedup, e.gateway)
	e.notifier.SetClock(func() time.Time { return e.now })
	e.intimacy = NewIntimacyLedger(repository.NewIntimacyRepository(db), e.publisher)
	e.evaluator = NewBadgeEvaluator(e.badgeRepo, e.posts, e.notifier)
	e.stats = NewStatsService(e.statRepo, e.posts)
	e.stats.SetClock(func() time.Time { return e.now })
	e.postSvc = NewPostService(db, e.posts, e.users, e.graph, e.publisher)
	e.relations = NewRelationService(e.friendships, e.users, e.graph)
	e.orch = NewOrchestrator(e.posts, e.users, e.graph, e.stats, e.intimacy, e.evaluator, e.notifier)
	require.NoError(t, e.badgeRepo.SeedCatalog(context.Background(), DefaultBadgeCatalog()))
	return e
}

func (e *env) addUser(id string, opts ...func(*model.User)) {
	e.t.Helper()
	u := &model.User{ID: id, Nickname: id, Status: model.UserStatusActive, Locale: "en", Timezone: "UTC", PushToken: "tok-" + id}
	for _, o := range opts {
		o(u)
	}
	require.NoError(e.t, e.db.Create(u).Error)
}

func withTimezone(tz string) func(*model.User) { return func(u *model.User) { u.Timezone = tz } }
func withLocale(l string) func(*model.User)   { return func(u *model.User) { u.Locale = l } }
func withStatus(s string) func(*model.User)   { return func(u *model.User) { u.Status = s } }
func withoutToken() func(*model.User)         { return func(u *model.User) { u.PushToken = "" } }

func (e *env) befriend(a, b string) {
	e.t.Helper()
	require.NoError(e.t, e.friendships.Upsert(context.Background(), a, b, model.FriendshipAccepted))
	e.graph.Invalidate(context.Background(), a, b)
}

// seedPost 直接落一条历史帖子，不触发任何扇出
func (e *env) seedPost(id, author, beaconID string, at time.Time) {
	e.t.Helper()
	require.NoError(e.t, e.db.Create(&model.Post{
		ID: id, AuthorID: author, BeaconID: beaconID, CreatedAt: at,
	}).Error)
}

// createPost 走正式发帖入口并同步执行扇出（模拟 outbox 提交后的投递）
func (e *env) createPost(in CreatePostInput) *model.Post {
	e.t.Helper()
	post, err := e.postSvc.Create(context.Background(), in)
	require.NoError(e.t, err)
	e.db.Model(&model.Post{}).Where("id = ?", post.ID).Update("created_at", e.now)
	post.CreatedAt = e.now
	e.orch.OnPostCreated(context.Background(), &event.PostCreated{PostID: post.ID})
	return post
}

func (e *env) createPostAt(author string, lat, lng float64, collabs []string) *model.Post {
	e.t.Helper()
	return e.createPost(CreatePostInput{AuthorID: author, Lat: lat, Lng: lng, Collaborators: collabs})
}

func mustCell(t *testing.T, lat, lng float64) string {
	t.Helper()
	id, err := geo.CellID(lat, lng)
	require.NoError(t, err)
	return id
}

func (e *env) notificationsFor(userID, category string) []*model.Notification {
	e.t.Helper()
	var out []*model.Notification
	require.NoError(e.t, e.db.
		Where("receiver_id = ? AND category = ?", userID, category).
		Find(&out).Error)
	return out
}

func (e *env) score(a, b string) int64 {
	e.t.Helper()
	s, err := e.intimacy.Score(context.Background(), a, b)
	require.NoError(e.t, err)
	return s
}

func (e *env) hasBadge(userID, badgeType string) bool {
	e.t.Helper()
	ok, err := e.badgeRepo.Has(context.Background(), userID, badgeType)
	require.NoError(e.t, err)
	return ok
}
