// fanoutbench 压测发帖扇出链路：落帖 → outbox → 事件总线 → 通知落库，
// 统计端到端延迟分位数。针对 config 指向的库实例运行。
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/beacon-feed/config"
	"github.com/d60-Lab/beacon-feed/internal/cache"
	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/push"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/internal/service"
	"github.com/d60-Lab/beacon-feed/pkg/database"
	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

type noopGateway struct{}

func (noopGateway) Push(context.Context, string, push.Message) error { return nil }
func (noopGateway) PushMulticast(_ context.Context, tokens []string, _ push.Message) (int, int, error) {
	return len(tokens), 0, nil
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	_ = logger.Init("warn", false)
	db, err := database.InitDB(cfg)
	if err != nil {
		panic(err)
	}

	// dedup/缓存走内嵌 redis，压的是数据库与编排路径
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	friends := envInt("FRIENDS", 200)
	posts := envInt("POSTS", 50)

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	friendships := repository.NewFriendshipRepository(db)
	intimacies := repository.NewIntimacyRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	notifications := repository.NewNotificationRepository(db)
	stats := repository.NewStatRepository(db)
	dedup := repository.NewDedupLog(rdb)
	friendCache := cache.NewFriendCache(rdb, 5*time.Minute)

	bus := event.NewBus(cfg.Fanout.Workers, cfg.Fanout.QueueSize)
	publisher := event.NewPublisher(bus)
	relay := event.NewRelay(db, bus, cfg.Fanout.ClaimLimit, 10*time.Millisecond)

	graph := service.NewFriendGraph(friendships, postRepo, friendCache)
	notifier := service.NewNotifier(notifications, users, dedup, noopGateway{})
	intimacy := service.NewIntimacyLedger(intimacies, publisher)
	evaluator := service.NewBadgeEvaluator(badgeRepo, postRepo, notifier)
	statsSvc := service.NewStatsService(stats, postRepo)
	postSvc := service.NewPostService(db, postRepo, users, graph, publisher)
	service.NewOrchestrator(postRepo, users, graph, statsSvc, intimacy, evaluator, notifier).Register(bus)
	stopBus := bus.Start()
	stopRelay := relay.Start()

	// seed: 作者 + FRIENDS 个好友，全部活跃
	author := model.User{ID: "bench-author", Nickname: "bench-author", Status: model.UserStatusActive}
	_ = db.Create(&author).Error
	for i := 0; i < friends; i++ {
		id := fmt.Sprintf("bench-f%05d", i)
		_ = db.Create(&model.User{ID: id, Nickname: id, Status: model.UserStatusActive}).Error
		_ = friendships.Upsert(ctx, author.ID, id, model.FriendshipAccepted)
	}

	var unread int64
	durations := make([]time.Duration, 0, posts)
	for i := 0; i < posts; i++ {
		st := time.Now()
		_, err := postSvc.Create(ctx, service.CreatePostInput{
			AuthorID: author.ID,
			Caption:  fmt.Sprintf("bench %d", i),
			Lat:      37.5 + float64(i)*0.01,
			Lng:      127.0,
		})
		if err != nil {
			panic(err)
		}
		// 等全量扇出完成：好友侧当天首帖各收到一条通知
		deadline := time.Now().Add(30 * time.Second)
		for time.Now().Before(deadline) {
			var cnt int64
			db.Model(&model.Notification{}).Count(&cnt)
			if cnt > unread {
				unread = cnt
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		durations = append(durations, time.Since(st))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = stopRelay(shutdownCtx)
	_ = stopBus(shutdownCtx)

	pct := func(vs []time.Duration, p float64) time.Duration {
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(float64(len(xs)) * p)
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	fmt.Printf("FRIENDS=%d POSTS=%d\n", friends, posts)
	fmt.Printf("post->first notification: avg=%v p95=%v p99=%v\n",
		sum/time.Duration(len(durations)), pct(durations, 0.95), pct(durations, 0.99))
}
