package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/beacon-feed/config"
	"github.com/d60-Lab/beacon-feed/internal/api"
	"github.com/d60-Lab/beacon-feed/internal/api/handler"
	"github.com/d60-Lab/beacon-feed/internal/cache"
	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/push"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/internal/service"
	"github.com/d60-Lab/beacon-feed/internal/telemetry"
	"github.com/d60-Lab/beacon-feed/pkg/database"
	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Production); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTrace, err := telemetry.Init(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		logger.Error("telemetry init failed", zap.Error(err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", zap.Error(err))
		os.Exit(1)
	}

	// repositories
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	friendships := repository.NewFriendshipRepository(db)
	intimacies := repository.NewIntimacyRepository(db)
	badges := repository.NewBadgeRepository(db)
	notifications := repository.NewNotificationRepository(db)
	stats := repository.NewStatRepository(db)
	dedup := repository.NewDedupLog(rdb)
	friendCache := cache.NewFriendCache(rdb, time.Duration(cfg.Fanout.CacheTTLSecs)*time.Second)

	// event plumbing
	bus := event.NewBus(cfg.Fanout.Workers, cfg.Fanout.QueueSize)
	publisher := event.NewPublisher(bus)
	relay := event.NewRelay(db, bus, cfg.Fanout.ClaimLimit, time.Duration(cfg.Fanout.PollMillis)*time.Millisecond)

	// services
	gateway := push.NewHTTPGateway(cfg.Push.Endpoint, cfg.Push.APIKey, cfg.Push.RateRPS)
	graph := service.NewFriendGraph(friendships, posts, friendCache)
	notifier := service.NewNotifier(notifications, users, dedup, gateway)
	intimacy := service.NewIntimacyLedger(intimacies, publisher)
	evaluator := service.NewBadgeEvaluator(badges, posts, notifier)
	statsSvc := service.NewStatsService(stats, posts)
	postSvc := service.NewPostService(db, posts, users, graph, publisher)
	relations := service.NewRelationService(friendships, users, graph)

	if err := badges.SeedCatalog(ctx, service.DefaultBadgeCatalog()); err != nil {
		logger.Error("badge catalog seed failed", zap.Error(err))
		os.Exit(1)
	}

	orchestrator := service.NewOrchestrator(posts, users, graph, statsSvc, intimacy, evaluator, notifier)
	orchestrator.Register(bus)
	stopBus := bus.Start()
	stopRelay := relay.Start()

	gin.SetMode(cfg.Server.Mode)
	h := handler.New(postSvc, relations, graph, intimacy, evaluator, notifier, users, publisher)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.NewRouter(h, cfg.Otel.Service)}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// 先停入口，再停 relay，最后排空事件队列
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := stopRelay(shutdownCtx); err != nil {
		logger.Warn("relay shutdown", zap.Error(err))
	}
	if err := stopBus(shutdownCtx); err != nil {
		logger.Warn("bus shutdown", zap.Error(err))
	}
	if err := shutdownTrace(shutdownCtx); err != nil {
		logger.Warn("trace shutdown", zap.Error(err))
	}
	logger.Info("bye")
}
