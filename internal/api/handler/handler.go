package handler

import (
	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/repository"
	"github.com/d60-Lab/beacon-feed/internal/service"
)

// Handler 聚合各 HTTP 处理器的依赖
type Handler struct {
	posts     *service.PostService
	relations *service.RelationService
	graph     service.FriendGraph
	intimacy  *service.IntimacyLedger
	badges    *service.BadgeEvaluator
	notifier  *service.Notifier
	users     repository.UserRepository
	publisher *event.Publisher
}

func New(
	posts *service.PostService,
	relations *service.RelationService,
	graph service.FriendGraph,
	intimacy *service.IntimacyLedger,
	badges *service.BadgeEvaluator,
	notifier *service.Notifier,
	users repository.UserRepository,
	publisher *event.Publisher,
) *Handler {
	return &Handler{
		posts:     posts,
		relations: relations,
		graph:     graph,
		intimacy:  intimacy,
		badges:    badges,
		notifier:  notifier,
		users:     users,
		publisher: publisher,
	}
}
