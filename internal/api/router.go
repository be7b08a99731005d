package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/beacon-feed/internal/api/handler"
)

// NewRouter 组装 HTTP 路由
func NewRouter(h *handler.Handler, serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/posts", h.CreatePost)
		v1.GET("/posts/nearby", h.NearbyFriendPosts)
		v1.GET("/posts/:post_id", h.GetPost)
		v1.GET("/beacons/resolve", h.ResolveBeacon)

		v1.POST("/relations/request", h.RequestFriend)
		v1.POST("/relations/accept", h.AcceptFriend)
		v1.GET("/relations/status", h.RelationStatus)
		v1.GET("/relations/intimacy", h.Intimacy)
		v1.GET("/relations/:user_id/friends", h.ListFriends)

		v1.GET("/badges", h.BadgeCatalog)
		v1.GET("/users/:user_id/badges", h.ListUserBadges)

		v1.GET("/users/:user_id/notifications", h.ListNotifications)
		v1.GET("/users/:user_id/notifications/unread-count", h.UnreadCount)
		v1.POST("/users/:user_id/notifications/:notification_id/read", h.MarkNotificationRead)

		v1.POST("/nudges", h.Nudge)
		v1.POST("/comments", h.Comment)
		v1.POST("/logins", h.Login)
	}
	return r
}
