package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quillhub/backend/internal/config"
	"github.com/quillhub/backend/internal/container"
	"github.com/quillhub/backend/internal/database"
	"github.com/quillhub/backend/internal/middleware"
	"github.com/quillhub/backend/internal/reactions"
)

func newRouter(cfg *config.Config, app *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName))
	r.Use(middleware.SpanEnrichmentMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Impersonate-User"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		db := "ok"
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			db = err.Error()
		}
		c.JSON(status, gin.H{
			"status":    http.StatusText(status),
			"database":  db,
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAPIRoutes(r, cfg, app)
	return r
}

func rateLimit(app *container.Container, cfg middleware.RateLimitConfig) gin.HandlerFunc {
	if rc := app.Cache(); rc != nil {
		return middleware.RedisRateLimitMiddleware(rc, cfg)
	}
	return middleware.NewRateLimiter(cfg)
}

func registerAPIRoutes(r *gin.Engine, cfg *config.Config, app *container.Container) {
	h := app.Handlers()
	ws := app.WebSocketHandler()

	authRequired := middleware.AuthMiddleware(app.Auth())
	authOptional := middleware.OptionalAuthMiddleware(app.Auth())
	impersonate := middleware.AdminImpersonationMiddleware(app.Users())

	api := r.Group("/api/v1")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(rateLimit(app, middleware.RateLimitConfig{Limit: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}))

	authGroup := api.Group("/auth")
	{
		strict := rateLimit(app, middleware.AuthRateLimitConfig())
		authGroup.POST("/register", strict, h.Register)
		authGroup.POST("/login", strict, h.Login)
		authGroup.GET("/me", authRequired, h.Me)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", middleware.ResponseCacheMiddleware(app.Cache(), "posts", 5*time.Second), h.ListPosts)
		posts.GET("/:postId", h.GetPost)
		posts.GET("/:postId/comments", h.GetComments)
		posts.GET("/:postId/viewers", ws.HandleViewers)
		posts.POST("", authRequired, impersonate, h.CreatePost)
		posts.PUT("/:postId", authRequired, impersonate, h.UpdatePost)
		posts.DELETE("/:postId", authRequired, impersonate, h.DeletePost)
		posts.POST("/:postId/comments", authRequired, impersonate, h.CreateComment)
	}

	comments := api.Group("/comments")
	{
		comments.DELETE("/:commentId", authRequired, impersonate, h.DeleteComment)
	}

	for kind, group := range map[reactions.Kind]*gin.RouterGroup{
		reactions.KindPost:    posts,
		reactions.KindComment: comments,
	} {
		rg := group.Group("/reactions/:targetId")
		rg.GET("", authOptional, h.GetReactions(kind))
		rg.GET("/users", h.GetReactors(kind))
		rg.POST("", authRequired, impersonate, h.React(kind))
		rg.DELETE("", authRequired, impersonate, h.RemoveReaction(kind))
	}

	notifications := api.Group("/notifications")
	{
		notifications.Use(authRequired, impersonate)
		notifications.GET("", h.GetNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PATCH("/read-all", h.MarkAllNotificationsRead)
		notifications.PATCH("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/:id", h.DeleteNotification)
		notifications.DELETE("", h.DeleteAllNotifications)
	}

	search := api.Group("/search")
	{
		search.GET("/posts", h.SearchPosts)
	}

	admin := api.Group("/admin")
	{
		admin.Use(authRequired, middleware.RequireAdmin())
		admin.GET("/users", h.AdminListUsers)
		admin.GET("/users/:id", h.AdminGetUser)
	}

	// The socket upgrade authenticates itself (?token= or Authorization) and
	// must not pass through gzip.
	r.GET("/ws", ws.HandleWebSocket)
	wsGroup := api.Group("/ws")
	{
		wsGroup.GET("/metrics", authRequired, middleware.RequireAdmin(), ws.HandleMetrics)
		wsGroup.POST("/online", authRequired, ws.HandleOnlineStatus)
	}
}
