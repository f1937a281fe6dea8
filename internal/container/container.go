// Package container builds the Quill object graph: repositories, domain
// services, the realtime layer and the HTTP handlers, wired together once
// per process.
package container

import (
	"context"
	"sync"
	"time"

	"github.com/quillhub/backend/internal/auth"
	"github.com/quillhub/backend/internal/cache"
	"github.com/quillhub/backend/internal/comments"
	"github.com/quillhub/backend/internal/handlers"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/posts"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/quillhub/backend/internal/repository"
	"github.com/quillhub/backend/internal/search"
	"github.com/quillhub/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options selects the optional infrastructure
type Options struct {
	JWTSecret []byte
	// Redis enables the reaction count and search result caches
	Redis *cache.RedisClient
	// SearchClient routes title search to Elasticsearch
	SearchClient *search.Client
	// WSRateLimit overrides the per-connection inbound limit
	WSRateLimit *websocket.RateLimitConfig
}

// Container holds all application dependencies and provides type-safe access
type Container struct {
	db    *gorm.DB
	redis *cache.RedisClient

	users             repository.UserRepository
	notificationStore *repository.NotificationRepository

	auth          *auth.Service
	posts         *posts.Service
	comments      *comments.Service
	reactions     *reactions.Engine
	notifications *notifications.Pipeline
	search        *search.Service

	hub       *websocket.Hub
	registry  *websocket.Registry
	rooms     *websocket.RoomTracker
	fanout    *websocket.Fanout
	wsHandler *websocket.Handler

	handlers *handlers.Handlers

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
}

// Build constructs every service on db. The realtime layer is created here
// too; the caller still has to start hub.Run.
func Build(db *gorm.DB, opts Options) (*Container, error) {
	if db == nil || len(opts.JWTSecret) == 0 {
		missing := []string{}
		if db == nil {
			missing = append(missing, "database")
		}
		if len(opts.JWTSecret) == 0 {
			missing = append(missing, "JWT secret")
		}
		return nil, NewInitializationError("Missing required dependencies", missing)
	}

	c := &Container{db: db, redis: opts.Redis}

	// Storage
	c.users = repository.NewUserRepository(db)
	postStore := repository.NewPostRepository(db)
	c.notificationStore = repository.NewNotificationRepository(db)

	// Domain services
	c.auth = auth.NewService(opts.JWTSecret, c.users)
	c.search = search.NewService(opts.SearchClient, postStore)
	c.posts = posts.NewService(postStore, c.search)
	c.notifications = notifications.NewPipeline(c.notificationStore)
	c.comments = comments.NewService(repository.NewCommentRepository(db), c.notifications)
	c.reactions = reactions.NewEngine(repository.NewReactionRepository(db), c.notifications)

	if opts.Redis != nil {
		c.reactions.SetCache(cache.NewReactionCountCache(opts.Redis, 5*time.Minute))
		c.search.SetCache(search.NewQueryCache(opts.Redis, time.Minute))
	}

	// Realtime layer
	c.hub = websocket.NewHub()
	if opts.WSRateLimit != nil {
		c.hub.SetRateLimitConfig(*opts.WSRateLimit)
	}
	c.registry = websocket.NewRegistry()
	c.rooms = websocket.NewRoomTracker(c.hub)
	c.fanout = websocket.NewFanout(c.hub, c.registry, c.rooms, c.reactions, c.comments)
	c.fanout.RegisterHandlers()
	c.wsHandler = websocket.NewHandler(c.hub, c.registry, c.rooms, c.auth)

	// Late wiring: the services publish through the fan-out layer
	c.reactions.SetObserver(c.fanout)
	c.comments.SetPublisher(c.fanout)
	c.notifications.SetDelivery(c.fanout, c.fanout)

	c.handlers = handlers.NewHandlers(handlers.Services{
		Auth:          c.auth,
		Users:         c.users,
		Posts:         c.posts,
		Comments:      c.comments,
		Reactions:     c.reactions,
		Notifications: c.notifications,
		Search:        c.search,
	})
	c.handlers.SetViewerCounter(c.wsHandler)

	logger.Log.Info("Services wired",
		zap.Bool("redis", opts.Redis != nil),
		zap.Bool("elasticsearch", c.search.Enabled()))
	return c, nil
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB { return c.db }

// Cache returns the Redis client, nil when Redis is not configured
func (c *Container) Cache() *cache.RedisClient { return c.redis }

func (c *Container) Users() repository.UserRepository { return c.users }

// NotificationStore is the store the retention job purges
func (c *Container) NotificationStore() *repository.NotificationRepository {
	return c.notificationStore
}

func (c *Container) Auth() *auth.Service                    { return c.auth }
func (c *Container) Posts() *posts.Service                  { return c.posts }
func (c *Container) Comments() *comments.Service            { return c.comments }
func (c *Container) Reactions() *reactions.Engine           { return c.reactions }
func (c *Container) Notifications() *notifications.Pipeline { return c.notifications }
func (c *Container) Search() *search.Service                { return c.search }

func (c *Container) Hub() *websocket.Hub                 { return c.hub }
func (c *Container) Registry() *websocket.Registry       { return c.registry }
func (c *Container) Rooms() *websocket.RoomTracker       { return c.rooms }
func (c *Container) WebSocketHandler() *websocket.Handler { return c.wsHandler }

func (c *Container) Handlers() *handlers.Handlers { return c.handlers }

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs the registered cleanup functions newest first. Failures are
// logged and do not stop the remaining functions; the first one is returned.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var first error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
