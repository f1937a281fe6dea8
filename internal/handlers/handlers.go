package handlers

import (
	"github.com/quillhub/backend/internal/auth"
	"github.com/quillhub/backend/internal/comments"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/posts"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/quillhub/backend/internal/repository"
	"github.com/quillhub/backend/internal/search"
)

// ViewerCounter reports how many live connections are in a post's room
type ViewerCounter interface {
	ViewerCount(postID uint) int
}

// Services is everything the HTTP handlers call into
type Services struct {
	Auth          auth.Authenticator
	Users         repository.UserRepository
	Posts         *posts.Service
	Comments      *comments.Service
	Reactions     *reactions.Engine
	Notifications *notifications.Pipeline
	Search        *search.Service
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          auth.Authenticator
	users         repository.UserRepository
	posts         *posts.Service
	comments      *comments.Service
	reactions     *reactions.Engine
	notifications *notifications.Pipeline
	search        *search.Service
	viewers       ViewerCounter
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc Services) *Handlers {
	return &Handlers{
		auth:          svc.Auth,
		users:         svc.Users,
		posts:         svc.Posts,
		comments:      svc.Comments,
		reactions:     svc.Reactions,
		notifications: svc.Notifications,
		search:        svc.Search,
	}
}

// SetViewerCounter enables live viewer counts on single-post reads
func (h *Handlers) SetViewerCounter(v ViewerCounter) {
	h.viewers = v
}
