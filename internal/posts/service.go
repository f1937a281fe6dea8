// Package posts manages blog posts and keeps the search index in step.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/models"
	"go.uber.org/zap"
)

const maxTitleLength = 200

var (
	ErrNotFound       = errors.New("post not found")
	ErrForbidden      = errors.New("not allowed to modify this post")
	ErrContentMissing = errors.New("post content is required")
	ErrTitleTooLong   = fmt.Errorf("post title exceeds %d characters", maxTitleLength)
)

// Store persists posts
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	// GetPost loads the post with its author; ErrNotFound when absent
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	// DeletePost removes the post together with its comments and reactions
	DeletePost(ctx context.Context, id uint) error
}

// Indexer mirrors posts into the search backend
type Indexer interface {
	IndexPost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
}

// Update carries optional field changes
type Update struct {
	Title   *string
	Content *string
}

// Service implements post CRUD with ownership checks
type Service struct {
	store   Store
	indexer Indexer
}

// NewService creates a post service; indexer may be nil
func NewService(store Store, indexer Indexer) *Service {
	return &Service{store: store, indexer: indexer}
}

func validate(title, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentMissing
	}
	if len([]rune(title)) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// Create stores a post written by authorID
func (s *Service) Create(ctx context.Context, authorID uint, title, content string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if err := validate(title, content); err != nil {
		return nil, err
	}

	post := &models.Post{Title: title, Content: content, AuthorID: authorID}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.index(ctx, post)
	return post, nil
}

// Get returns one post
func (s *Service) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.store.GetPost(ctx, id)
}

// List returns posts newest first and the total count
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	return s.store.ListPosts(ctx, limit, offset)
}

// Update applies changes when requester owns the post or is an admin
func (s *Service) Update(ctx context.Context, id, requesterID uint, isAdmin bool, u Update) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != requesterID && !isAdmin {
		return nil, ErrForbidden
	}

	if u.Title != nil {
		post.Title = strings.TrimSpace(*u.Title)
	}
	if u.Content != nil {
		post.Content = *u.Content
	}
	if err := validate(post.Title, post.Content); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	s.index(ctx, post)
	return post, nil
}

// Delete removes a post when requester owns it or is an admin
func (s *Service) Delete(ctx context.Context, id, requesterID uint, isAdmin bool) error {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID && !isAdmin {
		return ErrForbidden
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if s.indexer != nil {
		if err := s.indexer.DeletePost(ctx, id); err != nil {
			logger.FromContext(ctx).Warn("Failed to remove post from search index",
				logger.WithPostID(id), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) index(ctx context.Context, post *models.Post) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexPost(ctx, post); err != nil {
		logger.FromContext(ctx).Warn("Failed to index post",
			logger.WithPostID(post.ID), zap.Error(err))
	}
}
