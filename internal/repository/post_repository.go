package repository

import (
	"context"
	"errors"

	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/posts"
	"gorm.io/gorm"
)

// PostRepository handles database operations for posts
type PostRepository interface {
	posts.Store

	SearchTitles(ctx context.Context, query string, limit int) ([]models.Post, error)
	EachPost(ctx context.Context, batchSize int, fn func([]models.Post) error) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost creates a post and loads its author
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	db := r.db.WithContext(ctx)
	if err := db.Create(post).Error; err != nil {
		return err
	}
	return db.Preload("Author").First(post, post.ID).Error
}

// GetPost gets a post by ID with its author
func (r *postRepository) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts lists posts newest first
func (r *postRepository) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	var (
		list  []models.Post
		total int64
	)
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Author").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error

	return list, total, err
}

// UpdatePost saves title and content
func (r *postRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.ID == 0 {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).
		Model(post).
		Select("title", "content", "updated_at").
		Updates(post).Error
}

// DeletePost removes a post, its comments and every reaction on either
func (r *postRepository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}

		if len(commentIDs) > 0 {
			if err := tx.Where("target_kind = ? AND target_id IN ?", models.TargetComment, commentIDs).
				Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("target_kind = ? AND target_id = ?", models.TargetPost, id).
			Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return posts.ErrNotFound
		}
		return nil
	})
}

// SearchTitles does a case-insensitive substring match on titles
func (r *postRepository) SearchTitles(ctx context.Context, query string, limit int) ([]models.Post, error) {
	var list []models.Post
	pattern := "%" + escapeLike(query) + "%"

	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("LOWER(title) LIKE LOWER(?) ESCAPE '\\'", pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error

	return list, err
}

// EachPost walks every post in batches
func (r *postRepository) EachPost(ctx context.Context, batchSize int, fn func([]models.Post) error) error {
	var batch []models.Post
	return r.db.WithContext(ctx).
		Preload("Author").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
