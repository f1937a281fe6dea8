package repository

import (
	"context"
	"errors"

	"github.com/quillhub/backend/internal/comments"
	"github.com/quillhub/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository is the gorm-backed comments.Store
type CommentRepository struct {
	db    *gorm.DB
	posts PostRepository
	users UserRepository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{
		db:    db,
		posts: NewPostRepository(db),
		users: NewUserRepository(db),
	}
}

// FindPost loads the post a comment is written on
func (r *CommentRepository) FindPost(ctx context.Context, postID uint) (*models.Post, error) {
	return r.posts.GetPost(ctx, postID)
}

// CreateComment inserts a comment and loads its author
func (r *CommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil {
		return ErrInvalidInput
	}
	db := r.db.WithContext(ctx)
	if err := db.Create(comment).Error; err != nil {
		return err
	}
	return db.Preload("Author").First(comment, comment.ID).Error
}

// ListComments lists a post's comments oldest first
func (r *CommentRepository) ListComments(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, error) {
	var list []models.Comment
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// GetComment gets a comment by ID
func (r *CommentRepository) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, comments.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment and its reactions
func (r *CommentRepository) DeleteComment(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("target_kind = ? AND target_id = ?", models.TargetComment, id).
			Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return comments.ErrCommentNotFound
		}
		return nil
	})
}

// UsersByUsernames resolves mention handles
func (r *CommentRepository) UsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	return r.users.UsersByUsernames(ctx, usernames)
}

// CountByPost returns the number of comments on a post
func (r *CommentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}
