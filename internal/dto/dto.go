// Package dto holds the response shapes of the HTTP API and their
// conversions from the storage models.
package dto

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/reactions"
)

// UserResponse is the public user representation (safe for API responses)
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserDetailResponse adds private fields for the user themselves and admins
type UserDetailResponse struct {
	UserResponse
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorResponse is the author block embedded in posts and comments
type AuthorResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// PostResponse is a post with its author
type PostResponse struct {
	ID        uint            `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	AuthorID  uint            `json:"author_id"`
	Author    *AuthorResponse `json:"author,omitempty" copier:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Viewers is only set on single-post reads
	Viewers *int `json:"viewers,omitempty" copier:"-"`
}

// CommentResponse is a comment with its author
type CommentResponse struct {
	ID        uint            `json:"id"`
	Text      string          `json:"text"`
	PostID    uint            `json:"post_id"`
	AuthorID  uint            `json:"author_id"`
	Author    *AuthorResponse `json:"author,omitempty" copier:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReactorResponse is one entry of a reaction users list
type ReactorResponse struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserResponse converts models.User to UserResponse (excludes sensitive fields)
func ToUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}
	var resp UserResponse
	_ = copier.Copy(&resp, user)
	return &resp
}

// ToUserDetailResponse includes the email
func ToUserDetailResponse(user *models.User) *UserDetailResponse {
	if user == nil {
		return nil
	}
	return &UserDetailResponse{
		UserResponse: *ToUserResponse(user),
		Email:        user.Email,
		UpdatedAt:    user.UpdatedAt,
	}
}

// ToUserDetailResponses converts a page of users for the admin listing
func ToUserDetailResponses(users []models.User) []*UserDetailResponse {
	out := make([]*UserDetailResponse, len(users))
	for i := range users {
		out[i] = ToUserDetailResponse(&users[i])
	}
	return out
}

// ToAuthorResponse projects a user to its author block
func ToAuthorResponse(user *models.User) *AuthorResponse {
	if user == nil {
		return nil
	}
	var resp AuthorResponse
	_ = copier.Copy(&resp, user)
	return &resp
}

func ToPostResponse(post *models.Post) *PostResponse {
	if post == nil {
		return nil
	}
	var resp PostResponse
	_ = copier.Copy(&resp, post)
	resp.Author = ToAuthorResponse(post.Author)
	return &resp
}

func ToPostResponses(posts []models.Post) []*PostResponse {
	out := make([]*PostResponse, len(posts))
	for i := range posts {
		out[i] = ToPostResponse(&posts[i])
	}
	return out
}

func ToCommentResponse(comment *models.Comment) *CommentResponse {
	if comment == nil {
		return nil
	}
	var resp CommentResponse
	_ = copier.Copy(&resp, comment)
	resp.Author = ToAuthorResponse(comment.Author)
	return &resp
}

func ToCommentResponses(comments []models.Comment) []*CommentResponse {
	out := make([]*CommentResponse, len(comments))
	for i := range comments {
		out[i] = ToCommentResponse(&comments[i])
	}
	return out
}

// ToReactorResponses flattens reaction rows with their users
func ToReactorResponses(rows []models.Reaction) []ReactorResponse {
	out := make([]ReactorResponse, 0, len(rows))
	for _, r := range rows {
		item := ReactorResponse{UserID: r.UserID, Type: r.Type, CreatedAt: r.CreatedAt}
		if r.User != nil {
			item.Username = r.User.Username
			item.Name = r.User.Name
		}
		out = append(out, item)
	}
	return out
}

// ReactionToggleResponse is the body of a reaction toggle or removal
type ReactionToggleResponse struct {
	Outcome   reactions.Outcome     `json:"outcome"`
	State     reactions.State       `json:"state"`
	Reactions []reactions.TypeCount `json:"reactions,omitempty"`
}
