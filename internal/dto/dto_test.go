package dto

import (
	"testing"
	"time"

	"github.com/quillhub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUserResponseOmitsPrivateFields(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &models.User{ID: 3, Email: "ada@example.com", Username: "ada", Name: "Ada", PasswordHash: "hash", Role: models.RoleUser, CreatedAt: created}

	resp := ToUserResponse(u)
	require.NotNil(t, resp)
	assert.Equal(t, UserResponse{ID: 3, Username: "ada", Name: "Ada", Role: "user", CreatedAt: created}, *resp)

	detail := ToUserDetailResponse(u)
	assert.Equal(t, "ada@example.com", detail.Email)
	assert.Nil(t, ToUserResponse(nil))
}

func TestToPostResponseCarriesAuthor(t *testing.T) {
	p := &models.Post{ID: 9, Title: "Hello", Content: "body", AuthorID: 3, Author: &models.User{ID: 3, Username: "ada", Name: "Ada", Email: "ada@example.com"}}

	resp := ToPostResponse(p)
	assert.Equal(t, uint(9), resp.ID)
	assert.Equal(t, "Hello", resp.Title)
	assert.Equal(t, &AuthorResponse{ID: 3, Name: "Ada", Username: "ada"}, resp.Author)
	assert.Nil(t, resp.Viewers)

	noAuthor := ToPostResponse(&models.Post{ID: 1})
	assert.Nil(t, noAuthor.Author)
}

func TestToCommentResponses(t *testing.T) {
	list := ToCommentResponses([]models.Comment{
		{ID: 1, Text: "first", PostID: 9, AuthorID: 3, Author: &models.User{ID: 3, Username: "ada"}},
		{ID: 2, Text: "second", PostID: 9, AuthorID: 4},
	})
	require.Len(t, list, 2)
	assert.Equal(t, "ada", list[0].Author.Username)
	assert.Equal(t, "second", list[1].Text)
	assert.Nil(t, list[1].Author)
}

func TestToReactorResponses(t *testing.T) {
	out := ToReactorResponses([]models.Reaction{
		{UserID: 3, Type: "like", User: &models.User{ID: 3, Username: "ada", Name: "Ada"}},
		{UserID: 4, Type: "love"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "ada", out[0].Username)
	assert.Equal(t, "love", out[1].Type)
	assert.Empty(t, out[1].Username)
}
