package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/dto"
	"github.com/quillhub/backend/internal/posts"
	"github.com/quillhub/backend/internal/util"
)

type createPostRequest struct {
	Title   string `json:"title" binding:"max=200"`
	Content string `json:"content" binding:"required"`
}

type updatePostRequest struct {
	Title   *string `json:"title" binding:"omitempty,max=200"`
	Content *string `json:"content" binding:"omitempty,min=1"`
}

// ListPosts returns posts newest first
// GET /api/v1/posts
func (h *Handlers) ListPosts(c *gin.Context) {
	limit, offset := util.Pagination(c, 20, 100)

	list, total, err := h.posts.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": dto.ToPostResponses(list),
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetPost returns one post with its live viewer count
// GET /api/v1/posts/:postId
func (h *Handlers) GetPost(c *gin.Context) {
	postID, ok := util.ParseIDParam(c, "postId")
	if !ok {
		return
	}

	post, err := h.posts.Get(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ToPostResponse(post)
	viewers := 0
	if h.viewers != nil {
		viewers = h.viewers.ViewerCount(postID)
	}
	resp.Viewers = &viewers
	c.JSON(http.StatusOK, gin.H{"post": resp})
}

// CreatePost publishes a post by the authenticated user
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": dto.ToPostResponse(post)})
}

// UpdatePost edits a post; only its author or an admin may
// PUT /api/v1/posts/:postId
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID, ok := util.ParseIDParam(c, "postId")
	if !ok {
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	post, err := h.posts.Update(c.Request.Context(), postID, userID, util.IsAdmin(c), posts.Update{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": dto.ToPostResponse(post)})
}

// DeletePost removes a post with its comments and reactions
// DELETE /api/v1/posts/:postId
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID, ok := util.ParseIDParam(c, "postId")
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), postID, userID, util.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}
