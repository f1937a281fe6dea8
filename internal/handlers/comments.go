package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/comments"
	"github.com/quillhub/backend/internal/dto"
	"github.com/quillhub/backend/internal/util"
)

type createCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// GetComments lists a post's comments, oldest first
// GET /api/v1/posts/:postId/comments
func (h *Handlers) GetComments(c *gin.Context) {
	postID, ok := util.ParseIDParam(c, "postId")
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, 50, 200)

	list, err := h.comments.List(c.Request.Context(), postID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentResponses(list),
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(list),
		},
	})
}

// CreateComment comments on a post. The owner notification, mention
// notifications and the room broadcast happen inside the comment service.
// POST /api/v1/posts/:postId/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID, ok := util.ParseIDParam(c, "postId")
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), userID, postID, req.Text, comments.SourceHTTP)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": dto.ToCommentResponse(comment)})
}

// DeleteComment removes a comment; only its author or an admin may
// DELETE /api/v1/comments/:commentId
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	commentID, ok := util.ParseIDParam(c, "commentId")
	if !ok {
		return
	}

	if err := h.comments.Delete(c.Request.Context(), commentID, userID, util.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
