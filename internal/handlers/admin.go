package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/dto"
	"github.com/quillhub/backend/internal/util"
)

// AdminListUsers pages through all accounts
// GET /api/v1/admin/users
func (h *Handlers) AdminListUsers(c *gin.Context) {
	limit, offset := util.Pagination(c, 50, 200)
	ctx := c.Request.Context()

	users, err := h.users.ListUsers(ctx, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.users.GetTotalUserCount(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": dto.ToUserDetailResponses(users),
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// AdminGetUser returns one account with private fields
// GET /api/v1/admin/users/:id
func (h *Handlers) AdminGetUser(c *gin.Context) {
	id, ok := util.ParseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserDetailResponse(user)})
}
