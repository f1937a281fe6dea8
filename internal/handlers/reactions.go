package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/dto"
	apierrors "github.com/quillhub/backend/internal/errors"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/quillhub/backend/internal/util"
	"go.uber.org/zap"
)

type reactRequest struct {
	Reaction string `json:"reaction" binding:"required"`
}

// GetReactions returns zero-filled counts and the caller's own reaction.
// Anonymous callers get a null userReaction.
// GET /api/v1/{posts|comments}/reactions/:targetId
func (h *Handlers) GetReactions(kind reactions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, ok := util.ParseIDParam(c, "targetId")
		if !ok {
			return
		}

		summary, err := h.reactions.Summary(c.Request.Context(), kind, targetID, util.OptionalUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// React toggles the caller's reaction: 201 when added, 200 when updated or removed
// POST /api/v1/{posts|comments}/reactions/:targetId
func (h *Handlers) React(kind reactions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			return
		}
		targetID, ok := util.ParseIDParam(c, "targetId")
		if !ok {
			return
		}

		var req reactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		res, err := h.reactions.React(c.Request.Context(), userID, kind, targetID, req.Reaction)
		if err != nil {
			if errors.Is(err, reactions.ErrInvalidReaction) {
				util.RespondWithAPIError(c, apierrors.InvalidReaction(req.Reaction, string(kind)))
				return
			}
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if res.Outcome == reactions.OutcomeAdded {
			status = http.StatusCreated
		}
		c.JSON(status, h.toggleResponse(c, kind, targetID, res))
	}
}

// RemoveReaction deletes the caller's reaction of any type
// DELETE /api/v1/{posts|comments}/reactions/:targetId
func (h *Handlers) RemoveReaction(kind reactions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			return
		}
		targetID, ok := util.ParseIDParam(c, "targetId")
		if !ok {
			return
		}

		res, err := h.reactions.Remove(c.Request.Context(), userID, kind, targetID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, h.toggleResponse(c, kind, targetID, res))
	}
}

// GetReactors lists who reacted, optionally filtered by ?type=
// GET /api/v1/{posts|comments}/reactions/:targetId/users
func (h *Handlers) GetReactors(kind reactions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, ok := util.ParseIDParam(c, "targetId")
		if !ok {
			return
		}
		reactionType := c.Query("type")

		rows, err := h.reactions.Reactors(c.Request.Context(), kind, targetID, reactionType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users": dto.ToReactorResponses(rows),
			"count": len(rows),
		})
	}
}

// toggleResponse attaches fresh counts. A count failure only drops them
// from the body; the transition already happened.
func (h *Handlers) toggleResponse(c *gin.Context, kind reactions.Kind, targetID uint, res *reactions.Result) dto.ReactionToggleResponse {
	resp := dto.ReactionToggleResponse{Outcome: res.Outcome, State: res.State}
	counts, err := h.reactions.Counts(c.Request.Context(), kind, targetID)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("Failed to load reaction counts",
			zap.String("kind", string(kind)), zap.Uint("target_id", targetID), zap.Error(err))
		return resp
	}
	resp.Reactions = counts
	return resp
}
