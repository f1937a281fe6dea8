package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SearchPosts finds posts whose title contains ?q=, ignoring case
// GET /api/v1/search/posts
func (h *Handlers) SearchPosts(c *gin.Context) {
	q := c.Query("q")

	docs, err := h.search.SearchPosts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query": q,
		"posts": docs,
		"count": len(docs),
	})
}
