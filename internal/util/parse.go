package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseID parses a positive numeric identifier
func ParseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// ParseIDParam reads a numeric path parameter, answering 400 when it is malformed
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, ok := ParseID(c.Param(name))
	if !ok {
		RespondValidationError(c, name, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Pagination reads limit/offset query params with bounds
func Pagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit = ParseInt(c.Query("limit"), defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = ParseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
