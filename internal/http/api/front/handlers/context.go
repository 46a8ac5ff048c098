package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stylisthq/stylist-server/internal/models"
)

// Context keys set by the front auth middleware.
const (
	ContextUserIDKey = "userID"
	ContextUserKey   = "user"
)

// getUserID returns the authenticated user ID from the gin context, or 0.
func getUserID(c *gin.Context) uint64 {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, ok := value.(uint64)
	if !ok {
		return 0
	}
	return id
}

// getUser returns the authenticated user loaded by the middleware, or nil.
func getUser(c *gin.Context) *models.User {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
