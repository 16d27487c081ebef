package handlers

import "github.com/gin-gonic/gin"

// currentAdminID returns the authenticated admin's ID from the request
// context, as set by the auth middleware.
func currentAdminID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get("adminID")
	if !exists {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}
