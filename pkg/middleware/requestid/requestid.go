// Package requestid tags every request with a correlation id.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the id between client and server.
const Header = "X-Request-ID"

const ctxKey = "request_id"

// Middleware reuses the caller's id when one is supplied and mints a
// fresh one otherwise. The id is echoed on the response for support
// tickets from staff.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Value reads the id assigned to the current request.
func Value(c *gin.Context) string {
	return c.GetString(ctxKey)
}
