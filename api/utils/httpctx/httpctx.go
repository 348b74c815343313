package httpctx

import "github.com/gin-gonic/gin"

const CorrelationKey = "correlationID"

// CorrelationID returns the id assigned by the correlation middleware, if any.
func CorrelationID(c *gin.Context) string {
	val, exists := c.Get(CorrelationKey)
	if !exists {
		return ""
	}
	id, _ := val.(string)
	return id
}
