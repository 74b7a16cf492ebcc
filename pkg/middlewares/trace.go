package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
)

// TraceID takes the caller's trace id, or mints one, and exposes it to handlers and the response.
// The provider redirect carries no headers, so payment returns always get a fresh id.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.Request.Header.Get(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = uuid.NewString()
		}
		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)
		c.Next()
	}
}
