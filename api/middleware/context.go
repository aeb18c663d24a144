package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/docflowhq/docstack/internal/utils"
)

const (
	HeaderTenant = "X-TENANT"
	HeaderUserId = "X-USER-ID"
)

// CustomContextMiddleware propagates the caller identity headers into the
// request context so repositories and tracing can pick them up downstream.
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		customCtx := &utils.CustomContext{
			AppSource: appSource,
			Tenant:    c.GetHeader(HeaderTenant),
			UserId:    c.GetHeader(HeaderUserId),
		}

		c.Request = c.Request.WithContext(utils.WithCustomContext(c.Request.Context(), customCtx))
		c.Next()
	}
}
