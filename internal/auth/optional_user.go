package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// DevUser marks every request as an authenticated admin.
// - X-User-Id and X-User-Email override the defaults.
// - Use this ONLY with AUTH_MODE=none during local development.
func DevUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "dev-admin"
		}
		email := strings.TrimSpace(c.GetHeader("X-User-Email"))
		if email == "" {
			email = "dev@localhost"
		}

		c.Set(CtxFirebaseUID, uid)
		c.Set(CtxEmail, email)
		c.Next()
	}
}
