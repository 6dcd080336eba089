package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/api/http/respond"
	authctx "github.com/duet-robotics/drc-backend/internal/auth"
	"github.com/duet-robotics/drc-backend/internal/logger"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and extracts user info.
func FirebaseAuthMiddleware(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing authorization token", nil)
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			logger.For(c.Request.Context(), log).Info("token rejected", zap.Error(err))
			respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid token", nil)
			return
		}

		c.Set(authctx.CtxFirebaseUID, decoded.UID)
		if email, ok := decoded.Claims["email"].(string); ok {
			c.Set(authctx.CtxEmail, email)
		}
		c.Set("firebase_token", decoded)

		c.Next()
	}
}

// RequireAdmin admits authenticated users whose e-mail is on the list. An
// empty list admits every authenticated user.
func RequireAdmin(emails []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allowed[e] = true
		}
	}
	return func(c *gin.Context) {
		if authctx.UserFirebaseUID(c) == "" {
			respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthorized, "user not authenticated", nil)
			return
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(authctx.UserEmail(c))] {
			respond.Fail(c, http.StatusForbidden, respond.CodeForbidden, "admin access required", nil)
			return
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.EqualFold(bearerToken[:7], "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
