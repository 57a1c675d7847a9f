// File: internal/middleware/identity.go
package middleware

import (
	"errors"

	"notification_hub/internal/common"
	"notification_hub/internal/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Identity resolves the caller's recipient from the session token and stores it
// under common.RecipientKey. Callers without a token become identity.Anonymous.
func Identity(resolver identity.Resolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.GetTokenFromContext(c)

		recipient, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.Debug("Session token rejected", zap.Error(err))
			details := "Session token is invalid or expired."
			if errors.Is(err, identity.ErrNoVerifier) {
				details = "Session tokens are not accepted by this server."
			}
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails(details))
			return
		}

		c.Set(common.RecipientKey, recipient)
		c.Next()
	}
}
