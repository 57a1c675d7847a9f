// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetTokenFromContext retrieves the session token: bearer header first, then the
// session cookie, then the token query parameter. Returns "" if none is present.
// A header with any other scheme is returned whole so the resolver rejects it.
func GetTokenFromContext(c *gin.Context) string {
	if authHeader := c.GetHeader(AuthorizationHeader); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], AuthorizationTypeBearer) {
			return strings.TrimSpace(parts[1])
		}
		return strings.TrimSpace(authHeader)
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	return c.Query(TokenQueryParam)
}

// GetRecipientFromContext retrieves the recipient set by the identity middleware.
func GetRecipientFromContext(c *gin.Context) string {
	val, exists := c.Get(RecipientKey)
	if !exists {
		return ""
	}
	recipient, ok := val.(string)
	if !ok {
		return ""
	}
	return recipient
}
