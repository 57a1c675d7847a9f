// File: internal/common/response.go
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerKey is the gin context key under which middleware stores the request logger.
const LoggerKey = "logger"

// RespondWithError sends a JSON error response.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped", zap.Error(err))
			}
		}
		apiErr = ErrInternalServer.WithDetails(err.Error())
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// RespondJSON writes body as-is; the notification API does not use an envelope.
func RespondJSON(c *gin.Context, statusCode int, body interface{}) {
	c.JSON(statusCode, body)
}

// RespondOK sends a 200 OK response.
func RespondOK(c *gin.Context, body interface{}) {
	RespondJSON(c, http.StatusOK, body)
}

// RespondCreated sends a 201 Created response.
func RespondCreated(c *gin.Context, body interface{}) {
	RespondJSON(c, http.StatusCreated, body)
}
