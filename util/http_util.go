// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// GetPrincipal returns the authenticated caller set by the auth middleware.
func GetPrincipal(c *gin.Context) (model.Principal, error) {
	value, exists := c.Get("principal")
	if !exists {
		return model.Principal{}, aegis_errors.ErrUnauthenticated
	}
	principal, ok := value.(model.Principal)
	if !ok || principal.UserID == "" {
		return model.Principal{}, aegis_errors.ErrUnauthenticated
	}
	return principal, nil
}
