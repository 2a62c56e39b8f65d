package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegis-iam/aegis/config"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
)

// AccessClaims is the token payload we issue: the subject identifies the
// user, tenant_id carries the scope, and groups drive the administrator
// check.
type AccessClaims struct {
	jwt.StandardClaims
	TenantID string   `json:"tenant_id"`
	Groups   []string `json:"groups"`
}

// Auth verifies the bearer token and attaches the resolved principal to the
// request context. Requests without a valid token never reach a handler.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := parseToken(tokenString)
		if err != nil {
			logger.Warn("Error parsing token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		principal := model.Principal{
			UserID:   claims.Subject,
			TenantID: claims.TenantID,
			Admin:    hasGroup(claims, config.GetString("auth.adminGroup")),
		}
		c.Set("principal", principal)

		c.Next()
	}
}

func parseToken(tokenString string) (*AccessClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	secret := []byte(config.GetString("auth.jwtSecret"))

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token or wrong claims type")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

func hasGroup(claims *AccessClaims, group string) bool {
	if group == "" {
		return false
	}
	for _, g := range claims.Groups {
		if g == group {
			return true
		}
	}
	return false
}
