// middleware/auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
)

func TestMain(m *testing.M) {
	logger.InitLogger(os.TempDir())
	defer logger.Sync()
	viper.Set("auth.jwtSecret", "test-secret")
	viper.Set("auth.adminGroup", "aegis-admin")
	m.Run()
}

func signToken(t *testing.T, claims AccessClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingToken(t *testing.T) {
	r := authTestRouter()
	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsBadSignature(t *testing.T) {
	r := authTestRouter()
	token := signToken(t, AccessClaims{
		StandardClaims: jwt.StandardClaims{Subject: "u1"},
	}, "wrong-secret")
	w := doRequest(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsMissingSubject(t *testing.T) {
	r := authTestRouter()
	token := signToken(t, AccessClaims{}, "test-secret")
	w := doRequest(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSetsPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured model.Principal
	r := gin.New()
	r.Use(Auth())
	r.GET("/ping", func(c *gin.Context) {
		value, _ := c.Get("principal")
		captured = value.(model.Principal)
		c.Status(http.StatusOK)
	})

	token := signToken(t, AccessClaims{
		StandardClaims: jwt.StandardClaims{Subject: "u1"},
		TenantID:       "tenant-a",
		Groups:         []string{"engineering", "aegis-admin"},
	}, "test-secret")
	w := doRequest(r, token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", captured.UserID)
	assert.Equal(t, "tenant-a", captured.TenantID)
	assert.True(t, captured.Admin)
}

func TestAuthNonAdminPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured model.Principal
	r := gin.New()
	r.Use(Auth())
	r.GET("/ping", func(c *gin.Context) {
		value, _ := c.Get("principal")
		captured = value.(model.Principal)
		c.Status(http.StatusOK)
	})

	token := signToken(t, AccessClaims{
		StandardClaims: jwt.StandardClaims{Subject: "u2"},
		Groups:         []string{"engineering"},
	}, "test-secret")
	w := doRequest(r, token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, captured.Admin)
}
