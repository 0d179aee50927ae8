package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcapture/api/utils"
)

var testSecret = []byte("test-secret")

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthRequired(testSecret))
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"shop": c.MustGet("shop")})
	})
	return r
}

func getWithAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	token, err := utils.GenerateJWT(testSecret, "example.myshopify.com", time.Hour)
	require.NoError(t, err)

	w := getWithAuth(newAuthRouter(), "Bearer "+token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "example.myshopify.com")
}

func TestAuthRequiredRejections(t *testing.T) {
	expired, err := utils.GenerateJWT(testSecret, "example.myshopify.com", -time.Hour)
	require.NoError(t, err)
	wrongKey, err := utils.GenerateJWT([]byte("other-secret"), "example.myshopify.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc123"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := getWithAuth(newAuthRouter(), tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
