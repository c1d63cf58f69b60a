package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jerry-enebeli/vanta/config"
)

func setupRouter(secure bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	config.MockConfig(&config.Configuration{
		Server: config.ServerConfig{Secure: secure, SecretKey: "test-secret"},
	})

	r := gin.New()
	if secure {
		r.Use(SecretKeyAuthMiddleware())
	}
	r.GET("/links", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestSecretKeyAuthMissingKey(t *testing.T) {
	router := setupRouter(true)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/links", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSecretKeyAuthWrongKey(t *testing.T) {
	router := setupRouter(true)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/links", nil)
	req.Header.Set("X-Vanta-Key", "wrong")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSecretKeyAuthValidKey(t *testing.T) {
	router := setupRouter(true)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/links", nil)
	req.Header.Set("X-Vanta-Key", "test-secret")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conf := &config.Configuration{}

	r := gin.New()
	r.Use(RateLimitMiddleware(conf))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
