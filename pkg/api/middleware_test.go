package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedEngine(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RateLimitMiddleware(rps, burst))
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return engine
}

func get(engine http.Handler, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	engine := rateLimitedEngine(0.001, 2)

	assert.Equal(t, http.StatusOK, get(engine, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, get(engine, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, get(engine, "10.0.0.1:1234"))

	// limits are per client
	assert.Equal(t, http.StatusOK, get(engine, "10.0.0.2:1234"))
}

func TestRateLimitDisabled(t *testing.T) {
	engine := rateLimitedEngine(0, 0)
	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, get(engine, "10.0.0.1:1234"))
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CORSMiddleware([]string{"https://a.example", "https://b.example"}, nil, nil))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://b.example")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://b.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
