package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group)
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroupMethodsAndMiddleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("transfers", "/transfers")

	var sawMiddleware bool
	g.Use(func(c *gin.Context) {
		sawMiddleware = true
		c.Next()
	})
	g.POST("/internal", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.PATCH("/:id/status", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	api := engine.Group("/api/v1")
	g.RegisterRoutes(api)

	req := httptest.NewRequest("POST", "/api/v1/transfers/internal", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sawMiddleware)

	req = httptest.NewRequest("PATCH", "/api/v1/transfers/abc/status", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "transfers", g.Name())
}
