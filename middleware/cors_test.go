package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/config"
	"github.com/stretchr/testify/assert"
)

func corsRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware(&config.ServerConfig{AllowedOrigins: origins}))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	return router
}

func TestCORSMiddleware(t *testing.T) {
	router := corsRouter([]string{"http://localhost:3000", "*.joey.dev"})

	testCases := []struct {
		name           string
		requestOrigin  string
		expectedStatus int
		expectedOrigin string
	}{
		{"allowed origin", "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"wildcard subdomain", "https://www.joey.dev", http.StatusOK, "https://www.joey.dev"},
		{"disallowed origin", "http://malicious.com", http.StatusForbidden, ""},
		{"no origin header", "", http.StatusOK, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.requestOrigin != "" {
				req.Header.Set("Origin", tc.requestOrigin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			assert.Equal(t, tc.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	router := corsRouter([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	router := corsRouter([]string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
