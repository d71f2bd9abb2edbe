package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(apiKeys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(apiKeys))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestAuth_NoKeysConfigured(t *testing.T) {
	r := newAuthRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Errorf("open access expected with no keys configured, got %d", w.Code)
	}
}

func TestAuth_Headers(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"x-api-key valid", "X-API-Key", "secret-1", http.StatusOK},
		{"bearer valid", "Authorization", "Bearer secret-2", http.StatusOK},
		{"x-api-key invalid", "X-API-Key", "wrong", http.StatusUnauthorized},
		{"bearer invalid", "Authorization", "Bearer wrong", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}

	r := newAuthRouter([]string{"secret-1", "secret-2"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body)
			}
		})
	}
}

func TestAuth_XAPIKeyPreferred(t *testing.T) {
	r := newAuthRouter([]string{"good"})

	// A valid X-API-Key wins even when the Authorization header is junk.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "good")
	req.Header.Set("Authorization", "Bearer junk")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
