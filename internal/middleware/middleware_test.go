package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/middleware"
)

type stubVerifier map[string]domain.Principal

func (v stubVerifier) Authenticate(token string) (domain.Principal, error) {
	p, ok := v[token]
	if !ok {
		return domain.Principal{}, errors.New("bad token")
	}
	return p, nil
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(stubVerifier{"good": {UserID: 7, DisplayName: "alice"}}))
	r.GET("/me", func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": p.UserID, "name": p.DisplayName})
	})
	return r
}

func TestAuth(t *testing.T) {
	r := newAuthRouter()
	cases := []struct {
		name   string
		url    string
		header string
		want   int
	}{
		{"bearer header", "/me", "Bearer good", http.StatusOK},
		{"lowercase scheme", "/me", "bearer good", http.StatusOK},
		{"query token", "/me?token=good", "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token good", http.StatusUnauthorized},
		{"unknown token", "/me", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"name":"alice"}`, w.Body.String())
			}
		})
	}
}

func TestLoggerAndCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	r := gin.New()
	r.Use(middleware.Logger(log), middleware.CORS("http://localhost:3000"))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
