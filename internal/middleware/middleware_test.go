package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func signed(t *testing.T, claims jwt.RegisteredClaims, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func authRouter(issuer string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(StructuredLoggingMiddleware(slog.Default()), AuthMiddleware(testSecret, issuer))
	r.GET("/whoami", func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	valid := jwt.RegisteredClaims{Subject: "reviewer-1", Issuer: "txn", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	expired := jwt.RegisteredClaims{Subject: "reviewer-1", Issuer: "txn", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}
	noSubject := jwt.RegisteredClaims{Issuer: "txn", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer " + signed(t, valid, jwt.SigningMethodHS256), http.StatusOK, "reviewer-1"},
		{"hs512 accepted", "Bearer " + signed(t, valid, jwt.SigningMethodHS512), http.StatusOK, "reviewer-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token abc", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signed(t, expired, jwt.SigningMethodHS256), http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signed(t, noSubject, jwt.SigningMethodHS256), http.StatusUnauthorized, ""},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, ""},
	}

	r := authRouter("txn")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_Issuer(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "a", Issuer: "other", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tok := "Bearer " + signed(t, claims, jwt.SigningMethodHS256)

	for issuer, code := range map[string]int{"txn": http.StatusUnauthorized, "": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", tok)
		w := httptest.NewRecorder()
		authRouter(issuer).ServeHTTP(w, req)
		assert.Equal(t, code, w.Code, "issuer %q", issuer)
	}
}

func TestStructuredLoggingMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(StructuredLoggingMiddleware(nil))
	r.GET("/", func(c *gin.Context) {
		assert.NotSame(t, slog.Default(), GetLoggerFromCtx(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetLoggerFromCtx_FallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), GetLoggerFromCtx(context.Background()))

	l := slog.New(slog.NewTextHandler(nil, nil))
	assert.Same(t, l, GetLoggerFromCtx(WithLogger(context.Background(), l)))
}

func TestNewMemoryLimiter(t *testing.T) {
	_, err := NewMemoryLimiter("lots")
	assert.Error(t, err)

	lim, err := NewMemoryLimiter("5-S")
	require.NoError(t, err)
	assert.Equal(t, int64(5), lim.Rate.Limit)
}
