package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func token(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(JWTAuthMiddleware(cfg))
	r.GET("/members/:userId", RequireSelfOrRole("userId", RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": c.GetString(ContextUserID)})
	})
	r.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func serve(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := newTestRouter()
	valid := jwt.MapClaims{"sub": "u1", "role": RoleMember, "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		path   string
		bearer string
		header string
		want   int
	}{
		{name: "missing header", path: "/members/u1", want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/members/u1", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "bad signature", path: "/members/u1", bearer: token(t, "other", valid), want: http.StatusUnauthorized},
		{name: "expired", path: "/members/u1", bearer: token(t, testSecret, jwt.MapClaims{
			"sub": "u1", "role": RoleMember, "exp": time.Now().Add(-time.Hour).Unix(),
		}), want: http.StatusUnauthorized},
		{name: "missing role", path: "/members/u1", bearer: token(t, testSecret, jwt.MapClaims{"sub": "u1"}), want: http.StatusUnauthorized},
		{name: "own ledger", path: "/members/u1", bearer: token(t, testSecret, valid), want: http.StatusOK},
		{name: "someone else's ledger", path: "/members/u2", bearer: token(t, testSecret, valid), want: http.StatusForbidden},
		{name: "admin reads anyone", path: "/members/u2", bearer: token(t, testSecret, jwt.MapClaims{"sub": "ops", "role": RoleAdmin}), want: http.StatusOK},
		{name: "member on admin route", path: "/admin", bearer: token(t, testSecret, valid), want: http.StatusForbidden},
		{name: "admin route", path: "/admin", bearer: token(t, testSecret, jwt.MapClaims{"sub": "ops", "role": RoleAdmin}), want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			} else if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestJWTAuthMiddlewareRejectsNoneAlgorithm(t *testing.T) {
	r := newTestRouter()
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "role": RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/admin", unsigned).Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("RequestID")) })

	w := serve(r, "/", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
