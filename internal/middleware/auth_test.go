package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"saas-platform/pkg/config"
	"saas-platform/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T, handler echo.HandlerFunc) *echo.Echo {
	t.Helper()
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	e := echo.New()
	e.GET("/api/profile", handler, AuthMiddleware)
	return e
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	e := newAuthServer(t, func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization token")
}

func TestAuthMiddlewareBadFormat(t *testing.T) {
	e := newAuthServer(t, func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expected Bearer token")
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	e := newAuthServer(t, func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestAuthMiddlewareValidTokenPopulatesContext(t *testing.T) {
	var gotUserID, gotRoleID, gotTenantID uint
	var gotEmail, gotRole, gotTenantName string

	e := newAuthServer(t, func(c echo.Context) error {
		gotUserID, _ = c.Get("user_id").(uint)
		gotEmail, _ = c.Get("email").(string)
		gotRoleID, _ = c.Get("role_id").(uint)
		gotRole, _ = c.Get("role").(string)
		gotTenantID, _ = c.Get("tenant_id").(uint)
		gotTenantName, _ = c.Get("tenant_name").(string)
		return c.JSON(http.StatusOK, echo.Map{})
	})

	tenantID := uint(4)
	token, err := jwtutil.GenerateToken("admin@acme.test", 11, 2, "admin", &tenantID, "acme")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(11), gotUserID)
	assert.Equal(t, "admin@acme.test", gotEmail)
	assert.Equal(t, uint(2), gotRoleID)
	assert.Equal(t, "admin", gotRole)
	assert.Equal(t, uint(4), gotTenantID)
	assert.Equal(t, "acme", gotTenantName)
	assert.Equal(t, "4", req.Header.Get("X-Tenant-ID"))
}

func TestAuthMiddlewareTokenWithoutTenant(t *testing.T) {
	var tenantSet bool

	e := newAuthServer(t, func(c echo.Context) error {
		_, tenantSet = c.Get("tenant_id").(uint)
		return c.JSON(http.StatusOK, echo.Map{})
	})

	token, err := jwtutil.GenerateToken("user@example.test", 7, 1, "user", nil, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, tenantSet)
}
