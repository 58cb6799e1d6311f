package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMissThenHit(t *testing.T) {
	store := newMemStore()
	calls := 0

	e := echo.New()
	e.GET("/api/roles", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"data": []string{"admin"}})
	}, Cache(store, CacheOptions{TTL: time.Minute}))

	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache-Status"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, store.len())

	req2 := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "HIT", rec2.Header().Get("X-Cache-Status"))
	assert.Equal(t, 1, calls, "handler must not run on a cache hit")
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestCacheSkipsNonGet(t *testing.T) {
	store := newMemStore()

	e := echo.New()
	e.POST("/api/roles", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, echo.Map{"id": 1})
	}, Cache(store, CacheOptions{}))

	req := httptest.NewRequest(http.MethodPost, "/api/roles", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache-Status"))
	assert.Equal(t, 0, store.len())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	store := newMemStore()

	e := echo.New()
	e.GET("/api/roles/:id", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}, Cache(store, CacheOptions{}))

	req := httptest.NewRequest(http.MethodGet, "/api/roles/99", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, store.len())
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	store := newMemStore()
	calls := 0

	e := echo.New()
	e.GET("/api/users", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"page": c.QueryParam("page")})
	}, Cache(store, CacheOptions{}))

	for _, page := range []string{"1", "2", "1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/users?page="+page, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// page=1 hit the cache the second time
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, store.len())
}

func TestCacheSwallowsStoreFailures(t *testing.T) {
	store := newMemStore()
	store.failWrites = true

	e := echo.New()
	e.GET("/api/roles", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}, Cache(store, CacheOptions{}))

	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "true")
}

func TestInvalidateCacheDeletesKeysAndPatterns(t *testing.T) {
	store := newMemStore()
	store.data["cache:GET:/api/roles"] = "{}"
	store.data["cache:GET:/api/roles:q:page=2"] = "{}"
	store.data["cache:GET:/api/users"] = "{}"
	store.ttls["cache:GET:/api/roles"] = time.Minute

	e := echo.New()
	e.POST("/api/roles", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, echo.Map{"id": 1})
	}, InvalidateCache(store, InvalidateOptions{Patterns: []string{"cache:GET:/api/roles*"}}))

	req := httptest.NewRequest(http.MethodPost, "/api/roles", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, store.data, "cache:GET:/api/roles")
	assert.NotContains(t, store.data, "cache:GET:/api/roles:q:page=2")
	assert.Contains(t, store.data, "cache:GET:/api/users")
}

func TestInvalidateCacheScopedToTenant(t *testing.T) {
	store := newMemStore()
	store.data["cache:GET:/api/users:t:3"] = "{}"
	store.data["cache:GET:/api/users:t:4"] = "{}"

	e := echo.New()
	e.POST("/api/users", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, echo.Map{"id": 1})
	}, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("tenant_id", uint(3))
			return next(c)
		}
	}, InvalidateCache(store, InvalidateOptions{Tenant: true}))

	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, store.data, "cache:GET:/api/users:t:3")
	assert.Contains(t, store.data, "cache:GET:/api/users:t:4")
}

func TestInvalidateCacheScopedToRouteParamTenant(t *testing.T) {
	store := newMemStore()
	store.data["cache:GET:/api/users:t:3"] = "{}"
	store.data["cache:GET:/api/users:t:4"] = "{}"

	e := echo.New()
	e.DELETE("/api/tenants/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"message": "tenant deleted"})
	}, withUserTenant(1), InvalidateCache(store, InvalidateOptions{TenantParam: "id"}))

	req := httptest.NewRequest(http.MethodDelete, "/api/tenants/3", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// entries for the deleted tenant go, not the caller's own
	assert.NotContains(t, store.data, "cache:GET:/api/users:t:3")
	assert.Contains(t, store.data, "cache:GET:/api/users:t:4")
}

func TestInvalidateCacheSkipsFailedWrites(t *testing.T) {
	store := newMemStore()
	store.data["cache:GET:/api/roles"] = "{}"

	e := echo.New()
	e.POST("/api/roles", func(c echo.Context) error {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nope"})
	}, InvalidateCache(store, InvalidateOptions{Patterns: []string{"cache:GET:/api/roles*"}}))

	req := httptest.NewRequest(http.MethodPost, "/api/roles", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, store.data, "cache:GET:/api/roles")
}
