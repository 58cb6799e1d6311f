package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"saas-platform/internal/cache"
	"saas-platform/pkg/logger"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CacheOptions is the per-route cache configuration, resolved once at
// startup when the route table is built.
type CacheOptions struct {
	// TTL for stored entries. Zero means the 300s default.
	TTL time.Duration
	// PerTenant scopes keys to the authenticated tenant.
	PerTenant bool
	// PerUser scopes keys to the authenticated user.
	PerUser bool
}

// InvalidateOptions configures best-effort invalidation on write routes.
type InvalidateOptions struct {
	// Keys are literal cache keys to delete.
	Keys []string
	// Patterns are glob patterns matched against stored keys.
	Patterns []string
	// Tenant invalidates every entry scoped to the current tenant.
	Tenant bool
	// TenantParam names a route parameter carrying the tenant id whose
	// entries should be invalidated, for routes that act on a tenant
	// other than the caller's own.
	TenantParam string
	// User invalidates every entry scoped to the current user.
	User bool
}

const defaultCacheTTL = 300 * time.Second

// cachedResponse is the JSON payload stored per cache entry.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter captures the response body and status while forwarding
// to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Cache serves GET responses from the shared store when possible and
// populates it after a miss. Store failures are logged and never
// surfaced to the caller.
func Cache(store cache.Store, opts CacheOptions) echo.MiddlewareFunc {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil || c.Request().Method != http.MethodGet {
				return next(c)
			}

			log := logger.FromContext(c)
			ctx := c.Request().Context()
			key := requestCacheKey(c, opts.PerTenant, opts.PerUser)

			if raw, err := store.Get(ctx, key); err == nil {
				var cached cachedResponse
				if err := json.Unmarshal([]byte(raw), &cached); err == nil {
					prometheus.RecordCacheResult("hit")
					c.Response().Header().Set("X-Cache-Status", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			} else if err != cache.ErrCacheMiss {
				prometheus.RecordCacheResult("store_error")
				log.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
			}

			prometheus.RecordCacheResult("miss")
			c.Response().Header().Set("X-Cache-Status", "MISS")

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw

			if err := next(c); err != nil {
				return err
			}

			if cw.status >= 200 && cw.status < 300 {
				payload, err := json.Marshal(cachedResponse{
					Status:      cw.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        cw.buf.Bytes(),
				})
				if err == nil {
					if err := store.Set(ctx, key, string(payload), ttl); err != nil {
						prometheus.RecordCacheResult("store_error")
						log.Warn("Cache store failed", zap.String("key", key), zap.Error(err))
					}
				}
			}
			return nil
		}
	}
}

// InvalidateCache deletes cache entries after a successful write
// request. Invalidation is best effort: listing or deletion errors are
// logged and swallowed.
func InvalidateCache(store cache.Store, opts InvalidateOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if store == nil || !isWriteMethod(c.Request().Method) {
				return nil
			}
			if c.Response().Status >= 400 {
				return nil
			}

			log := logger.FromContext(c)
			ctx := c.Request().Context()

			patterns := append([]string{}, opts.Patterns...)
			if opts.Tenant {
				if tenant := tenantIDString(c); tenant != "" {
					patterns = append(patterns, cache.TenantPattern(tenant))
				}
			}
			if opts.TenantParam != "" {
				if tenant := c.Param(opts.TenantParam); tenant != "" {
					patterns = append(patterns, cache.TenantPattern(tenant))
				}
			}
			if opts.User {
				if user := userIDString(c); user != "" {
					patterns = append(patterns, cache.UserPattern(user))
				}
			}

			keys := append([]string{}, opts.Keys...)
			for _, pattern := range patterns {
				matched, err := store.Keys(ctx, pattern)
				if err != nil {
					log.Warn("Cache invalidation listing failed",
						zap.String("pattern", pattern), zap.Error(err))
					continue
				}
				keys = append(keys, matched...)
			}

			if len(keys) > 0 {
				if err := store.Delete(ctx, keys...); err != nil {
					log.Warn("Cache invalidation delete failed",
						zap.Int("keys", len(keys)), zap.Error(err))
				} else {
					prometheus.RecordCacheResult("invalidate")
					log.Debug("Cache entries invalidated", zap.Int("keys", len(keys)))
				}
			}
			return nil
		}
	}
}

func requestCacheKey(c echo.Context, perTenant, perUser bool) string {
	var tenant, user string
	if perTenant {
		tenant = tenantIDString(c)
	}
	if perUser {
		user = userIDString(c)
	}

	params := map[string]string{}
	for _, name := range c.ParamNames() {
		params[name] = c.Param(name)
	}

	query := map[string]string{}
	for name, values := range c.QueryParams() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	return cache.BuildKey(c.Request().Method, c.Path(), tenant, user, params, query)
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func tenantIDString(c echo.Context) string {
	if id, ok := c.Get("tenant_id").(uint); ok {
		return strconv.FormatUint(uint64(id), 10)
	}
	return ""
}

func userIDString(c echo.Context) string {
	if id, ok := c.Get("user_id").(uint); ok {
		return strconv.FormatUint(uint64(id), 10)
	}
	return ""
}
