package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"saas-platform/internal/cache"
	"saas-platform/pkg/logger"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimitOptions is the per-route rate limit configuration.
type RateLimitOptions struct {
	// Limit is the number of requests allowed per window (default 100).
	Limit int
	// Window is the fixed window length (default 60s).
	Window time.Duration
	// PerUser keys the counter by authenticated user.
	PerUser bool
	// PerTenant keys the counter by authenticated tenant.
	PerTenant bool
}

// rateLimitInfo is the counter state stored per key. Created on the
// first request in a window and recreated after expiry.
type rateLimitInfo struct {
	Count     int   `json:"count"`
	ResetTime int64 `json:"resetTime"`
}

// stubbed in tests
var timeNow = time.Now

// RateLimit enforces a fixed-window request counter backed by the
// shared store. The read-then-write sequence is not atomic, so
// concurrent requests in the same window may under- or over-count;
// approximate limiting is the accepted behavior. Store errors fail
// open: the request is allowed and the error logged.
func RateLimit(store cache.Store, opts RateLimitOptions) echo.MiddlewareFunc {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	window := opts.Window
	if window <= 0 {
		window = 60 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil {
				return next(c)
			}

			log := logger.FromContext(c)
			ctx := c.Request().Context()
			key := rateLimitKey(c, opts)
			now := timeNow()

			info := rateLimitInfo{}
			raw, err := store.Get(ctx, key)
			switch {
			case err == nil:
				if err := json.Unmarshal([]byte(raw), &info); err != nil {
					info = rateLimitInfo{}
				}
			case err != cache.ErrCacheMiss:
				prometheus.RecordRateLimit("store_error")
				log.Warn("Rate limit store read failed, allowing request",
					zap.String("key", key), zap.Error(err))
				return next(c)
			}

			var ttl time.Duration
			if info.ResetTime > now.Unix() {
				info.Count++
				ttl = time.Duration(info.ResetTime-now.Unix()) * time.Second
			} else {
				info.Count = 1
				info.ResetTime = now.Add(window).Unix()
				ttl = window
			}

			if payload, err := json.Marshal(info); err == nil {
				if err := store.Set(ctx, key, string(payload), ttl); err != nil {
					prometheus.RecordRateLimit("store_error")
					log.Warn("Rate limit store write failed, allowing request",
						zap.String("key", key), zap.Error(err))
					return next(c)
				}
			}

			remaining := limit - info.Count
			if remaining < 0 {
				remaining = 0
			}

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime, 10))
			header.Set("X-RateLimit-Reset-Time", time.Unix(info.ResetTime, 0).UTC().Format(time.RFC3339))

			if info.Count > limit {
				retryAfter := info.ResetTime - now.Unix()
				if retryAfter < 0 {
					retryAfter = 0
				}
				header.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				prometheus.RecordRateLimit("exceeded")
				log.Warn("Rate limit exceeded",
					zap.String("key", key),
					zap.Int("count", info.Count),
					zap.Int("limit", limit))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": retryAfter,
				})
			}

			prometheus.RecordRateLimit("allowed")
			return next(c)
		}
	}
}

func rateLimitKey(c echo.Context, opts RateLimitOptions) string {
	parts := []string{"ratelimit", sanitizePath(c.Path()), c.Request().Method, clientIP(c)}
	if opts.PerUser {
		if user := userIDString(c); user != "" {
			parts = append(parts, "u:"+user)
		}
	}
	if opts.PerTenant {
		if tenant := tenantIDString(c); tenant != "" {
			parts = append(parts, "t:"+tenant)
		}
	}
	return strings.Join(parts, ":")
}

// clientIP prefers the first entry of X-Forwarded-For, falling back to
// the remote address.
func clientIP(c echo.Context) string {
	if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	return c.RealIP()
}

func sanitizePath(path string) string {
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, "/", "_")
	if path == "" {
		return "root"
	}
	return path
}
