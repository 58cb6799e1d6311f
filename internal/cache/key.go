package cache

import (
	"sort"
	"strings"
)

const keyPrefix = "cache"

// BuildKey computes the deterministic cache key for a request. Route
// params and query params are sorted by name before joining, so the key
// does not depend on map iteration or insertion order. Empty segments
// are filtered out.
func BuildKey(method, path, tenantID, userID string, params, query map[string]string) string {
	segments := []string{keyPrefix, method, path}

	if tenantID != "" {
		segments = append(segments, "t:"+tenantID)
	}
	if userID != "" {
		segments = append(segments, "u:"+userID)
	}

	segments = append(segments, sortedPairs("p", params)...)
	segments = append(segments, sortedPairs("q", query)...)

	filtered := segments[:0]
	for _, s := range segments {
		if s != "" {
			filtered = append(filtered, s)
		}
	}

	return strings.Join(filtered, ":")
}

// TenantPattern returns the glob matching every cached entry scoped to
// a tenant, used for tenant-wide invalidation.
func TenantPattern(tenantID string) string {
	return keyPrefix + ":*t:" + tenantID + "*"
}

// UserPattern returns the glob matching every cached entry scoped to a user.
func UserPattern(userID string) string {
	return keyPrefix + ":*u:" + userID + "*"
}

func sortedPairs(prefix string, m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		if name != "" && m[name] != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, prefix+":"+name+"="+m[name])
	}
	return pairs
}
