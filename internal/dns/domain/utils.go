package domain

import (
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/common/utils"
)

// GenerateCacheKey builds a zone-scoped cache key for a name/type/class
// triple. Scoping by apex domain keeps the cache's keyspace aligned with
// zone boundaries rather than a single flat namespace, so a cache or
// index can be sharded or evicted per zone.
func GenerateCacheKey(name string, t RRType, c RRClass) string {
	apex := utils.GetApexDomain(name)
	return strings.Join([]string{
		addTrailingDot(apex),
		removeTrailingDot(name),
		t.String(),
		c.String(),
	}, "|")
}

func removeTrailingDot(s string) string {
	return strings.TrimSuffix(s, ".")
}

func addTrailingDot(s string) string {
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
