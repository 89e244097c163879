// Package zonecache provides the in-memory ZoneCache implementation that
// backs the resolver's authoritative data plane.
package zonecache

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
	"github.com/nullwave/rr-dnsd/internal/dns/services/resolver"
)

// ZoneCache is a sharded, concurrency-safe in-memory implementation of
// resolver.ZoneCache, keyed by zone apex name. Each zone is published as
// an immutable domain.Zone snapshot; a reload replaces the snapshot
// wholesale rather than mutating records in place, so a resolution in
// flight never observes a torn zone.
type ZoneCache struct {
	zones cmap.ConcurrentMap[string, domain.Zone]
}

// Ensure ZoneCache implements resolver.ZoneCache at compile time.
var _ resolver.ZoneCache = (*ZoneCache)(nil)

// New creates an empty ZoneCache.
func New() *ZoneCache {
	return &ZoneCache{zones: cmap.New[domain.Zone]()}
}

// PutZone publishes a new snapshot of the zone under zoneRoot, replacing
// any existing snapshot for that apex.
func (zc *ZoneCache) PutZone(zoneRoot string, zone domain.Zone) error {
	if zoneRoot == "" {
		return resolver.ErrInvalidZoneRoot
	}
	zc.zones.Set(normalizeZoneRoot(zoneRoot), zone)
	return nil
}

// RemoveZone drops the zone at zoneRoot from the cache.
func (zc *ZoneCache) RemoveZone(zoneRoot string) error {
	if zoneRoot == "" {
		return resolver.ErrInvalidZoneRoot
	}
	zoneRoot = normalizeZoneRoot(zoneRoot)
	if !zc.zones.Has(zoneRoot) {
		return resolver.ErrZoneNotFound
	}
	zc.zones.Remove(zoneRoot)
	return nil
}

// FindZone returns the most specific zone covering qname. When nothing
// covers qname, it falls back to a zone covering fallback - used when a
// CNAME restart target does not land in any locally hosted zone but the
// chase should stay anchored to the zone it started in.
func (zc *ZoneCache) FindZone(qname string, fallback string) (domain.Zone, bool) {
	if z, ok := zc.bestZoneFor(qname); ok {
		return z, true
	}
	if fallback != "" {
		return zc.bestZoneFor(fallback)
	}
	return domain.Zone{}, false
}

func (zc *ZoneCache) bestZoneFor(name string) (domain.Zone, bool) {
	var best domain.Zone
	found := false
	for item := range zc.zones.IterBuffered() {
		zone := item.Val
		if !zc.RecordNameInZone(zone.Name, name) {
			continue
		}
		if !found || len(zone.Name) > len(best.Name) {
			best = zone
			found = true
		}
	}
	return best, found
}

func (zc *ZoneCache) GetRecordsByName(zoneName, name string) []domain.ResourceRecord {
	zone, ok := zc.zones.Get(zoneName)
	if !ok {
		return nil
	}
	return zone.RecordsByName(name)
}

func (zc *ZoneCache) GetRecordsByNameAndType(zoneName, name string, t domain.RRType) []domain.ResourceRecord {
	zone, ok := zc.zones.Get(zoneName)
	if !ok {
		return nil
	}
	return zone.RecordsByNameAndType(name, t)
}

func (zc *ZoneCache) GetDelegations(zoneName, name string) []domain.ResourceRecord {
	zone, ok := zc.zones.Get(zoneName)
	if !ok || name == zone.Name {
		return nil
	}
	return zone.RecordsByNameAndType(name, domain.RRTypeNS)
}

func (zc *ZoneCache) GetAuthority(qname string) (domain.ResourceRecord, bool) {
	zone, ok := zc.bestZoneFor(qname)
	if !ok {
		return domain.ResourceRecord{}, false
	}
	return zone.Authority(), true
}

func (zc *ZoneCache) InZone(name string) bool {
	_, ok := zc.bestZoneFor(name)
	return ok
}

func (zc *ZoneCache) RecordNameInZone(zoneName, qname string) bool {
	if zoneName == qname {
		return true
	}
	return isSubdomainOf(zoneName, qname)
}

func (zc *ZoneCache) GetZoneWithRecords(zoneName string) (domain.Zone, bool) {
	return zc.zones.Get(zoneName)
}

// Zones returns the apex names of every zone currently published.
func (zc *ZoneCache) Zones() []string {
	return zc.zones.Keys()
}

// Count returns the total record count across all published zones.
func (zc *ZoneCache) Count() int {
	count := 0
	for item := range zc.zones.IterBuffered() {
		count += item.Val.RecordCount()
	}
	return count
}

func normalizeZoneRoot(zoneRoot string) string {
	if zoneRoot[len(zoneRoot)-1] != '.' {
		return zoneRoot + "."
	}
	return zoneRoot
}

// isSubdomainOf reports whether qname is a strict, label-aligned
// descendant of zoneName (e.g. "www.example.com." under "example.com."
// but not "notexample.com." under "example.com.").
func isSubdomainOf(zoneName, qname string) bool {
	if len(qname) <= len(zoneName) {
		return false
	}
	if qname[len(qname)-len(zoneName):] != zoneName {
		return false
	}
	prefixLen := len(qname) - len(zoneName)
	return qname[prefixLen-1] == '.'
}
