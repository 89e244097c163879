package resolver

import "github.com/nullwave/rr-dnsd/internal/dns/domain"

// memZoneCache is a minimal in-memory ZoneCache used only by this
// package's tests, backed directly by domain.Zone values.
type memZoneCache struct {
	zones []domain.Zone
}

func newMemZoneCache(zones ...domain.Zone) *memZoneCache {
	return &memZoneCache{zones: zones}
}

func (c *memZoneCache) lookup(qname string) (domain.Zone, bool) {
	var best domain.Zone
	found := false
	for _, z := range c.zones {
		if equalFoldStr(z.Name, qname) || isSubdomain(z.Name, qname) {
			if !found || len(z.Name) > len(best.Name) {
				best = z
				found = true
			}
		}
	}
	return best, found
}

func (c *memZoneCache) FindZone(qname string, fallback string) (domain.Zone, bool) {
	if z, ok := c.lookup(qname); ok {
		return z, true
	}
	if fallback != "" {
		return c.lookup(fallback)
	}
	return domain.Zone{}, false
}

func (c *memZoneCache) GetRecordsByName(zoneName, name string) []domain.ResourceRecord {
	z, ok := c.GetZoneWithRecords(zoneName)
	if !ok {
		return nil
	}
	return z.RecordsByName(name)
}

func (c *memZoneCache) GetRecordsByNameAndType(zoneName, name string, t domain.RRType) []domain.ResourceRecord {
	z, ok := c.GetZoneWithRecords(zoneName)
	if !ok {
		return nil
	}
	return z.RecordsByNameAndType(name, t)
}

func (c *memZoneCache) GetDelegations(zoneName, name string) []domain.ResourceRecord {
	z, ok := c.GetZoneWithRecords(zoneName)
	if !ok {
		return nil
	}
	if equalFoldStr(name, z.Name) {
		return nil
	}
	return z.RecordsByNameAndType(name, domain.RRTypeNS)
}

func (c *memZoneCache) GetAuthority(qname string) (domain.ResourceRecord, bool) {
	z, ok := c.lookup(qname)
	if !ok {
		return domain.ResourceRecord{}, false
	}
	return z.Authority(), true
}

func (c *memZoneCache) InZone(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

func (c *memZoneCache) RecordNameInZone(zoneName, qname string) bool {
	return equalFoldStr(zoneName, qname) || isSubdomain(zoneName, qname)
}

func (c *memZoneCache) GetZoneWithRecords(zoneName string) (domain.Zone, bool) {
	for _, z := range c.zones {
		if equalFoldStr(z.Name, zoneName) {
			return z, true
		}
	}
	return domain.Zone{}, false
}
