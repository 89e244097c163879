package domain

import "fmt"

// Zone represents a single authoritative zone: its apex name, the records
// it holds, and indexes used by the resolver to avoid linear scans during
// best-match search and exact-match lookup.
type Zone struct {
	Name        string // zone apex, canonical (trailing dot)
	Version     uint64
	authorityRR ResourceRecord // the zone's single SOA record

	records           []ResourceRecord
	recordsByName     map[string][]ResourceRecord
	recordsByNameType map[string][]ResourceRecord
}

// NewZone builds a Zone from its apex name and the full set of records it
// carries, indexing by name and by (name, type) pair. Exactly one SOA
// record is required, and it must sit at the zone apex; this resolves the
// "last record of a set" ambiguity around SOA by making multiple apex SOA
// records a load-time error rather than a runtime pick.
func NewZone(name string, version uint64, records []ResourceRecord) (Zone, error) {
	if name == "" {
		return Zone{}, fmt.Errorf("zone name must not be empty")
	}
	if len(records) == 0 {
		return Zone{}, ErrEmptyZone
	}

	z := Zone{
		Name:              name,
		Version:           version,
		records:           records,
		recordsByName:     make(map[string][]ResourceRecord),
		recordsByNameType: make(map[string][]ResourceRecord),
	}

	var soaCount int
	for _, rr := range records {
		if err := rr.Validate(); err != nil {
			return Zone{}, fmt.Errorf("invalid record %q: %w", rr.Name, err)
		}
		z.recordsByName[rr.Name] = append(z.recordsByName[rr.Name], rr)
		key := rr.Name + "|" + rr.Type.String()
		z.recordsByNameType[key] = append(z.recordsByNameType[key], rr)

		if rr.Type == RRTypeSOA {
			if rr.Name != name {
				return Zone{}, fmt.Errorf("%w: SOA owner %q is not zone apex %q", ErrNotZoneApex, rr.Name, name)
			}
			soaCount++
			z.authorityRR = rr
		}
	}

	if soaCount == 0 {
		return Zone{}, fmt.Errorf("zone %q: %w", name, ErrZoneMissingSOA)
	}
	if soaCount > 1 {
		return Zone{}, fmt.Errorf("zone %q: %w", name, ErrMultipleSOA)
	}

	return z, nil
}

// Authority returns the zone's single SOA record.
func (z Zone) Authority() ResourceRecord {
	return z.authorityRR
}

// RecordCount returns the total number of records held by the zone.
func (z Zone) RecordCount() int {
	return len(z.records)
}

// Records returns every record in the zone.
func (z Zone) Records() []ResourceRecord {
	return z.records
}

// RecordsByName returns the records owned by the given canonical name.
func (z Zone) RecordsByName(name string) []ResourceRecord {
	return z.recordsByName[name]
}

// RecordsByNameAndType returns the records owned by the given canonical
// name with the given type.
func (z Zone) RecordsByNameAndType(name string, t RRType) []ResourceRecord {
	return z.recordsByNameType[name+"|"+t.String()]
}

// HasName reports whether any record in the zone is owned by name.
func (z Zone) HasName(name string) bool {
	_, ok := z.recordsByName[name]
	return ok
}
