package domain

import "errors"

// Zone construction and lookup errors.
var (
	ErrEmptyZone      = errors.New("zone has no records")
	ErrZoneMissingSOA = errors.New("zone has no SOA record at its apex")
	ErrMultipleSOA    = errors.New("zone has more than one SOA record at its apex")
	ErrNotZoneApex    = errors.New("SOA record owner is not the zone apex")
)
