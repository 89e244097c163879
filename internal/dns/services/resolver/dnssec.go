package resolver

import "github.com/nullwave/rr-dnsd/internal/dns/domain"

// ParentZoneFn looks up the parent zone of a given zone apex. DS records
// live in the parent, not the child.
type ParentZoneFn func(childApex string) (domain.Zone, bool)

// NoopDNSSECHook is the default DNSSECHook: it never signs anything and
// never rewrites a response, so every zone is served exactly as if DNSSEC
// did not exist.
type NoopDNSSECHook struct {
	// ParentZone holds a parent-zone lookup. None of NoopDNSSECHook's
	// methods call it, so a DS query at a zone apex is answered from the
	// child zone alone whether or not it is set.
	ParentZone ParentZoneFn
}

func (NoopDNSSECHook) Handle(resp domain.DNSResponse, _ domain.Zone, _ string, _ domain.RRType) domain.DNSResponse {
	return resp
}

func (NoopDNSSECHook) MaybeSignRRset(rrs []domain.ResourceRecord, _ domain.Zone) []domain.ResourceRecord {
	return rrs
}

func (NoopDNSSECHook) DNSKEYRRset(_ domain.Zone) []domain.ResourceRecord {
	return nil
}
