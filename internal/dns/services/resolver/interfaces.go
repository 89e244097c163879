package resolver

import (
	"context"
	"net"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// ZoneCache is the authoritative data source consulted by the resolver. It
// is read-only from the resolver's point of view: zone loaders publish new
// snapshots externally, and every lookup here observes a single consistent
// snapshot for the lifetime of one resolution.
type ZoneCache interface {
	// FindZone returns the nearest zone authoritative for qname, consulting
	// fallback as a last-resort anchor (e.g. the final hint in a referral
	// chain) when qname itself matches nothing. ok is false when no locally
	// hosted zone covers qname.
	FindZone(qname string, fallback string) (domain.Zone, bool)

	// GetRecordsByName returns every record owned by name (case-insensitive)
	// within the given zone.
	GetRecordsByName(zoneName, name string) []domain.ResourceRecord

	// GetRecordsByNameAndType returns records owned by name with the given
	// type within the given zone.
	GetRecordsByNameAndType(zoneName, name string, t domain.RRType) []domain.ResourceRecord

	// GetDelegations returns NS records owned by name whose owner is not the
	// zone apex - i.e. the records that mark name as a zone cut.
	GetDelegations(zoneName, name string) []domain.ResourceRecord

	// GetAuthority returns the zone's SOA record for qname's zone.
	GetAuthority(qname string) (domain.ResourceRecord, bool)

	// InZone reports whether some locally hosted zone covers name.
	InZone(name string) bool

	// RecordNameInZone reports whether qname falls within the named zone's
	// bailiwick (qname equals the zone apex or is a subdomain of it).
	RecordNameInZone(zoneName, qname string) bool

	// GetZoneWithRecords returns the full zone identified by its apex name.
	GetZoneWithRecords(zoneName string) (domain.Zone, bool)
}

// HandlerRegistry dispatches to pluggable, per-type custom handlers. The
// registry exists so record types outside the static C1-C9 pipeline (e.g. a
// computed or synthesized RRset) can be served without changing the core.
type HandlerRegistry interface {
	// Handle invokes the handler registered for qtype and returns its
	// records. At most one handler is held per type (a later registration
	// replaces the earlier one), and an ANY query invokes only a handler
	// registered for ANY itself. A handler panic is recovered and logged,
	// contributing no records.
	Handle(qname string, qtype domain.RRType, matched []domain.ResourceRecord, msg domain.Question) []domain.ResourceRecord

	// Filter narrows records for an ANY query using each applicable
	// handler's own filter hook.
	Filter(records []domain.ResourceRecord) []domain.ResourceRecord
}

// DNSSECHook is consulted at single call sites in the resolver; the default
// implementation (NoopDNSSECHook) does nothing and is always safe to wire
// in when DNSSEC support is disabled.
type DNSSECHook interface {
	// Handle runs post-resolution signing over the working response.
	Handle(resp domain.DNSResponse, zone domain.Zone, qname string, qtype domain.RRType) domain.DNSResponse

	// MaybeSignRRset signs rrs when DNSSEC is enabled for zone, returning
	// rrs unchanged otherwise.
	MaybeSignRRset(rrs []domain.ResourceRecord, zone domain.Zone) []domain.ResourceRecord

	// DNSKEYRRset returns the zone's DNSKEY RRset, or nil when DNSSEC is
	// disabled or the zone carries no signing key.
	DNSKEYRRset(zone domain.Zone) []domain.ResourceRecord
}

// EventSink receives fire-and-forget telemetry from the resolver. Event
// delivery is best effort; a slow or failing sink must never block or fail
// a resolution.
type EventSink interface {
	Notify(event Event)
}

// Event is a single telemetry record emitted by the resolver.
type Event struct {
	Kind   string
	Qname  string
	Qtype  domain.RRType
	RCode  domain.RCode
	Client net.Addr
}

// Blocklist is a pre-resolution policy gate consulted before the zone cache
// is ever touched. It sits outside the RFC 1034/1035 state machine.
type Blocklist interface {
	IsBlocked(q domain.Question) domain.BlockDecision
}

// Cache is a generic key/value record cache, used by the resolver for
// negative-answer memoization (never for recursive/upstream
// answers, which are out of scope).
type Cache interface {
	Set(records []domain.ResourceRecord) error
	Get(key string) ([]domain.ResourceRecord, bool)
	Delete(key string)
	Len() int
	Keys() []string
}

// DNSResponder is the boundary the transport layer calls into; it receives
// an already-decoded question and returns an already-built response,
// knowing nothing about wire formats or sockets.
type DNSResponder interface {
	HandleQuery(ctx context.Context, query domain.Question, clientAddr net.Addr) domain.DNSResponse
}
