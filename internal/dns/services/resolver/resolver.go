package resolver

import (
	"context"
	"net"

	"github.com/nullwave/rr-dnsd/internal/dns/common/clock"
	"github.com/nullwave/rr-dnsd/internal/dns/common/log"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// Resolver is the authoritative query resolution core (spec.md section
// 4.1, component C10). It is a pure function of its inputs: a question,
// the zone cache snapshot, and the client address, with no recursive or
// upstream fallback (this server answers only what it is authoritative
// for; see SPEC_FULL.md's non-goals).
type Resolver struct {
	zoneCache     ZoneCache
	handlers      HandlerRegistry
	dnssec        DNSSECHook
	blocklist     Blocklist
	events        EventSink
	negativeCache Cache
	logger        log.Logger
	clock         clock.Clock

	maxAliasDepth int
	rootHints     bool
	blockRCode    domain.RCode
}

// ResolverOptions configures a Resolver. ZoneCache is required; every
// other field has a safe zero-value default so a resolver can be built
// incrementally as collaborators become available.
type ResolverOptions struct {
	ZoneCache     ZoneCache
	Handlers      HandlerRegistry
	DNSSEC        DNSSECHook
	Blocklist     Blocklist
	Events        EventSink
	NegativeCache Cache
	Logger        log.Logger
	Clock         clock.Clock

	// MaxAliasDepth bounds CNAME chain length. Zero uses defaultMaxAliasDepth.
	MaxAliasDepth int
	// RootHints enables the compiled-in root server referral when a query
	// falls outside every configured zone (spec.md section 4.1).
	RootHints bool
	// BlockRCode is the rcode returned for a blocklist hit. Defaults to
	// NXDOMAIN when zero.
	BlockRCode domain.RCode
}

func NewResolver(opts ResolverOptions) *Resolver {
	r := &Resolver{
		zoneCache:     opts.ZoneCache,
		handlers:      opts.Handlers,
		dnssec:        opts.DNSSEC,
		blocklist:     opts.Blocklist,
		events:        opts.Events,
		negativeCache: opts.NegativeCache,
		logger:        opts.Logger,
		clock:         opts.Clock,
		maxAliasDepth: opts.MaxAliasDepth,
		rootHints:     opts.RootHints,
		blockRCode:    opts.BlockRCode,
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	if r.handlers == nil {
		r.handlers = NewHandlerRegistry(r.logger)
	}
	if r.dnssec == nil {
		r.dnssec = NoopDNSSECHook{}
	}
	if r.clock == nil {
		r.clock = clock.RealClock{}
	}
	if r.blockRCode == 0 {
		r.blockRCode = domain.NXDOMAIN
	}
	return r
}

// HandleQuery is the DNSResponder boundary the transport layer calls into.
// It never panics: a failure in a collaborator is converted to SERVFAIL so
// one bad zone or handler cannot take the listener down.
func (r *Resolver) HandleQuery(ctx context.Context, question domain.Question, clientAddr net.Addr) (resp domain.DNSResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(map[string]any{"qname": question.Name, "panic": rec}, "resolver panicked")
			resp = domain.NewDNSErrorResponse(question.ID, domain.SERVFAIL)
		}
	}()

	if r.blocklist != nil {
		if decision := r.blocklist.IsBlocked(question); decision.IsBlocked() {
			r.notify(Event{Kind: "blocked", Qname: question.Name, Qtype: question.Type, RCode: r.blockRCode, Client: clientAddr})
			return domain.NewDNSErrorResponse(question.ID, r.blockRCode)
		}
	}

	resp = r.resolve(question)
	r.notify(Event{Kind: "resolved", Qname: question.Name, Qtype: question.Type, RCode: resp.RCode, Client: clientAddr})
	return resp
}

// resolve implements spec.md section 4.1's resolve(msg, hints, client):
// RRSIG short-circuit, zone-cache miss fallback to root hints (or an
// empty authoritative response), and otherwise hands off to the C6/C7/C8
// driver before running the shared post-pass (SOA TTL clamp, DNSSEC hook,
// additional processing, answer sort).
func (r *Resolver) resolve(question domain.Question) domain.DNSResponse {
	flags := domain.Flags{RD: question.RD}

	if question.Type == domain.RRTypeRRSIG {
		return mustResponse(question.ID, domain.NewDNSResponseWithFlags(question.ID, domain.REFUSED, flags, nil, nil, nil))
	}

	zone, found := r.zoneCache.FindZone(question.Name, "")
	if !found {
		flags.AA = true
		if r.rootHints {
			ns, glue := rootHints()
			return mustResponse(question.ID, domain.NewDNSResponseWithFlags(question.ID, domain.NOERROR, flags, nil, ns, glue))
		}
		return mustResponse(question.ID, domain.NewDNSResponseWithFlags(question.ID, domain.NOERROR, flags, nil, nil, nil))
	}

	if r.negativeCached(question) {
		flags.AA = true
		authority := clampAuthoritySOA([]domain.ResourceRecord{zone.Authority()})
		return mustResponse(question.ID, domain.NewDNSResponseWithFlags(question.ID, domain.NXDOMAIN, flags, nil, authority, nil))
	}

	outcome := r.resolveInZone(zone, question)
	flags.AA = outcome.AA

	if outcome.RCode == domain.NXDOMAIN {
		r.cacheNegative(question, zone)
	}

	authority := clampAuthoritySOA(outcome.Authority)
	dnsResp := mustResponse(question.ID, domain.NewDNSResponseWithFlags(question.ID, outcome.RCode, flags, outcome.Answers, authority, nil))
	dnsResp = r.dnssec.Handle(dnsResp, zone, question.Name, question.Type)
	dnsResp.Answers = sortAnswers(dnsResp.Answers)
	dnsResp.Additional = addAdditional(r.zoneCache, zone.Name, dnsResp.Answers, dnsResp.Authority, dnsResp.Additional)
	return dnsResp
}

// clampAuthoritySOA applies RFC 2308's TTL clamp to any SOA record placed
// in the authority section (the NXDOMAIN and NODATA cases put the zone's
// own SOA there, so clamping it against itself is a no-op; the hook
// matters once a parent-zone SOA is substituted).
func clampAuthoritySOA(authority []domain.ResourceRecord) []domain.ResourceRecord {
	for i, rr := range authority {
		if rr.Type == domain.RRTypeSOA {
			authority[i] = minimumSOATTL(rr, rr)
		}
	}
	return authority
}

// negativeCached reports whether question previously resolved to NXDOMAIN
// and that result hasn't yet expired, letting a repeat query skip the
// exact/best-match/wildcard driver entirely.
func (r *Resolver) negativeCached(question domain.Question) bool {
	if r.negativeCache == nil {
		return false
	}
	_, found := r.negativeCache.Get(question.CacheKey())
	return found
}

// cacheNegative records an NXDOMAIN outcome for question, expiring it per
// RFC 2308's SOA-minimum rule so a repeat query doesn't outlive the zone's
// own negative-caching TTL.
func (r *Resolver) cacheNegative(question domain.Question, zone domain.Zone) {
	if r.negativeCache == nil {
		return
	}
	min, ok := soaMinimum(zone.Authority())
	if !ok {
		return
	}
	sentinel, err := domain.NewCachedResourceRecord(question.Name, question.Type, question.Class, min, nil, "NXDOMAIN", r.clock.Now())
	if err != nil {
		return
	}
	_ = r.negativeCache.Set([]domain.ResourceRecord{sentinel})
}

func (r *Resolver) notify(e Event) {
	if r.events != nil {
		r.events.Notify(e)
	}
}

func mustResponse(id uint16, resp domain.DNSResponse, err error) domain.DNSResponse {
	if err != nil {
		return domain.NewDNSErrorResponse(id, domain.SERVFAIL)
	}
	return resp
}
