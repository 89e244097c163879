package resolver

import (
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// resolutionOutcome is the terminal state produced by resolveInZone: the
// accumulated answer RRs (including any CNAME hops), the authority section,
// the final rcode, and whether the response is authoritative.
type resolutionOutcome struct {
	Answers   []domain.ResourceRecord
	Authority []domain.ResourceRecord
	RCode     domain.RCode
	AA        bool
}

// resolveInZone implements the exact-match (C6), best-match (C7), and
// zone-cut (C8) state machine described in spec.md section 4.2-4.5. It is
// a single iterative driver rather than the deeply nested dispatch the
// spec's section 9 design notes call out for restructuring: each loop
// iteration advances one of the tagged states (name-exists, name-absent,
// wildcard, referral, CNAME-restart) until a terminal outcome is reached.
func (r *Resolver) resolveInZone(zone domain.Zone, question domain.Question) resolutionOutcome {
	origQname := question.Name
	qtype := question.Type

	guard := newAliasGuard(r.maxAliasDepth, r.logger)
	answers := make([]domain.ResourceRecord, 0, 4)
	currentZone := zone
	currentName := origQname

	for {
		atName := r.zoneCache.GetRecordsByName(currentZone.Name, currentName)

		if len(atName) == 0 {
			bm := bestMatchSearch(r.zoneCache, currentZone.Name, currentName)
			outcome, restart := r.resolveAbsent(currentZone, currentName, origQname, qtype, bm, answers, guard, question)
			if restart != "" {
				nextZone, found := r.zoneCache.FindZone(restart, currentZone.Name)
				if !found {
					return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
				}
				currentZone = nextZone
				currentName = restart
				continue
			}
			return outcome
		}

		cnameRR, hasCNAME := firstOfType(atName, domain.RRTypeCNAME)
		if hasCNAME {
			if qtype == domain.RRTypeCNAME {
				answers = append(answers, cnameRR)
				return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
			}

			if err := guard.follow(question, cnameRR); err != nil {
				return resolutionOutcome{Answers: append(answers, cnameRR), AA: true, RCode: domain.SERVFAIL}
			}
			answers = append(answers, cnameRR)

			target, err := extractCNAMETarget(cnameRR)
			if err != nil {
				return resolutionOutcome{Answers: answers, AA: true, RCode: domain.SERVFAIL}
			}

			if r.zoneCache.InZone(target) {
				nextZone, found := r.zoneCache.FindZone(target, currentZone.Name)
				if found {
					currentZone = nextZone
					currentName = target
					continue
				}
			}
			// Out of bailiwick: the CNAME is already in answers; stop here.
			return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
		}

		return r.resolveExactType(currentZone, currentName, qtype, atName, question, answers)
	}
}

// resolveExactType handles the type-exact branch of the exact-match
// resolver (spec.md section 4.3, case 3-4) once a CNAME has been ruled out.
func (r *Resolver) resolveExactType(zone domain.Zone, name string, qtype domain.RRType, atName []domain.ResourceRecord, question domain.Question, answers []domain.ResourceRecord) resolutionOutcome {
	isApex := equalFoldStr(name, zone.Name)

	if qtype == domain.RRTypeANY {
		filtered := r.handlers.Filter(atName)
		answers = append(answers, filtered...)
		return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
	}

	typeMatches := filterRecords(atName, matchType(qtype))
	if len(typeMatches) > 0 {
		if isApex && qtype == domain.RRTypeDNSKEY {
			if dnskeys := r.dnssec.DNSKEYRRset(zone); len(dnskeys) > 0 {
				typeMatches = dnskeys
			}
		}
		answers = append(answers, typeMatches...)
		return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
	}

	if !isApex {
		delegations := r.zoneCache.GetDelegations(zone.Name, name)
		if len(delegations) > 0 {
			return resolutionOutcome{Authority: delegations, AA: false, RCode: domain.NOERROR}
		}
	}

	handled := r.handlers.Handle(name, qtype, atName, question)
	if len(handled) > 0 {
		signed := r.dnssec.MaybeSignRRset(handled, zone)
		answers = append(answers, signed...)
		return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
	}

	return resolutionOutcome{Authority: []domain.ResourceRecord{zone.Authority()}, AA: true, RCode: domain.NOERROR}
}

// resolveAbsent handles the name-absent branch (spec.md section 4.5):
// referral at an ancestor zone cut, wildcard expansion, or NXDOMAIN/dead
// end. When restart is non-empty, the caller should re-enter the driver
// loop at that name (a wildcard CNAME hop).
func (r *Resolver) resolveAbsent(zone domain.Zone, currentName, origQname string, qtype domain.RRType, bm bestMatchResult, answers []domain.ResourceRecord, guard *aliasGuard, question domain.Question) (outcome resolutionOutcome, restart string) {
	switch bm.kind {
	case matchExact:
		if nsRRs := filterRecords(bm.records, matchType(domain.RRTypeNS)); len(nsRRs) > 0 && !containsType(bm.records, domain.RRTypeSOA) {
			return resolutionOutcome{Authority: nsRRs, AA: false, RCode: domain.NOERROR}, ""
		}
		return r.nameAbsentTerminal(zone, currentName, origQname, answers), ""

	case matchWildcard:
		substituted := substituteOwners(bm.records, currentName)
		if cnameRR, has := firstOfType(substituted, domain.RRTypeCNAME); has && qtype != domain.RRTypeCNAME {
			if err := guard.follow(question, cnameRR); err != nil {
				return resolutionOutcome{Answers: append(answers, cnameRR), AA: true, RCode: domain.SERVFAIL}, ""
			}
			answers = append(answers, cnameRR)
			target, err := extractCNAMETarget(cnameRR)
			if err != nil {
				return resolutionOutcome{Answers: answers, AA: true, RCode: domain.SERVFAIL}, ""
			}
			return resolutionOutcome{}, target
		}
		if qtype == domain.RRTypeCNAME {
			if cnameRR, has := firstOfType(substituted, domain.RRTypeCNAME); has {
				answers = append(answers, cnameRR)
				return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}, ""
			}
		}

		if qtype == domain.RRTypeANY {
			filtered := r.handlers.Filter(substituted)
			answers = append(answers, filtered...)
			return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}, ""
		}
		typeMatches := filterRecords(substituted, matchType(qtype))
		if len(typeMatches) > 0 {
			answers = append(answers, typeMatches...)
			return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}, ""
		}
		handled := r.handlers.Handle(currentName, qtype, substituted, domain.Question{Name: currentName, Type: qtype})
		if len(handled) > 0 {
			answers = append(answers, handled...)
			return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}, ""
		}
		return resolutionOutcome{Authority: []domain.ResourceRecord{zone.Authority()}, AA: true, RCode: domain.NOERROR}, ""

	default: // matchNone
		return r.nameAbsentTerminal(zone, currentName, origQname, answers), ""
	}
}

// nameAbsentTerminal resolves the final branch of spec.md section 4.5 case
// 3: NXDOMAIN when the absent name is the original question, or a bare
// dead-end stop when reached via a CNAME restart.
func (r *Resolver) nameAbsentTerminal(zone domain.Zone, currentName, origQname string, answers []domain.ResourceRecord) resolutionOutcome {
	if equalFoldStr(currentName, origQname) {
		return resolutionOutcome{Authority: []domain.ResourceRecord{zone.Authority()}, AA: true, RCode: domain.NXDOMAIN}
	}
	return resolutionOutcome{Answers: answers, AA: true, RCode: domain.NOERROR}
}

func firstOfType(records []domain.ResourceRecord, t domain.RRType) (domain.ResourceRecord, bool) {
	for _, rr := range records {
		if rr.Type == t {
			return rr, true
		}
	}
	return domain.ResourceRecord{}, false
}

func substituteOwners(records []domain.ResourceRecord, qname string) []domain.ResourceRecord {
	out := make([]domain.ResourceRecord, 0, len(records))
	for _, rr := range records {
		owner := wildcardSubstitution(rr.Name, qname)
		if owner == rr.Name {
			out = append(out, rr)
			continue
		}
		rewritten, err := domain.NewAuthoritativeResourceRecord(owner, rr.Type, rr.Class, rr.TTL(), rr.Data, rr.Text)
		if err != nil {
			out = append(out, rr)
			continue
		}
		out = append(out, rewritten)
	}
	return out
}

func equalFoldStr(a, b string) bool {
	return strings.EqualFold(a, b)
}
