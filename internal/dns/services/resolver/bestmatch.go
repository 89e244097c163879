package resolver

import "github.com/nullwave/rr-dnsd/internal/dns/domain"

// matchKind tags how a best-match search satisfied a query: by an exact
// ancestor name, or by a wildcard owner at that ancestor depth.
type matchKind int

const (
	matchNone matchKind = iota
	matchExact
	matchWildcard
)

// bestMatchResult carries the records found by bestMatchSearch along with
// how they were found, since downstream branching (C6/C7) treats wildcard
// and exact-ancestor matches differently.
type bestMatchResult struct {
	records []domain.ResourceRecord
	kind    matchKind
	name    string // the ancestor (or wildcard) name that matched
}

// bestMatchSearch walks qname's ancestor chain from the most specific label
// toward the zone apex looking for either a wildcard owner or an exact
// ancestor name with records, per spec.md section 4.2. It assumes the caller
// has already tried an exact lookup of qname itself and gotten nothing.
func bestMatchSearch(cache ZoneCache, zoneName, qname string) bestMatchResult {
	labels := splitLabels(qname)
	for k := 1; k <= len(labels); k++ {
		suffix := labels[k:]
		wildcardName := joinLabels(append([]string{wildcardLabel}, suffix...))
		if wc := cache.GetRecordsByName(zoneName, wildcardName); len(wc) > 0 {
			return bestMatchResult{records: wc, kind: matchWildcard, name: wildcardName}
		}
		exactName := joinLabels(suffix)
		if ex := cache.GetRecordsByName(zoneName, exactName); len(ex) > 0 {
			return bestMatchResult{records: ex, kind: matchExact, name: exactName}
		}
	}
	return bestMatchResult{kind: matchNone}
}
