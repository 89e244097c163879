package resolver

import (
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// recordPredicate is a composable filter over resource records.
type recordPredicate func(domain.ResourceRecord) bool

// matchType returns a predicate selecting records of exactly type t.
func matchType(t domain.RRType) recordPredicate {
	return func(rr domain.ResourceRecord) bool { return rr.Type == t }
}

// matchName returns a predicate selecting records owned by name
// (case-insensitive).
func matchName(name string) recordPredicate {
	return func(rr domain.ResourceRecord) bool { return strings.EqualFold(rr.Name, name) }
}

// notMatch negates a predicate.
func notMatch(p recordPredicate) recordPredicate {
	return func(rr domain.ResourceRecord) bool { return !p(rr) }
}

// anyOf combines predicates with logical OR.
func anyOf(preds ...recordPredicate) recordPredicate {
	return func(rr domain.ResourceRecord) bool {
		for _, p := range preds {
			if p(rr) {
				return true
			}
		}
		return false
	}
}

// filterRecords returns the subset of records satisfying p, preserving order.
func filterRecords(records []domain.ResourceRecord, p recordPredicate) []domain.ResourceRecord {
	out := make([]domain.ResourceRecord, 0, len(records))
	for _, rr := range records {
		if p(rr) {
			out = append(out, rr)
		}
	}
	return out
}

// containsType reports whether records includes at least one record of type t.
func containsType(records []domain.ResourceRecord, t domain.RRType) bool {
	for _, rr := range records {
		if rr.Type == t {
			return true
		}
	}
	return false
}
