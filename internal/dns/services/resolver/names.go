package resolver

import (
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

const wildcardLabel = "*"

// splitLabels splits a canonical, trailing-dot-terminated DNS name into its
// labels, most-specific first. The root name ("." or "") yields no labels.
func splitLabels(name string) []string {
	trimmed := strings.TrimSuffix(name, ".")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ".")
}

// joinLabels reassembles labels into a canonical trailing-dot name.
func joinLabels(labels []string) string {
	if len(labels) == 0 {
		return "."
	}
	return strings.Join(labels, ".") + "."
}

// wildcardQname replaces the first label of n with the wildcard label.
func wildcardQname(n string) string {
	labels := splitLabels(n)
	if len(labels) == 0 {
		return n
	}
	labels[0] = wildcardLabel
	return joinLabels(labels)
}

// dnameMatch reports whether n2 matches n1, where n2 may be a wildcard
// pattern. n2 matches n1 when n2 equals n1 exactly, or n2's leftmost label
// is "*", n1 has at least as many labels as n2, and the remaining labels of
// n2 equal the same-length suffix of n1.
func dnameMatch(n1, n2 string) bool {
	if strings.EqualFold(n1, n2) {
		return true
	}
	l1 := splitLabels(n1)
	l2 := splitLabels(n2)
	if len(l2) == 0 || !strings.EqualFold(l2[0], wildcardLabel) {
		return false
	}
	suffix2 := l2[1:]
	if len(l1) < len(l2) {
		return false
	}
	suffix1 := l1[len(l1)-len(suffix2):]
	for i := range suffix1 {
		if !strings.EqualFold(suffix1[i], suffix2[i]) {
			return false
		}
	}
	return true
}

// wildcardSubstitution returns qname when name is a wildcard pattern that
// matches qname, otherwise returns name unchanged. Used to rewrite a
// wildcard RR's owner into the queried name before it reaches the answer
// section, so wildcard labels never appear in output (spec invariant).
func wildcardSubstitution(name, qname string) string {
	if dnameMatch(qname, name) {
		return qname
	}
	return name
}

// isSubdomain reports whether child is a strict descendant of parent: the
// reversed label sequence of child properly extends that of parent. Equal
// names return false.
func isSubdomain(parent, child string) bool {
	pl := splitLabels(parent)
	cl := splitLabels(child)
	if len(cl) <= len(pl) {
		return false
	}
	offset := len(cl) - len(pl)
	for i, lbl := range pl {
		if !strings.EqualFold(lbl, cl[offset+i]) {
			return false
		}
	}
	return true
}

// isWildcardOwner reports whether name's leftmost label is the wildcard label.
func isWildcardOwner(name string) bool {
	labels := splitLabels(name)
	return len(labels) > 0 && labels[0] == wildcardLabel
}

// recordsToRRsets groups records preserving the insertion order of the
// first occurrence of each type, returning one slice per type in original
// intra-type order.
func recordsToRRsets(records []domain.ResourceRecord) [][]domain.ResourceRecord {
	order := make([]domain.RRType, 0, len(records))
	byType := make(map[domain.RRType][]domain.ResourceRecord, len(records))
	for _, rr := range records {
		if _, seen := byType[rr.Type]; !seen {
			order = append(order, rr.Type)
		}
		byType[rr.Type] = append(byType[rr.Type], rr)
	}
	sets := make([][]domain.ResourceRecord, 0, len(order))
	for _, t := range order {
		sets = append(sets, byType[t])
	}
	return sets
}

// minimumSOATTL clamps rr.ttl to the SOA minimum field per RFC 2308, when
// soaRR is an SOA record. It is a no-op otherwise. soaMinimum is
// parsed from the SOA record's Text rdata (the last of its seven fields).
func minimumSOATTL(rr domain.ResourceRecord, soaRR domain.ResourceRecord) domain.ResourceRecord {
	min, ok := soaMinimum(soaRR)
	if !ok {
		return rr
	}
	ttl := rr.TTL()
	if ttl <= min {
		return rr
	}
	clamped, err := domain.NewAuthoritativeResourceRecord(rr.Name, rr.Type, rr.Class, min, rr.Data, rr.Text)
	if err != nil {
		return rr
	}
	return clamped
}

// soaMinimum extracts the minimum field (the 7th whitespace-separated
// token) from an SOA record's text rdata, matching common/rrdata's SOA
// text convention: "mname rname serial refresh retry expire minimum".
func soaMinimum(soaRR domain.ResourceRecord) (uint32, bool) {
	if soaRR.Type != domain.RRTypeSOA {
		return 0, false
	}
	fields := strings.Fields(soaRR.Text)
	if len(fields) != 7 {
		return 0, false
	}
	var min uint64
	for _, c := range fields[6] {
		if c < '0' || c > '9' {
			return 0, false
		}
		min = min*10 + uint64(c-'0')
		if min > 1<<32-1 {
			return 0, false
		}
	}
	return uint32(min), true
}
