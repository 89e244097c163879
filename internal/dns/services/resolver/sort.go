package resolver

import (
	"sort"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// sortAnswers orders the answer section per spec.md section 4.9: CNAME
// records come first in chain order (the order they were followed in,
// which is already how the driver appended them), the remaining records
// follow in a total order over (owner, type, rdata), and exact duplicates
// are removed.
func sortAnswers(answers []domain.ResourceRecord) []domain.ResourceRecord {
	if len(answers) < 2 {
		return answers
	}

	var cnames, rest []domain.ResourceRecord
	for _, rr := range answers {
		if rr.Type == domain.RRTypeCNAME {
			cnames = append(cnames, rr)
		} else {
			rest = append(rest, rr)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Text < b.Text
	})

	rest = dedupeRecords(rest)
	return append(cnames, rest...)
}

func dedupeRecords(records []domain.ResourceRecord) []domain.ResourceRecord {
	if len(records) < 2 {
		return records
	}
	out := make([]domain.ResourceRecord, 0, len(records))
	var prev domain.ResourceRecord
	for i, rr := range records {
		if i > 0 && rr.Equal(prev) {
			continue
		}
		out = append(out, rr)
		prev = rr
	}
	return out
}
