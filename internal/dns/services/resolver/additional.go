package resolver

import (
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// addAdditional implements C9 (spec.md section 4.6): it walks the answer
// and authority sections looking for NS and MX targets, and appends their
// A/AAAA glue to the additional section, deduplicating by full record
// identity (so a target with more than one A/AAAA record keeps every one
// of them) and preserving whatever additional records the caller already
// populated (e.g. root hints glue).
func addAdditional(cache ZoneCache, zoneName string, answers, authority, existing []domain.ResourceRecord) []domain.ResourceRecord {
	targets := collectGlueTargets(answers, authority)
	if len(targets) == 0 {
		return existing
	}

	out := existing
	for _, target := range targets {
		for _, t := range []domain.RRType{domain.RRTypeA, domain.RRTypeAAAA} {
			for _, rr := range cache.GetRecordsByNameAndType(zoneName, target, t) {
				if containsRR(out, rr) {
					continue
				}
				out = append(out, rr)
			}
		}
	}
	return out
}

func containsRR(records []domain.ResourceRecord, rr domain.ResourceRecord) bool {
	for _, existing := range records {
		if existing.Equal(rr) {
			return true
		}
	}
	return false
}

// collectGlueTargets returns the deduplicated set of NS and MX rdata
// targets found across answers and authority, in first-seen order.
func collectGlueTargets(answers, authority []domain.ResourceRecord) []string {
	var targets []string
	seen := make(map[string]bool)
	add := func(rr domain.ResourceRecord) {
		var target string
		switch rr.Type {
		case domain.RRTypeNS:
			target = strings.TrimSpace(rr.Text)
		case domain.RRTypeMX:
			fields := strings.Fields(rr.Text)
			if len(fields) != 2 {
				return
			}
			target = fields[1]
		default:
			return
		}
		if target == "" || seen[target] {
			return
		}
		seen[target] = true
		targets = append(targets, target)
	}
	for _, rr := range answers {
		add(rr)
	}
	for _, rr := range authority {
		add(rr)
	}
	return targets
}
