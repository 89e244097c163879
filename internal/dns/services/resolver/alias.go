// Package resolver contains the core DNS resolution orchestration,
// including the alias (CNAME) chasing helpers in this file. They are
// factored out for readability and independent testability.
package resolver

import (
	"fmt"
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/common/log"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// defaultMaxAliasDepth bounds CNAME chain length per spec.md section 5's
// recommendation; exceeding it is treated identically to loop detection.
const defaultMaxAliasDepth = 8

// aliasGuard tracks CNAME-chase bookkeeping (chain, depth) shared by the
// exact-match driver across recursive hops within one resolution.
type aliasGuard struct {
	chain    domain.CnameChain
	maxDepth int
	logger   log.Logger
}

func newAliasGuard(maxDepth int, logger log.Logger) *aliasGuard {
	if maxDepth <= 0 {
		maxDepth = defaultMaxAliasDepth
	}
	return &aliasGuard{maxDepth: maxDepth, logger: logger}
}

// follow records head as the next hop in the chain, returning an error if
// doing so would exceed the depth bound or revisit a record already in the
// chain (a loop).
func (g *aliasGuard) follow(q domain.Question, head domain.ResourceRecord) error {
	if g.chain.Len()+1 > g.maxDepth {
		g.logger.Warn(map[string]any{
			"query":       q.Name,
			"alias_name":  head.Name,
			"alias_depth": g.chain.Len() + 1,
		}, "alias depth exceeded")
		return ErrAliasDepthExceeded
	}
	if g.chain.Contains(head) {
		g.logger.Warn(map[string]any{
			"query":      q.Name,
			"alias_name": head.Name,
		}, "alias loop detected")
		return ErrAliasLoopDetected
	}
	g.chain = g.chain.Append(head)
	return nil
}

// extractCNAMETarget reads the CNAME target out of an RR's text rdata,
// which is where the teacher's rrdata convention keeps the human-readable
// domain name for CNAME records (see common/rrdata/005cname.go).
func extractCNAMETarget(head domain.ResourceRecord) (string, error) {
	target := strings.TrimSpace(head.Text)
	if target == "" {
		return "", fmt.Errorf("%w: empty target for %s", ErrAliasTargetInvalid, head.Name)
	}
	return target, nil
}
