package blocklist

import (
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
	"github.com/nullwave/rr-dnsd/internal/dns/services/resolver"
)

type NoopBlocklist struct{}

func (n *NoopBlocklist) IsBlocked(q domain.Question) domain.BlockDecision {
	return domain.EmptyDecision()
}

var _ resolver.Blocklist = (*NoopBlocklist)(nil)
