package resolver

import (
	"context"
	"net"

	"github.com/nullwave/rr-dnsd/internal/dns/common/rrdata"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// SinkholeTarget names the address served for a blocked A or AAAA query
// when the blocklist strategy is "sinkhole" rather than REFUSED/NXDOMAIN.
type SinkholeTarget struct {
	IPv4 []string
	IPv6 []string
	TTL  uint32
}

// SinkholeResponder wraps a DNSResponder, intercepting blocked names ahead
// of the wrapped responder and substituting an A/AAAA answer pointing at
// Target instead of letting the blocked query reach the resolution core.
// Query types other than A/AAAA fall through to RCode Fallback, matching
// the plain REFUSED/NXDOMAIN strategies' behavior for non-address records.
type SinkholeResponder struct {
	next      DNSResponder
	blocklist Blocklist
	target    SinkholeTarget
	fallback  domain.RCode
	logger    interface {
		Error(fields map[string]any, msg string)
	}
}

// NewSinkholeResponder builds a SinkholeResponder. fallback is the rcode
// returned for blocked queries the sinkhole cannot answer directly (every
// type but A/AAAA).
func NewSinkholeResponder(next DNSResponder, blocklist Blocklist, target SinkholeTarget, fallback domain.RCode, logger interface {
	Error(fields map[string]any, msg string)
}) *SinkholeResponder {
	return &SinkholeResponder{next: next, blocklist: blocklist, target: target, fallback: fallback, logger: logger}
}

func (s *SinkholeResponder) HandleQuery(ctx context.Context, question domain.Question, clientAddr net.Addr) domain.DNSResponse {
	decision := s.blocklist.IsBlocked(question)
	if !decision.IsBlocked() {
		return s.next.HandleQuery(ctx, question, clientAddr)
	}

	var addrs []string
	var encode func(string) ([]byte, error)
	switch question.Type {
	case domain.RRTypeA:
		addrs, encode = s.target.IPv4, rrdata.EncodeAData
	case domain.RRTypeAAAA:
		addrs, encode = s.target.IPv6, rrdata.EncodeAAAAData
	default:
		return domain.NewDNSErrorResponse(question.ID, s.fallback)
	}
	if len(addrs) == 0 {
		return domain.NewDNSErrorResponse(question.ID, s.fallback)
	}

	answers := make([]domain.ResourceRecord, 0, len(addrs))
	for _, addr := range addrs {
		data, err := encode(addr)
		if err != nil {
			if s.logger != nil {
				s.logger.Error(map[string]any{"target": addr, "error": err}, "sinkhole target encode failed")
			}
			continue
		}
		rr, err := domain.NewAuthoritativeResourceRecord(question.Name, question.Type, domain.RRClassIN, s.target.TTL, data, addr)
		if err != nil {
			continue
		}
		answers = append(answers, rr)
	}
	if len(answers) == 0 {
		return domain.NewDNSErrorResponse(question.ID, s.fallback)
	}

	resp, err := domain.NewDNSResponseWithFlags(question.ID, domain.NOERROR, domain.Flags{AA: true, RD: question.RD}, answers, nil, nil)
	if err != nil {
		return domain.NewDNSErrorResponse(question.ID, s.fallback)
	}
	return resp
}

var _ DNSResponder = (*SinkholeResponder)(nil)
