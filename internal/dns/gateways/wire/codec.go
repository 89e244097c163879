package wire

import (
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// DNSCodec handles wire encoding for an authoritative server: decoding an
// incoming query and encoding the response this resolver produces for it.
// There is no upstream/recursive path, so no query-encode or
// response-decode direction exists here.
type DNSCodec interface {
	DecodeQuery(data []byte) (domain.Question, error)
	EncodeResponse(q domain.Question, resp domain.DNSResponse) ([]byte, error)
}
