// Package wire provides encoding and decoding of DNS messages for UDP transport.
// It handles the DNS wire format as specified in RFC 1035.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/nullwave/rr-dnsd/internal/dns/common/log"
	"github.com/nullwave/rr-dnsd/internal/dns/common/utils"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
)

// udpCodec implements the DNSCodec interface for standard DNS over UDP messages.
type udpCodec struct {
	logger log.Logger
}

// NewUDPCodec creates and returns a new instance of udpCodec using the provided logger.
// The logger is used for logging within the codec.
func NewUDPCodec(logger log.Logger) *udpCodec {
	return &udpCodec{
		logger: logger,
	}
}

// decodeName decodes a domain name from a DNS message at the specified offset,
// handling label compression as defined in RFC 1035.
func decodeName(data []byte, offset int) (string, int, error) {
	var labels []string
	for {
		if offset >= len(data) {
			return "", 0, errors.New("offset out of bounds")
		}
		length := int(data[offset])
		if length == 0 {
			offset++
			break
		}
		if length&0xC0 == 0xC0 {
			if offset+1 >= len(data) {
				return "", 0, errors.New("compression pointer out of bounds")
			}
			ptr := int(binary.BigEndian.Uint16(data[offset:offset+2]) & 0x3FFF)
			suffix, _, err := decodeName(data, ptr)
			if err != nil {
				return "", 0, err
			}
			labels = append(labels, suffix)
			offset += 2
			break
		}
		offset++
		if offset+length > len(data) {
			return "", 0, errors.New("label length out of bounds")
		}
		labels = append(labels, string(data[offset:offset+length]))
		offset += length
	}
	return strings.Join(labels, "."), offset, nil
}

// decodeQuestion decodes a single question-section entry (QNAME, QTYPE,
// QCLASS) starting at offset, returning the name, type, class, and the
// offset immediately following the entry.
func decodeQuestion(data []byte, offset int) (name string, qtype uint16, qclass uint16, next int, err error) {
	name, offset, err = decodeName(data, offset)
	if err != nil {
		return "", 0, 0, 0, err
	}
	if offset+4 > len(data) {
		return "", 0, 0, 0, errors.New("truncated question section")
	}
	qtype = binary.BigEndian.Uint16(data[offset : offset+2])
	qclass = binary.BigEndian.Uint16(data[offset+2 : offset+4])
	return name, qtype, qclass, offset + 4, nil
}

// encodeDomainName encodes a domain name into DNS wire format without compression.
func encodeDomainName(name string) ([]byte, error) {
	var buf bytes.Buffer
	if name == "" {
		buf.WriteByte(0)
		return buf.Bytes(), nil
	}
	labels := strings.Split(name, ".")
	for _, label := range labels {
		if label == "" {
			continue
		}
		if len(label) > 63 {
			return nil, fmt.Errorf("label too long: %s", label)
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
	}
	buf.WriteByte(0)
	return buf.Bytes(), nil
}

// flagBit returns 1<<pos when cond is true.
func flagBit(cond bool, pos uint) uint16 {
	if cond {
		return 1 << pos
	}
	return 0
}

// DecodeQuery parses a DNS query message from data.
func (c *udpCodec) DecodeQuery(data []byte) (domain.Question, error) {
	if len(data) < 12 {
		return domain.Question{}, errors.New("query too short")
	}
	id := binary.BigEndian.Uint16(data[0:2])
	flags := binary.BigEndian.Uint16(data[2:4])
	rd := flags&0x0100 != 0

	qdCount := binary.BigEndian.Uint16(data[4:6])
	if qdCount != 1 {
		return domain.Question{}, errors.New("expected exactly one question")
	}
	name, qtype, qclass, _, err := decodeQuestion(data, 12)
	if err != nil {
		return domain.Question{}, err
	}
	name = utils.CanonicalDNSName(name)
	if name == "" {
		name = "." // the root name has no labels
	}
	return domain.NewQuestionWithFlags(id, name, domain.RRType(qtype), domain.RRClass(qclass), rd)
}

// EncodeResponse serializes a DNSResponse into wire format, echoing the
// original question's QNAME/QTYPE/QCLASS in the question section since a
// response may carry zero answers (e.g. NXDOMAIN, a pure referral).
func (c *udpCodec) EncodeResponse(q domain.Question, resp domain.DNSResponse) ([]byte, error) {
	var buf bytes.Buffer

	if len(resp.Answers) > 65535 || len(resp.Authority) > 65535 || len(resp.Additional) > 65535 {
		return nil, fmt.Errorf("response section too large to encode")
	}

	_ = binary.Write(&buf, binary.BigEndian, resp.ID)

	var headerFlags uint16 = 0x8000 // QR=1 (response)
	headerFlags |= flagBit(resp.Flags.AA, 10)
	headerFlags |= flagBit(resp.Flags.TC, 9)
	headerFlags |= flagBit(resp.Flags.RD, 8)
	headerFlags |= flagBit(resp.Flags.RA, 7)
	headerFlags |= flagBit(resp.Flags.AD, 5)
	headerFlags |= flagBit(resp.Flags.CD, 4)
	headerFlags |= uint16(resp.RCode) & 0x000F
	_ = binary.Write(&buf, binary.BigEndian, headerFlags)

	_ = binary.Write(&buf, binary.BigEndian, uint16(1)) // QDCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(resp.Answers)))
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(resp.Authority)))
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(resp.Additional)))

	qname, err := encodeDomainName(q.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(qname)
	_ = binary.Write(&buf, binary.BigEndian, uint16(q.Type))
	_ = binary.Write(&buf, binary.BigEndian, uint16(q.Class))
	qnameOffset := 12 // QNAME always starts right after the 12-byte header

	for _, section := range [][]domain.ResourceRecord{resp.Answers, resp.Authority, resp.Additional} {
		for _, rr := range section {
			if rr.Name == q.Name {
				buf.Write([]byte{0xC0 | byte(qnameOffset>>8), byte(qnameOffset & 0xFF)})
			} else {
				name, err := encodeDomainName(rr.Name)
				if err != nil {
					return nil, err
				}
				buf.Write(name)
			}
			_ = binary.Write(&buf, binary.BigEndian, uint16(rr.Type))
			_ = binary.Write(&buf, binary.BigEndian, uint16(rr.Class))
			_ = binary.Write(&buf, binary.BigEndian, rr.TTL())

			dataLen := len(rr.Data)
			if dataLen > 65535 {
				return nil, fmt.Errorf("resource record data too large: %d bytes (max 65535)", dataLen)
			}
			_ = binary.Write(&buf, binary.BigEndian, uint16(dataLen))
			buf.Write(rr.Data)
		}
	}

	c.logger.Debug(map[string]any{
		"id":         resp.ID,
		"rcode":      resp.RCode.String(),
		"answers":    len(resp.Answers),
		"authority":  len(resp.Authority),
		"additional": len(resp.Additional),
		"size":       buf.Len(),
	}, "encoded DNS response")

	return buf.Bytes(), nil
}

var _ DNSCodec = &udpCodec{}
