package resolver

import "github.com/nullwave/rr-dnsd/internal/dns/domain"

// rootHintsNSTTL and rootHintsGlueTTL are the canonical TTLs carried by the
// root server hint records: 6 days for the NS set, ~41.6 days for the glue.
const (
	rootHintsNSTTL   uint32 = 518400
	rootHintsGlueTTL uint32 = 3600000
)

// rootServers lists the 13 well-known root server letters and their IPv4
// glue addresses, per IANA's published root hints file.
var rootServers = []struct {
	letter string
	ipv4   string
}{
	{"a", "198.41.0.4"},
	{"b", "199.9.14.201"},
	{"c", "192.33.4.12"},
	{"d", "199.7.91.13"},
	{"e", "192.203.230.10"},
	{"f", "192.5.5.241"},
	{"g", "192.112.36.4"},
	{"h", "198.97.190.53"},
	{"i", "192.36.148.17"},
	{"j", "192.58.128.30"},
	{"k", "193.0.14.129"},
	{"l", "199.7.83.42"},
	{"m", "202.12.27.33"},
}

// rootHints returns the 13 root NS records and their 13 A glue records,
// compiled in as a constant table per spec.md's §4.7 and §9 design note
// that static root data belongs in a compiled constant rather than a
// runtime-loaded file.
func rootHints() (ns []domain.ResourceRecord, glue []domain.ResourceRecord) {
	ns = make([]domain.ResourceRecord, 0, len(rootServers))
	glue = make([]domain.ResourceRecord, 0, len(rootServers))
	for _, rs := range rootServers {
		server := rs.letter + ".root-servers.net."
		nsRR, err := domain.NewAuthoritativeResourceRecord(".", domain.RRTypeNS, domain.RRClassIN, rootHintsNSTTL, nil, server)
		if err != nil {
			continue
		}
		ns = append(ns, nsRR)

		aRR, err := domain.NewAuthoritativeResourceRecord(server, domain.RRTypeA, domain.RRClassIN, rootHintsGlueTTL, nil, rs.ipv4)
		if err != nil {
			continue
		}
		glue = append(glue, aRR)
	}
	return ns, glue
}
