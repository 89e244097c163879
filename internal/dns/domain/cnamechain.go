package domain

// CnameChain is the ordered sequence of CNAME records already followed
// during one resolution. It is strictly append-only; appending a record
// already present (by full RR equality) signals a loop.
type CnameChain struct {
	hops []ResourceRecord
}

// Contains reports whether rr (by full structural equality) already
// appears in the chain.
func (c CnameChain) Contains(rr ResourceRecord) bool {
	for _, hop := range c.hops {
		if hop.Equal(rr) {
			return true
		}
	}
	return false
}

// Append adds rr to the chain, returning the extended chain. The receiver
// is left unmodified.
func (c CnameChain) Append(rr ResourceRecord) CnameChain {
	hops := make([]ResourceRecord, len(c.hops), len(c.hops)+1)
	copy(hops, c.hops)
	hops = append(hops, rr)
	return CnameChain{hops: hops}
}

// Len returns the number of hops recorded so far.
func (c CnameChain) Len() int {
	return len(c.hops)
}

// Hops returns the accumulated CNAME records in follow order.
func (c CnameChain) Hops() []ResourceRecord {
	return c.hops
}
