package domain

import "testing"

func TestCnameChain_AppendAndContains(t *testing.T) {
	rr1, _ := NewAuthoritativeResourceRecord("a.example.com.", RRTypeCNAME, RRClassIN, 300, nil, "b.example.com.")
	rr2, _ := NewAuthoritativeResourceRecord("b.example.com.", RRTypeCNAME, RRClassIN, 300, nil, "a.example.com.")

	var chain CnameChain
	if chain.Contains(rr1) {
		t.Fatal("empty chain should not contain anything")
	}

	chain = chain.Append(rr1)
	if chain.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", chain.Len())
	}
	if !chain.Contains(rr1) {
		t.Fatal("chain should contain rr1 after Append")
	}
	if chain.Contains(rr2) {
		t.Fatal("chain should not contain rr2 yet")
	}

	chain2 := chain.Append(rr2)
	if chain.Len() != 1 {
		t.Fatal("Append must not mutate the receiver")
	}
	if chain2.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", chain2.Len())
	}
}

func TestCnameChain_LoopDetection(t *testing.T) {
	a, _ := NewAuthoritativeResourceRecord("a.example.com.", RRTypeCNAME, RRClassIN, 300, nil, "b.example.com.")
	b, _ := NewAuthoritativeResourceRecord("b.example.com.", RRTypeCNAME, RRClassIN, 300, nil, "a.example.com.")

	var chain CnameChain
	chain = chain.Append(a)
	chain = chain.Append(b)

	if !chain.Contains(a) {
		t.Fatal("expected loop: a already present in chain")
	}
}
