package derive

import (
	"testing"

	"github.com/google/uuid"
)

func TestDeriveIsDeterministic(t *testing.T) {
	farmer := uuid.New()

	a1, d1 := FarmerAddress(farmer)
	a2, d2 := FarmerAddress(farmer)
	if a1 != a2 || d1 != d2 {
		t.Error("same inputs must derive the same address and discriminant")
	}

	p1, _ := PoolAddress()
	p2, _ := PoolAddress()
	if p1 != p2 {
		t.Error("pool address must be stable")
	}
}

func TestDeriveDistinguishesTagsAndSeeds(t *testing.T) {
	farmer := uuid.New()
	other := uuid.New()

	a, _ := FarmerAddress(farmer)
	b, _ := FarmerAddress(other)
	if a == b {
		t.Error("different seeds must derive different addresses")
	}

	// Same seed bytes under different tags must not collide.
	c, _ := Derive(TagFarmer, farmer[:])
	d, _ := Derive(TagRewardVault, farmer[:])
	if c == d {
		t.Error("different tags must derive different addresses")
	}

	// Seed boundaries are length-prefixed: ("ab","c") != ("a","bc").
	e, _ := Derive(TagTask, []byte("ab"), []byte("c"))
	f, _ := Derive(TagTask, []byte("a"), []byte("bc"))
	if e == f {
		t.Error("seed boundaries must be unambiguous")
	}
}

func TestParseAddressRoundTrip(t *testing.T) {
	addr, _ := TaskAddress("task-1")

	parsed, err := ParseAddress(addr.String())
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if parsed != addr {
		t.Errorf("round trip mismatch: got %s, want %s", parsed, addr)
	}

	if _, err := ParseAddress("zz"); err == nil {
		t.Error("expected error for malformed hex")
	}
	if _, err := ParseAddress("abcd"); err == nil {
		t.Error("expected error for short address")
	}
}
