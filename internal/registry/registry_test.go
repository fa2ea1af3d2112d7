package registry

import (
	"math/big"
	"strings"
	"testing"
)

func TestLookupSelector(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantName string
		wantRisk string
	}{
		{"Approve", "0x095ea7b3", "approve", "medium"},
		{"Approve With Full Calldata", "0x095ea7b3" + strings.Repeat("0", 128), "approve", "medium"},
		{"Approve Uppercase", "0x095EA7B3", "approve", "medium"},
		{"SetApprovalForAll", "0xa22cb465", "setApprovalForAll", "high"},
		{"Transfer", "0xa9059cbb", "transfer", "low"},
		{"Universal Router", "0x3593564c", "execute", "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := LookupSelector(tt.data)
			if !ok {
				t.Fatalf("LookupSelector(%q) not found", tt.data)
			}
			if sig.Name != tt.wantName || sig.Risk != tt.wantRisk {
				t.Errorf("got {%s %s}, want {%s %s}", sig.Name, sig.Risk, tt.wantName, tt.wantRisk)
			}
		})
	}

	if _, ok := LookupSelector("0xdeadbeef"); ok {
		t.Error("Unknown selector should not resolve")
	}
}

func TestLookupEvent(t *testing.T) {
	ev, ok := LookupEvent("0xDDF252AD1BE2C89B69C2B068FC378DAA952BA7F163C4A11628F55A4DF523B3EF")
	if !ok || ev.Name != "Transfer" {
		t.Errorf("Expected Transfer event, got %+v found=%v", ev, ok)
	}
	if _, ok := LookupEvent("0x" + strings.Repeat("ab", 32)); ok {
		t.Error("Unknown topic0 should not resolve")
	}
}

func TestLookupContractCaseInsensitive(t *testing.T) {
	// Checksummed USDC address must resolve the same as lowercase.
	kc, ok := LookupContract("0xA0b86991c6218b36c1d19D4a2e9eb0ce3606eB48")
	if !ok {
		t.Fatal("USDC not found via checksummed address")
	}
	if kc.Name != "USDC" || !kc.Trusted {
		t.Errorf("Unexpected entry: %+v", kc)
	}
}

func TestScamAndTrustedAreDisjoint(t *testing.T) {
	for addr := range knownScamAddresses {
		if _, ok := LookupContract(addr); ok {
			t.Errorf("Address %s is both trusted and scam", addr)
		}
	}
}

func TestIsKnownScam(t *testing.T) {
	if !IsKnownScam("0xBAD00000000000000000000000000000000BAD01") {
		t.Error("Scam lookup should be case-insensitive")
	}
	if IsKnownScam("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48") {
		t.Error("USDC is not a scam address")
	}
}

func TestUnlimitedThreshold(t *testing.T) {
	// (2^256 - 1) / 2
	expected := new(big.Int).Div(MaxUint256, big.NewInt(2))
	if UnlimitedThreshold.Cmp(expected) != 0 {
		t.Errorf("UnlimitedThreshold = %s, want %s", UnlimitedThreshold, expected)
	}

	// 2^255 is strictly above the threshold.
	above := new(big.Int).Lsh(big.NewInt(1), 255)
	if above.Cmp(UnlimitedThreshold) <= 0 {
		t.Error("2^255 should exceed the unlimited threshold")
	}
}
