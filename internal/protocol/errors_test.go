package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := append([]string{""}, KnownCodes()...)
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
	if len(KnownCodes()) != len(knownCodes) {
		t.Fatalf("KnownCodes and knownCodes disagree: %d vs %d", len(KnownCodes()), len(knownCodes))
	}
}
