package gdbremote

import "testing"

func TestChecksum(t *testing.T) {
	// "OK" = 0x4f + 0x4b = 0x9a
	if got := checksum("OK"); got != 0x9a {
		t.Fatalf("checksum(OK) = %#x, want %#x", got, 0x9a)
	}
}

func TestIsStopReply(t *testing.T) {
	cases := map[string]bool{
		"":        false,
		"OK":      false,
		"deadbeef": false,
		"S05":     true,
		"T05thread:01;": true,
		"W00":    true,
		"Xabc":   true,
		"E01":    false,
	}
	for input, want := range cases {
		if got := isStopReply(input); got != want {
			t.Errorf("isStopReply(%q) = %v, want %v", input, got, want)
		}
	}
}
