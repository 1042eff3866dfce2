package firmware

import (
	"testing"

	"github.com/choco-technologies/dmlog/internal/memspace"
	"github.com/choco-technologies/dmlog/internal/region"
)

func newTestContext(t *testing.T, total int, inputSize uint32) (*Context, *memspace.Space) {
	t.Helper()
	mem := memspace.New(0x1_0000_0000)
	buf := make([]byte, total)
	c, err := NewRegion(mem, buf, 0x2000_0000, inputSize)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	return c, mem
}

func TestNewRegionPublishesMagicAndLayout(t *testing.T) {
	c, _ := newTestContext(t, 1024, 512)
	if region.GetU32(c.buf, region.OffMagic) != region.MagicValue {
		t.Fatal("magic not published")
	}
	if c.layout.OutBase+uint64(c.layout.OutSize) != c.layout.InBase {
		t.Fatal("arenas must be adjacent")
	}
}

func TestNewRegionEmitsVersionBannerFirst(t *testing.T) {
	c, _ := newTestContext(t, 1024, 512)
	var buf [64]byte
	c.ReadNext()
	n := c.Gets(buf[:], len(buf))
	if n == 0 {
		t.Fatal("expected a version banner as the first output entry")
	}
	if got := string(buf[:n]); got[:5] != "dmlog" {
		t.Fatalf("first entry = %q, want it to start with %q", got, "dmlog")
	}
}

func TestDestroyZeroesMagic(t *testing.T) {
	c, _ := newTestContext(t, 1024, 512)
	c.Destroy()
	if region.GetU32(c.buf, region.OffMagic) != 0 {
		t.Fatal("Destroy must zero the magic")
	}
	// Subsequent operations on a destroyed context are no-ops, not panics.
	c.Putc('x')
	if c.GetFreeSpace() != 0 {
		t.Fatal("operations on an invalid context must return zero sentinels")
	}
}

func TestAttachRoundTrip(t *testing.T) {
	mem := memspace.New(0x1_0000_0000)
	buf := make([]byte, 1024)
	c1, err := NewRegion(mem, buf, 0x2000_0000, 512)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	c1.Puts("hello\n")

	c2, err := Attach(mem, buf, 0x2000_0000)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if c2.layout.OutSize != c1.layout.OutSize || c2.layout.InSize != c1.layout.InSize {
		t.Fatal("Attach must recover the same layout")
	}
}

func TestAttachRejectsBadMagic(t *testing.T) {
	mem := memspace.New(0x1_0000_0000)
	buf := make([]byte, 1024)
	if _, err := Attach(mem, buf, 0x2000_0000); err == nil {
		t.Fatal("expected error attaching to a zeroed buffer")
	}
}

func TestLockRecursion(t *testing.T) {
	c, _ := newTestContext(t, 1024, 512)
	c.Lock()
	c.Lock()
	if !c.hasFlag(region.FlagBusy) {
		t.Fatal("BUSY must be set after acquiring the lock")
	}
	c.Unlock()
	if !c.hasFlag(region.FlagBusy) {
		t.Fatal("BUSY must remain set until the outermost Unlock")
	}
	c.Unlock()
	if c.hasFlag(region.FlagBusy) {
		t.Fatal("BUSY must clear after the outermost Unlock")
	}
}
