// Package firmware implements the embedded-target half of the shared-memory
// channel: the ring engine that formats log lines into the output arena,
// drains host keystrokes from the input arena, and drives file transfers.
//
// There is no real silicon backing this package. It exists so that Go (or
// TinyGo) firmware can use the same protocol a C target would, and so that
// this repository's own tests can exercise internal/monitor end to end
// without a debug probe.
package firmware

import (
	"errors"

	"github.com/choco-technologies/dmlog/internal/memspace"
	"github.com/choco-technologies/dmlog/internal/region"
	"github.com/choco-technologies/dmlog/internal/version"
)

// MaxEntry bounds the per-line staging buffers (spec.md §3.4's MAX_ENTRY).
const MaxEntry = 500

// lockSpinIterations bounds how long Lock will busy-wait for the host to
// release BUSY before proceeding anyway (spec.md §5).
const lockSpinIterations = 10_000

// ErrInvalidContext is returned (or its zero-value sentinel substituted) when
// an operation is attempted on a nil or uninitialized Context, per the
// validation-failure taxonomy of spec.md §4.2/§7.
var ErrInvalidContext = errors.New("firmware: invalid or uninitialized context")

// Context is the volatile reference to the shared region plus the
// per-context staging state described in spec.md §3.4. It is not safe for
// concurrent use from multiple goroutines; firmware is modeled as
// single-threaded with cooperative re-entrancy (spec.md §5).
type Context struct {
	buf    []byte // header + output arena + input arena, contiguous
	addr   uint64 // address corresponding to buf[0]
	layout region.Layout

	writeBuf    [MaxEntry]byte
	writeOff    int
	outStageBuf [MaxEntry]byte
	outStageLen int
	outStageOff int
	inStageBuf  [MaxEntry]byte
	inStageLen  int
	inStageOff  int

	lockRecursion int

	mem           *memspace.Space // address space the chunk buffer is allocated from; nil if this Context never drives a transfer
	ftAbortBudget int             // busy-wait budget for sendf/recvf chunk handshakes
}

// NewRegion creates a region in the given caller-supplied buffer: it zeroes
// the buffer, writes the magic, partitions it into output/input arenas
// (falling back to the 20% rule when wantInputSize leaves no room), and
// publishes the base addresses. addr is the address of buf[0] as the host's
// debug probe will see it. The first log line emitted is the version banner.
//
// mem, if non-nil, is the simulated address space buf was allocated from;
// NewRegion registers buf in it and uses it to allocate file-transfer chunk
// buffers. Real firmware has no such registry — mem exists for this
// repository's in-process tests, which stand in for a debug probe.
func NewRegion(mem *memspace.Space, buf []byte, addr uint64, wantInputSize uint32) (*Context, error) {
	for i := range buf {
		buf[i] = 0
	}

	layout, err := region.NewLayout(addr, uint32(len(buf)), wantInputSize)
	if err != nil {
		return nil, err
	}

	c := &Context{
		buf:           buf,
		addr:          addr,
		layout:        layout,
		mem:           mem,
		ftAbortBudget: 1_000_000,
	}

	if mem != nil {
		mem.Map(addr, buf)
	}

	region.SetU32(c.buf, region.OffMagic, region.MagicValue)
	region.SetU32(c.buf, region.OffOutSize, layout.OutSize)
	region.SetU64(c.buf, region.OffOutBase, layout.OutBase)
	region.SetU32(c.buf, region.OffInSize, layout.InSize)
	region.SetU64(c.buf, region.OffInBase, layout.InBase)

	c.Puts(version.Banner())

	return c, nil
}

// Attach re-derives a Context over an already-initialized buffer (one whose
// magic and layout fields were published by a prior NewRegion call, for
// example after a process restart that preserved the backing memory).
func Attach(mem *memspace.Space, buf []byte, addr uint64) (*Context, error) {
	if len(buf) < region.HeaderSize {
		return nil, errors.New("firmware: buffer shorter than header size")
	}
	if region.GetU32(buf, region.OffMagic) != region.MagicValue {
		return nil, errors.New("firmware: magic not present, region not initialized")
	}
	outSize := region.GetU32(buf, region.OffOutSize)
	inSize := region.GetU32(buf, region.OffInSize)
	outBase := region.GetU64(buf, region.OffOutBase)
	inBase := region.GetU64(buf, region.OffInBase)

	return &Context{
		buf:  buf,
		addr: addr,
		layout: region.Layout{
			Total:   uint32(len(buf)),
			OutBase: outBase,
			OutSize: outSize,
			InBase:  inBase,
			InSize:  inSize,
		},
		mem:           mem,
		ftAbortBudget: 1_000_000,
	}, nil
}

// Destroy zeroes the magic and clears all state under the lock, per spec.md
// §3.5. Any host probe observing the magic disappear stops.
func (c *Context) Destroy() {
	if c == nil {
		return
	}
	c.Lock()
	defer c.Unlock()
	region.SetU32(c.buf, region.OffMagic, 0)
	c.clearLocked()
}

// valid reports whether c is non-nil and its magic is intact, the gate every
// exported operation checks before touching shared state (spec.md §4.2).
func (c *Context) valid() bool {
	return c != nil && region.GetU32(c.buf, region.OffMagic) == region.MagicValue
}

// outArenaOff returns the byte offset of the output arena's start within buf.
func (c *Context) outArenaOff() int { return int(c.layout.OutBase - c.addr) }

// inArenaOff returns the byte offset of the input arena's start within buf.
func (c *Context) inArenaOff() int { return int(c.layout.InBase - c.addr) }

func (c *Context) outArena() []byte {
	off := c.outArenaOff()
	return c.buf[off : off+int(c.layout.OutSize)]
}

func (c *Context) inArena() []byte {
	off := c.inArenaOff()
	return c.buf[off : off+int(c.layout.InSize)]
}

func (c *Context) flags() uint32 { return region.GetU32(c.buf, region.OffFlags) }

func (c *Context) setFlagBits(bits uint32) {
	region.SetU32(c.buf, region.OffFlags, c.flags()|bits)
}

func (c *Context) clearFlagBits(bits uint32) {
	region.SetU32(c.buf, region.OffFlags, c.flags()&^bits)
}

func (c *Context) hasFlag(bit uint32) bool { return c.flags()&bit != 0 }

// Lock acquires the BUSY bit, honoring re-entrancy: a nested Lock call from
// within another locked operation only increments the recursion counter.
// The outermost caller busy-waits up to lockSpinIterations for the host to
// release a contested BUSY bit before proceeding regardless (spec.md §5).
func (c *Context) Lock() {
	if c.lockRecursion == 0 {
		for i := 0; i < lockSpinIterations && c.hasFlag(region.FlagBusy); i++ {
			// cooperative spin; firmware has no OS sleep primitive here
		}
		c.setFlagBits(region.FlagBusy)
	}
	c.lockRecursion++
}

// Unlock releases one level of recursion, clearing BUSY only when the
// outermost caller releases.
func (c *Context) Unlock() {
	if c.lockRecursion == 0 {
		return
	}
	c.lockRecursion--
	if c.lockRecursion == 0 {
		c.clearFlagBits(region.FlagBusy)
	}
}

// leftEntrySpace returns the bytes remaining in the write-assembly staging
// buffer before it must be flushed.
func (c *Context) leftEntrySpace() int {
	return MaxEntry - c.writeOff
}
