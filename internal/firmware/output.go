package firmware

import (
	"github.com/choco-technologies/dmlog/internal/region"
	"github.com/choco-technologies/dmlog/internal/ringmath"
)

// GetFreeSpace returns the number of free bytes in the output arena.
func (c *Context) GetFreeSpace() int {
	if !c.valid() {
		return 0
	}
	head := region.GetU32(c.buf, region.OffOutHead)
	tail := region.GetU32(c.buf, region.OffOutTail)
	return int(ringmath.Free(head, tail, c.layout.OutSize))
}

// Putc appends a single byte to the write-assembly staging buffer, flushing
// it to the output ring on a newline or when staging fills (spec.md §4.2).
// If the host has asserted CLEAR_BUFFER, Clear runs first.
func (c *Context) Putc(b byte) {
	if !c.valid() {
		return
	}
	c.Lock()
	defer c.Unlock()

	if c.hasFlag(region.FlagClearBuffer) {
		c.clearLocked()
	}

	if c.leftEntrySpace() == 0 {
		c.flushLocked()
	}

	c.writeBuf[c.writeOff] = b
	c.writeOff++

	if b == '\n' || c.leftEntrySpace() == 0 {
		c.flushLocked()
	}
}

// Puts appends a string, flushing at the end if it did not already end in a
// newline (spec.md §4.2).
func (c *Context) Puts(s string) {
	c.Putsn(s, len(s))
}

// Putsn appends the first n bytes of s, flushing at the end if the last
// emitted byte was not a newline.
func (c *Context) Putsn(s string, n int) {
	if !c.valid() {
		return
	}
	if n > len(s) {
		n = len(s)
	}
	lastWasNewline := false
	for i := 0; i < n; i++ {
		c.Putc(s[i])
		lastWasNewline = s[i] == '\n'
	}
	if n > 0 && !lastWasNewline {
		c.Lock()
		c.flushLocked()
		c.Unlock()
	}
}

// Flush copies the write-assembly staging buffer into the output ring.
func (c *Context) Flush() {
	if !c.valid() {
		return
	}
	c.Lock()
	defer c.Unlock()
	c.flushLocked()
}

// flushLocked implements the oldest-wins overwrite policy of spec.md §4.2:
// if the ring is full, the oldest byte is discarded (tail advances) so the
// newest byte can still be written. This deliberately can tear the oldest
// entry; it is the documented buffer-full policy, not an error.
func (c *Context) flushLocked() {
	arena := c.outArena()
	size := c.layout.OutSize

	for i := 0; i < c.writeOff; i++ {
		head := region.GetU32(c.buf, region.OffOutHead)
		tail := region.GetU32(c.buf, region.OffOutTail)

		if ringmath.IsFull(head, tail, size) {
			tail = ringmath.AdvanceTail(tail, 1, size)
			region.SetU32(c.buf, region.OffOutTail, tail)
		}

		arena[head] = c.writeBuf[i]
		head = ringmath.AdvanceHead(head, 1, size)
		region.SetU32(c.buf, region.OffOutHead, head)
	}
	c.writeOff = 0
}

// ReadNext copies a newline-terminated run of up to MaxEntry-1 bytes from the
// output ring into the output staging buffer, stopping at and including the
// first newline or at end-of-ring. It returns true iff at least one byte was
// moved. This reads from the output ring's own tail, the same cursor the
// host monitor advances — spec.md's DESIGN NOTES call this diagnostic-only,
// since interleaving it with host reads of the same ring is not sound.
func (c *Context) ReadNext() bool {
	if !c.valid() {
		return false
	}
	c.Lock()
	defer c.Unlock()

	arena := c.outArena()
	size := c.layout.OutSize

	c.outStageLen = 0
	c.outStageOff = 0

	moved := false
	for c.outStageLen < MaxEntry-1 {
		head := region.GetU32(c.buf, region.OffOutHead)
		tail := region.GetU32(c.buf, region.OffOutTail)
		if ringmath.IsEmpty(head, tail) {
			break
		}
		b := arena[tail]
		region.SetU32(c.buf, region.OffOutTail, ringmath.AdvanceTail(tail, 1, size))
		c.outStageBuf[c.outStageLen] = b
		c.outStageLen++
		moved = true
		if b == '\n' {
			break
		}
	}
	return moved
}

// Getc returns the next byte from the output staging buffer, automatically
// calling ReadNext when the current staging contents are exhausted. The
// second return value is false once there is nothing left to read.
func (c *Context) Getc() (byte, bool) {
	if !c.valid() {
		return 0, false
	}
	if c.outStageOff >= c.outStageLen {
		if !c.ReadNext() {
			return 0, false
		}
	}
	b := c.outStageBuf[c.outStageOff]
	c.outStageOff++
	return b, true
}

// Gets copies up to max bytes into buf from the output staging buffer,
// pulling additional entries via Getc as needed. It returns the number of
// bytes copied.
func (c *Context) Gets(buf []byte, max int) int {
	if max > len(buf) {
		max = len(buf)
	}
	n := 0
	for n < max {
		b, ok := c.Getc()
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n
}
