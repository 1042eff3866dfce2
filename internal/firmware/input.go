package firmware

import (
	"github.com/choco-technologies/dmlog/internal/region"
	"github.com/choco-technologies/dmlog/internal/ringmath"
)

// requestHintMask is the set of bits input_request may assert alongside
// INPUT_REQUESTED (spec.md §4.2).
const requestHintMask = region.FlagInputEchoOff | region.FlagInputLineMode

// InputAvailable reports whether the host has published unread bytes.
func (c *Context) InputAvailable() bool {
	if !c.valid() {
		return false
	}
	return c.hasFlag(region.FlagInputAvailable)
}

// InputGetFreeSpace returns the number of free bytes in the input arena.
func (c *Context) InputGetFreeSpace() int {
	if !c.valid() {
		return 0
	}
	head := region.GetU32(c.buf, region.OffInHead)
	tail := region.GetU32(c.buf, region.OffInTail)
	return int(ringmath.Free(head, tail, c.layout.InSize))
}

// InputRequest asserts INPUT_REQUESTED plus the given echo/line-mode hint
// bits, after clearing any stale hint bits from a prior request (spec.md
// §4.2). hints must be built from FlagInputEchoOff/FlagInputLineMode.
func (c *Context) InputRequest(hints uint32) {
	if !c.valid() {
		return
	}
	c.Lock()
	defer c.Unlock()
	c.clearFlagBits(requestHintMask)
	c.setFlagBits(region.FlagInputRequested | (hints & requestHintMask))
}

// inputReadNext mirrors ReadNext but drains the input ring, the same
// byte/newline-framed staging discipline applied to the other direction.
func (c *Context) inputReadNext() bool {
	arena := c.inArena()
	size := c.layout.InSize

	c.inStageLen = 0
	c.inStageOff = 0

	moved := false
	for c.inStageLen < MaxEntry-1 {
		head := region.GetU32(c.buf, region.OffInHead)
		tail := region.GetU32(c.buf, region.OffInTail)
		if ringmath.IsEmpty(head, tail) {
			break
		}
		b := arena[tail]
		region.SetU32(c.buf, region.OffInTail, ringmath.AdvanceTail(tail, 1, size))
		c.inStageBuf[c.inStageLen] = b
		c.inStageLen++
		moved = true
		if b == '\n' {
			break
		}
	}

	// INPUT_AVAILABLE clears once the ring has drained to empty (spec.md
	// §3.3: "Firmware when input ring drains").
	head := region.GetU32(c.buf, region.OffInHead)
	tail := region.GetU32(c.buf, region.OffInTail)
	if ringmath.IsEmpty(head, tail) {
		c.clearFlagBits(region.FlagInputAvailable)
	}

	return moved
}

// InputGetc returns the next byte from the input ring, refilling the input
// staging buffer as needed. INPUT_AVAILABLE is cleared once the ring empties.
func (c *Context) InputGetc() (byte, bool) {
	if !c.valid() {
		return 0, false
	}
	c.Lock()
	defer c.Unlock()

	if c.inStageOff >= c.inStageLen {
		if !c.inputReadNext() {
			return 0, false
		}
	}
	b := c.inStageBuf[c.inStageOff]
	c.inStageOff++
	return b, true
}

// InputGets copies up to max bytes from the input ring into buf, returning
// the number of bytes copied. If satisfying the request requires clearing
// INPUT_REQUESTED, callers are expected to have already observed
// INPUT_AVAILABLE go high (the §4.6 PROMPTING→DRAINING transition).
func (c *Context) InputGets(buf []byte, max int) int {
	if max > len(buf) {
		max = len(buf)
	}
	n := 0
	for n < max {
		b, ok := c.InputGetc()
		if !ok {
			break
		}
		buf[n] = b
		n++
		if b == '\n' {
			c.Lock()
			c.clearFlagBits(region.FlagInputRequested)
			c.Unlock()
			break
		}
	}
	return n
}
