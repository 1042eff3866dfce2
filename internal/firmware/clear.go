package firmware

import "github.com/choco-technologies/dmlog/internal/region"

// Clear zeros both ring offsets, all staging buffers and both arenas, and
// clears CLEAR_BUFFER, INPUT_AVAILABLE, INPUT_REQUESTED, FILE_SEND,
// FILE_RECV plus all file-transfer slots (spec.md §4.2).
func (c *Context) Clear() {
	if !c.valid() {
		return
	}
	c.Lock()
	defer c.Unlock()
	c.clearLocked()
}

func (c *Context) clearLocked() {
	region.SetU32(c.buf, region.OffOutHead, 0)
	region.SetU32(c.buf, region.OffOutTail, 0)
	region.SetU32(c.buf, region.OffInHead, 0)
	region.SetU32(c.buf, region.OffInTail, 0)

	c.writeOff = 0
	c.outStageLen = 0
	c.outStageOff = 0
	c.inStageLen = 0
	c.inStageOff = 0
	for i := range c.writeBuf {
		c.writeBuf[i] = 0
	}
	for i := range c.outStageBuf {
		c.outStageBuf[i] = 0
	}
	for i := range c.inStageBuf {
		c.inStageBuf[i] = 0
	}

	outArena := c.outArena()
	for i := range outArena {
		outArena[i] = 0
	}
	inArena := c.inArena()
	for i := range inArena {
		inArena[i] = 0
	}

	c.clearFlagBits(region.FlagClearBuffer | region.FlagInputAvailable | region.FlagInputRequested | region.FlagFileSend | region.FlagFileRecv)
	c.clearFTSlotsLocked()
}
