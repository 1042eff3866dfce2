package firmware

import (
	"fmt"
	"os"

	"github.com/choco-technologies/dmlog/internal/region"
)

// SetTransferBudget overrides the busy-wait iteration budget sendf/recvf use
// while waiting for the host to acknowledge a chunk (spec.md §9: "Expose the
// budget as configuration", since loop-iteration timeouts scale with how
// cheap a port's volatile reads are).
func (c *Context) SetTransferBudget(iterations int) {
	c.ftAbortBudget = iterations
}

var errTransferTimeout = fmt.Errorf("firmware: file transfer timed out waiting for host")

// Sendf streams localPath to the host at hostPath in chunkSize pieces
// (spec.md §4.5 Send). The host-visible fields (ft_buf, ft_total, the two
// path fields) are published before the first chunk is asserted.
func (c *Context) Sendf(localPath, hostPath string, chunkSize int) error {
	if !c.valid() {
		return ErrInvalidContext
	}
	if c.mem == nil {
		return fmt.Errorf("firmware: context has no address space to allocate a chunk buffer from")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("firmware: sendf open %s: %w", localPath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("firmware: sendf stat %s: %w", localPath, err)
	}
	if stat.Size() > 0xFFFF_FFFF {
		return fmt.Errorf("firmware: sendf %s: file too large (%d bytes)", localPath, stat.Size())
	}

	ftAddr, chunk := c.mem.Alloc(chunkSize)
	defer c.mem.Unmap(ftAddr)

	c.Lock()
	region.SetU64(c.buf, region.OffFTBuf, ftAddr)
	region.SetU32(c.buf, region.OffFTTotal, uint32(stat.Size()))
	region.SetU32(c.buf, region.OffFTChunkNo, 0)
	pathFW := region.PutPath(localPath)
	pathPC := region.PutPath(hostPath)
	copy(c.buf[region.OffPathFW:region.OffPathFW+region.PathFieldSize], pathFW[:])
	copy(c.buf[region.OffPathPC:region.OffPathPC+region.PathFieldSize], pathPC[:])
	c.Unlock()

	chunkNo := uint32(0)
	for {
		n, readErr := f.Read(chunk)
		if readErr != nil && n == 0 {
			break
		}

		if err := c.sendChunk(chunkNo, chunk[:n]); err != nil {
			c.abortTransfer()
			return err
		}
		chunkNo++

		if n < len(chunk) {
			break
		}
	}

	// Terminal zero-size chunk, the same sentinel recv uses, so the host
	// loop in both directions can stop on the same condition.
	if err := c.sendChunk(chunkNo, nil); err != nil {
		c.abortTransfer()
		return err
	}

	c.Lock()
	c.clearFTSlotsLocked()
	c.Unlock()
	return nil
}

func (c *Context) sendChunk(chunkNo uint32, data []byte) error {
	c.Lock()
	ftAddr := region.GetU64(c.buf, region.OffFTBuf)
	if err := c.mem.Write(ftAddr, data); err != nil {
		c.Unlock()
		return err
	}
	region.SetU32(c.buf, region.OffFTChunkNo, chunkNo)
	region.SetU32(c.buf, region.OffFTChunkSize, uint32(len(data)))
	c.setFlagBits(region.FlagFileSend)
	c.Unlock()

	for i := 0; i < c.ftAbortBudget; i++ {
		if !c.hasFlag(region.FlagFileSend) {
			return nil
		}
	}
	return errTransferTimeout
}

// Recvf receives hostPath from the host into localPath in chunkSize pieces
// (spec.md §4.5 Receive).
func (c *Context) Recvf(localPath, hostPath string, chunkSize int) error {
	if !c.valid() {
		return ErrInvalidContext
	}
	if c.mem == nil {
		return fmt.Errorf("firmware: context has no address space to allocate a chunk buffer from")
	}

	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("firmware: recvf open %s: %w", localPath, err)
	}
	defer f.Close()

	ftAddr, _ := c.mem.Alloc(chunkSize)
	defer c.mem.Unmap(ftAddr)

	c.Lock()
	region.SetU64(c.buf, region.OffFTBuf, ftAddr)
	region.SetU32(c.buf, region.OffFTChunkSize, uint32(chunkSize))
	region.SetU32(c.buf, region.OffFTChunkNo, 0)
	pathFW := region.PutPath(localPath)
	pathPC := region.PutPath(hostPath)
	copy(c.buf[region.OffPathFW:region.OffPathFW+region.PathFieldSize], pathFW[:])
	copy(c.buf[region.OffPathPC:region.OffPathPC+region.PathFieldSize], pathPC[:])
	c.Unlock()

	expected := uint32(0)
	for {
		c.Lock()
		c.setFlagBits(region.FlagFileRecv)
		c.Unlock()

		if err := c.waitForHostClear(region.FlagFileRecv); err != nil {
			c.abortTransfer()
			return err
		}

		c.Lock()
		size := region.GetU32(c.buf, region.OffFTChunkSize)
		gotNo := region.GetU32(c.buf, region.OffFTChunkNo)
		c.Unlock()

		if size == 0 {
			break
		}
		if gotNo != expected {
			c.abortTransfer()
			return fmt.Errorf("firmware: recvf %s: chunk out of order (got %d, want %d)", localPath, gotNo, expected)
		}

		data, err := c.mem.Read(ftAddr, int(size))
		if err != nil {
			c.abortTransfer()
			return err
		}
		if _, err := f.Write(data); err != nil {
			c.abortTransfer()
			return err
		}
		expected++
	}

	c.Lock()
	c.clearFTSlotsLocked()
	c.Unlock()
	return nil
}

func (c *Context) waitForHostClear(bit uint32) error {
	for i := 0; i < c.ftAbortBudget; i++ {
		if !c.hasFlag(bit) {
			return nil
		}
	}
	return errTransferTimeout
}

// abortTransfer zeroes the ft_* and path fields to re-baseline after a
// timeout or error (spec.md §4.5 Failure semantics).
func (c *Context) abortTransfer() {
	c.Lock()
	c.clearFTSlotsLocked()
	c.Unlock()
}

func (c *Context) clearFTSlotsLocked() {
	region.SetU64(c.buf, region.OffFTBuf, 0)
	region.SetU32(c.buf, region.OffFTChunkSize, 0)
	region.SetU32(c.buf, region.OffFTChunkNo, 0)
	region.SetU32(c.buf, region.OffFTTotal, 0)
	var zero [region.PathFieldSize]byte
	copy(c.buf[region.OffPathFW:region.OffPathFW+region.PathFieldSize], zero[:])
	copy(c.buf[region.OffPathPC:region.OffPathPC+region.PathFieldSize], zero[:])
}
