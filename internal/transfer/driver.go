// Package transfer implements the host side of the file-transfer protocol
// (spec.md §4.5): chunked reads from / writes to target memory, driven
// whenever the monitor observes FILE_SEND or FILE_RECV asserted in a
// snapshot of the shared region header.
package transfer

import (
	"context"
	"fmt"
	"os"

	"github.com/choco-technologies/dmlog/internal/probe"
	"github.com/choco-technologies/dmlog/internal/region"
)

// Driver serves both transfer directions against a probe.Backend. It holds
// no protocol state between calls: each ServeSend/ServeRecv call runs one
// transfer to completion (or failure), polling the backend for the
// firmware-side chunk handshake.
type Driver struct {
	Backend probe.Backend

	// PollBudget bounds how many times the driver re-reads the flag word
	// waiting for firmware to publish a chunk (Send) or request one (Recv),
	// mirroring firmware's own loop-iteration budget (spec.md §9).
	PollBudget int
}

// New returns a Driver with a sensible default poll budget.
func New(backend probe.Backend) *Driver {
	return &Driver{Backend: backend, PollBudget: 1_000_000}
}

var errTransferTimeout = fmt.Errorf("transfer: timed out waiting for firmware")

// ServeSend drains a FILE_SEND transfer: firmware publishes chunks at the
// address held in ft_buf, the driver appends each to localPath, and stops once it
// observes the terminal zero-size chunk.
func (d *Driver) ServeSend(ctx context.Context, headerAddr uint64, localPath string) error {
	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("transfer: opening %s: %w", localPath, err)
	}
	defer f.Close()

	for {
		if err := d.waitForFlag(ctx, headerAddr, region.FlagFileSend); err != nil {
			return err
		}
		hdr, err := d.readHeader(ctx, headerAddr)
		if err != nil {
			return err
		}
		if hdr.FTChunkSize == 0 {
			return d.ackFlag(ctx, headerAddr, region.FlagFileSend)
		}
		data, err := d.Backend.ReadMemory(ctx, hdr.FTBuf, int(hdr.FTChunkSize))
		if err != nil {
			return fmt.Errorf("transfer: reading chunk %d: %w", hdr.FTChunkNo, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("transfer: writing %s: %w", localPath, err)
		}
		if err := d.ackFlag(ctx, headerAddr, region.FlagFileSend); err != nil {
			return err
		}
	}
}

// ServeRecv drives a FILE_RECV transfer: the driver reads localPath in
// chunkSize pieces, writing each to ft_buf and publishing ft_chunk_size/
// ft_chunk_no before clearing FILE_RECV, finishing with a zero-size chunk.
func (d *Driver) ServeRecv(ctx context.Context, headerAddr uint64, localPath string, chunkSize int) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("transfer: opening %s: %w", localPath, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	chunkNo := uint32(0)
	for {
		if err := d.waitForFlag(ctx, headerAddr, region.FlagFileRecv); err != nil {
			return err
		}
		hdr, err := d.readHeader(ctx, headerAddr)
		if err != nil {
			return err
		}

		n, readErr := f.Read(buf)
		if readErr != nil && n == 0 {
			if err := d.writeChunk(ctx, hdr.FTBuf, headerAddr, chunkNo, nil); err != nil {
				return err
			}
			return nil
		}
		if err := d.writeChunk(ctx, hdr.FTBuf, headerAddr, chunkNo, buf[:n]); err != nil {
			return err
		}
		chunkNo++
		if n < len(buf) {
			if err := d.waitForFlag(ctx, headerAddr, region.FlagFileRecv); err != nil {
				return err
			}
			hdr, err := d.readHeader(ctx, headerAddr)
			if err != nil {
				return err
			}
			return d.writeChunk(ctx, hdr.FTBuf, headerAddr, chunkNo, nil)
		}
	}
}

func (d *Driver) writeChunk(ctx context.Context, ftBuf, headerAddr uint64, chunkNo uint32, data []byte) error {
	if len(data) > 0 {
		if err := d.Backend.WriteMemory(ctx, ftBuf, data); err != nil {
			return fmt.Errorf("transfer: writing chunk %d: %w", chunkNo, err)
		}
	}
	if err := d.Backend.WriteMemory(ctx, headerAddr+region.OffFTChunkSize, encodeU32(uint32(len(data)))); err != nil {
		return err
	}
	if err := d.Backend.WriteMemory(ctx, headerAddr+region.OffFTChunkNo, encodeU32(chunkNo)); err != nil {
		return err
	}
	return d.ackFlag(ctx, headerAddr, region.FlagFileRecv)
}

// waitForFlag polls until bit is set in the header's flags word.
func (d *Driver) waitForFlag(ctx context.Context, headerAddr uint64, bit uint32) error {
	for i := 0; i < d.PollBudget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := d.Backend.ReadMemory(ctx, headerAddr+region.OffFlags, 4)
		if err != nil {
			return fmt.Errorf("transfer: reading flags: %w", err)
		}
		if decodeU32(raw)&bit != 0 {
			return nil
		}
	}
	return errTransferTimeout
}

// ackFlag clears bit in the header's flags word, the host's acknowledgement
// that it consumed or published a chunk.
func (d *Driver) ackFlag(ctx context.Context, headerAddr uint64, bit uint32) error {
	raw, err := d.Backend.ReadMemory(ctx, headerAddr+region.OffFlags, 4)
	if err != nil {
		return fmt.Errorf("transfer: reading flags: %w", err)
	}
	cleared := decodeU32(raw) &^ bit
	return d.Backend.WriteMemory(ctx, headerAddr+region.OffFlags, encodeU32(cleared))
}

// snapshotHeader is the handful of fields a transfer step needs, read
// straight out of probe memory rather than through a region.Header decode,
// since only ft_* fields change mid-transfer.
type snapshotHeader struct {
	FTBuf       uint64
	FTChunkSize uint32
	FTChunkNo   uint32
}

func (d *Driver) readHeader(ctx context.Context, headerAddr uint64) (snapshotHeader, error) {
	raw, err := d.Backend.ReadMemory(ctx, headerAddr+region.OffFTBuf, 8+4+4)
	if err != nil {
		return snapshotHeader{}, fmt.Errorf("transfer: reading ft header fields: %w", err)
	}
	return snapshotHeader{
		FTBuf:       decodeU64(raw[0:8]),
		FTChunkSize: decodeU32(raw[8:12]),
		FTChunkNo:   decodeU32(raw[12:16]),
	}, nil
}
