package monitor

import (
	"context"
	"fmt"

	"github.com/choco-technologies/dmlog/internal/probe"
	"github.com/choco-technologies/dmlog/internal/region"
	"github.com/choco-technologies/dmlog/internal/ringmath"
)

// injectInput writes as much of data into the input ring as free space
// allows (spec.md §4.4), publishes in_head, then sets INPUT_AVAILABLE, and
// returns how many bytes were actually consumed so the caller can requeue
// the remainder on a later tick (the "split across ticks" rule of §7).
//
// headerAddr is the shared region's base address; inHead/inTail/inSize/
// inBase describe the input arena as observed in the most recent header
// snapshot.
func injectInput(ctx context.Context, backend probe.Backend, headerAddr uint64, inHead, inTail, inSize uint32, inBase uint64, data []byte) (int, error) {
	free := ringmath.Free(inHead, inTail, inSize)
	n := len(data)
	if uint32(n) > free {
		n = int(free)
	}
	if n == 0 {
		return 0, nil
	}

	spans := ringmath.SplitForWrite(inHead, uint32(n), inSize)
	written := 0
	for _, span := range spans {
		chunk := data[written : written+int(span.Len)]
		if err := backend.WriteMemory(ctx, inBase+uint64(span.Offset), chunk); err != nil {
			return written, fmt.Errorf("monitor: writing input span at offset %d: %w", span.Offset, err)
		}
		written += int(span.Len)
	}

	newHead := ringmath.AdvanceHead(inHead, uint32(n), inSize)
	if err := backend.WriteMemory(ctx, headerAddr+region.OffInHead, encodeU32(newHead)); err != nil {
		return n, fmt.Errorf("monitor: publishing in_head: %w", err)
	}

	// INPUT_REQUESTED is cleared by the caller only after this call
	// returns, so firmware never observes the request-satisfied
	// transition against an empty ring (spec.md §4.4 closing paragraph).
	if err := setFlagBits(ctx, backend, headerAddr, region.FlagInputAvailable); err != nil {
		return n, err
	}
	return n, nil
}
