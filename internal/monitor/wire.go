package monitor

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/choco-technologies/dmlog/internal/probe"
	"github.com/choco-technologies/dmlog/internal/region"
)

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func readFlags(ctx context.Context, backend probe.Backend, headerAddr uint64) (uint32, error) {
	raw, err := backend.ReadMemory(ctx, headerAddr+region.OffFlags, 4)
	if err != nil {
		return 0, fmt.Errorf("monitor: reading flags: %w", err)
	}
	return decodeU32(raw), nil
}

func setFlagBits(ctx context.Context, backend probe.Backend, headerAddr uint64, bits uint32) error {
	flags, err := readFlags(ctx, backend, headerAddr)
	if err != nil {
		return err
	}
	return backend.WriteMemory(ctx, headerAddr+region.OffFlags, encodeU32(flags|bits))
}

func clearFlagBits(ctx context.Context, backend probe.Backend, headerAddr uint64, bits uint32) error {
	flags, err := readFlags(ctx, backend, headerAddr)
	if err != nil {
		return err
	}
	return backend.WriteMemory(ctx, headerAddr+region.OffFlags, encodeU32(flags&^bits))
}
