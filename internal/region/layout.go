package region

import "fmt"

// inputFallbackDivisor implements the "20%-of-total fallback" rule of
// spec.md §3.5: when the configured input arena size leaves no room for the
// output arena, the input arena is resized to (total-HeaderSize)/5 instead.
const inputFallbackDivisor = 5

// Layout describes how a region of Total bytes is partitioned into the
// header and the two ring arenas.
type Layout struct {
	Total      uint32
	OutBase    uint64
	OutSize    uint32
	InBase     uint64
	InSize     uint32
	FellBack   bool // true if the configured input size was replaced by the 20% fallback
}

// NewLayout computes the arena partition for a region of the given total
// size, based at regionAddr, given a configured input-arena size. When
// wantInputSize leaves no space for a non-empty output arena
// (wantInputSize >= Total-HeaderSize), or is 0, it falls back to
// (Total-HeaderSize)/5 per B3.
func NewLayout(regionAddr uint64, total uint32, wantInputSize uint32) (Layout, error) {
	if total <= HeaderSize {
		return Layout{}, fmt.Errorf("region: total size %d too small for header (%d)", total, HeaderSize)
	}
	available := total - HeaderSize
	inSize := wantInputSize
	fellBack := false
	if inSize == 0 || inSize >= available {
		inSize = available / inputFallbackDivisor
		fellBack = true
	}
	if inSize == 0 || inSize >= available {
		return Layout{}, fmt.Errorf("region: total size %d leaves no room for either arena", total)
	}
	outSize := available - inSize

	outBase := regionAddr + uint64(HeaderSize)
	inBase := outBase + uint64(outSize)

	return Layout{
		Total:    total,
		OutBase:  outBase,
		OutSize:  outSize,
		InBase:   inBase,
		InSize:   inSize,
		FellBack: fellBack,
	}, nil
}
