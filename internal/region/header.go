// Package region models the packed control header that begins the shared
// memory region: a fixed-offset, little-endian struct followed immediately
// by the output ring arena and then the input ring arena.
package region

import "encoding/binary"

// MagicValue identifies an initialized region. Spelled "DMLO" in ASCII.
const MagicValue uint32 = 0x444D4C4F

// Flag bits, independently asserted in Header.Flags.
const (
	FlagClearBuffer     uint32 = 1 << 0
	FlagBusy            uint32 = 1 << 1
	FlagInputAvailable  uint32 = 1 << 2
	FlagInputRequested  uint32 = 1 << 3
	FlagInputEchoOff    uint32 = 1 << 4
	FlagInputLineMode   uint32 = 1 << 5
	FlagFileSend        uint32 = 1 << 6
	FlagFileRecv        uint32 = 1 << 7
)

// PathFieldSize is the width, in bytes, of each NUL-terminated path field.
const PathFieldSize = 256

// HeaderSize is the packed, padding-free byte size of Header.
const HeaderSize = 4 + 4 + 4 + 4 + 4 + 8 + 4 + 4 + 4 + 8 + 8 + 4 + 4 + 4 + PathFieldSize + PathFieldSize

// Byte offsets of each header field within the packed wire layout. Exported
// so callers that must touch a single field in place (publishing out_head
// without re-encoding the whole header, for instance) can do so without
// going through Encode/Decode.
const (
	OffMagic       = 0
	OffFlags       = OffMagic + 4
	OffOutHead     = OffFlags + 4
	OffOutTail     = OffOutHead + 4
	OffOutSize     = OffOutTail + 4
	OffOutBase     = OffOutSize + 4
	OffInHead      = OffOutBase + 8
	OffInTail      = OffInHead + 4
	OffInSize      = OffInTail + 4
	OffInBase      = OffInSize + 4
	OffFTBuf       = OffInBase + 8
	OffFTChunkSize = OffFTBuf + 8
	OffFTChunkNo   = OffFTChunkSize + 4
	OffFTTotal     = OffFTChunkNo + 4
	OffPathFW      = OffFTTotal + 4
	OffPathPC      = OffPathFW + PathFieldSize
)

// GetU32 reads a little-endian uint32 at the given offset within buf.
func GetU32(buf []byte, off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

// SetU32 writes a little-endian uint32 at the given offset within buf.
func SetU32(buf []byte, off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }

// GetU64 reads a little-endian uint64 at the given offset within buf.
func GetU64(buf []byte, off int) uint64 { return binary.LittleEndian.Uint64(buf[off:]) }

// SetU64 writes a little-endian uint64 at the given offset within buf.
func SetU64(buf []byte, off int, v uint64) { binary.LittleEndian.PutUint64(buf[off:], v) }

// Header is the in-memory representation of the packed control header
// described in spec.md §3.1. Field order matches the wire layout exactly;
// Encode/Decode never rely on Go struct layout or padding.
type Header struct {
	Magic       uint32
	Flags       uint32
	OutHead     uint32
	OutTail     uint32
	OutSize     uint32
	OutBase     uint64
	InHead      uint32
	InTail      uint32
	InSize      uint32
	InBase      uint64
	FTBuf       uint64
	FTChunkSize uint32
	FTChunkNo   uint32
	FTTotal     uint32
	PathFW      [PathFieldSize]byte
	PathPC      [PathFieldSize]byte
}

// Valid reports whether h carries the expected magic sentinel.
func (h *Header) Valid() bool {
	return h != nil && h.Magic == MagicValue
}

// Encode serializes h into its packed little-endian wire form.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	off := 0
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:], v)
		off += 8
	}
	putU32(h.Magic)
	putU32(h.Flags)
	putU32(h.OutHead)
	putU32(h.OutTail)
	putU32(h.OutSize)
	putU64(h.OutBase)
	putU32(h.InHead)
	putU32(h.InTail)
	putU32(h.InSize)
	putU64(h.InBase)
	putU64(h.FTBuf)
	putU32(h.FTChunkSize)
	putU32(h.FTChunkNo)
	putU32(h.FTTotal)
	copy(buf[off:], h.PathFW[:])
	off += PathFieldSize
	copy(buf[off:], h.PathPC[:])
	off += PathFieldSize
	return buf
}

// Decode parses a packed little-endian header from buf, which must be at
// least HeaderSize bytes long.
func Decode(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, errShortHeader
	}
	off := 0
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		return v
	}
	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off:])
		off += 8
		return v
	}
	h.Magic = getU32()
	h.Flags = getU32()
	h.OutHead = getU32()
	h.OutTail = getU32()
	h.OutSize = getU32()
	h.OutBase = getU64()
	h.InHead = getU32()
	h.InTail = getU32()
	h.InSize = getU32()
	h.InBase = getU64()
	h.FTBuf = getU64()
	h.FTChunkSize = getU32()
	h.FTChunkNo = getU32()
	h.FTTotal = getU32()
	copy(h.PathFW[:], buf[off:off+PathFieldSize])
	off += PathFieldSize
	copy(h.PathPC[:], buf[off:off+PathFieldSize])
	off += PathFieldSize
	return h, nil
}

// PathString trims a NUL-terminated fixed-width path field to a Go string.
func PathString(field [PathFieldSize]byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field[:])
}

// PutPath copies s into a fixed-width NUL-terminated path field, truncating
// if s is too long to leave room for the terminator.
func PutPath(s string) [PathFieldSize]byte {
	var field [PathFieldSize]byte
	n := len(s)
	if n > PathFieldSize-1 {
		n = PathFieldSize - 1
	}
	copy(field[:], s[:n])
	return field
}
