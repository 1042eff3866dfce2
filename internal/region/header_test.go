package region

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Magic:       MagicValue,
		Flags:       FlagInputAvailable | FlagFileSend,
		OutHead:     10,
		OutTail:     2,
		OutSize:     512,
		OutBase:     0x2000_0010,
		InHead:      1,
		InTail:      0,
		InSize:      128,
		InBase:      0x2000_0210,
		FTBuf:       0x2000_0300,
		FTChunkSize: 32,
		FTChunkNo:   3,
		FTTotal:     100,
		PathFW:      PutPath("f.bin"),
		PathPC:      PutPath("out.bin"),
	}

	buf := h.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("encoded length = %d, want %d", len(buf), HeaderSize)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, h)
	}
	if !got.Valid() {
		t.Fatalf("decoded header should be Valid()")
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	if err == nil {
		t.Fatal("expected error decoding short buffer")
	}
}

func TestHeaderLittleEndian(t *testing.T) {
	h := Header{Magic: MagicValue}
	buf := h.Encode()
	want := []byte{0x4F, 0x4C, 0x4D, 0x44} // "DMLO" reversed = LE of 0x444D4C4F
	if !bytes.Equal(buf[:4], want) {
		t.Fatalf("magic bytes = % x, want % x", buf[:4], want)
	}
}

func TestPathStringTruncatesAtNUL(t *testing.T) {
	field := PutPath("short.bin")
	if got := PathString(field); got != "short.bin" {
		t.Fatalf("PathString = %q, want %q", got, "short.bin")
	}
}

func TestRawOffsetsMatchEncode(t *testing.T) {
	h := Header{
		Magic:   MagicValue,
		Flags:   FlagBusy,
		OutHead: 7,
		InBase:  0x1122_3344_5566_7788,
	}
	buf := h.Encode()
	if GetU32(buf, OffMagic) != h.Magic {
		t.Fatal("OffMagic mismatch")
	}
	if GetU32(buf, OffFlags) != h.Flags {
		t.Fatal("OffFlags mismatch")
	}
	if GetU32(buf, OffOutHead) != h.OutHead {
		t.Fatal("OffOutHead mismatch")
	}
	if GetU64(buf, OffInBase) != h.InBase {
		t.Fatal("OffInBase mismatch")
	}
	if OffPathPC+PathFieldSize != HeaderSize {
		t.Fatalf("OffPathPC+PathFieldSize = %d, want HeaderSize %d", OffPathPC+PathFieldSize, HeaderSize)
	}
}

func TestPutPathTruncatesOverlongInput(t *testing.T) {
	long := make([]byte, PathFieldSize+50)
	for i := range long {
		long[i] = 'a'
	}
	field := PutPath(string(long))
	if field[PathFieldSize-1] != 0 {
		t.Fatalf("expected terminator byte, got %q", field[PathFieldSize-1])
	}
	s := PathString(field)
	if len(s) != PathFieldSize-1 {
		t.Fatalf("len(PathString) = %d, want %d", len(s), PathFieldSize-1)
	}
}
