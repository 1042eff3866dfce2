package transfer

import "encoding/binary"

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func decodeU64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}
