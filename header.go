package sfcb

import "encoding/binary"

// headerSize is the on-media element header's fixed length (§3.3).
const headerSize = 12

// elementHeader is the 12-byte record prefix written at the start of an
// element's first page: the owning queue's magic, the record's sequence
// id, and a reserved copy field left zero on media.
type elementHeader struct {
	Magic     uint32
	ID        uint32
	MagicCopy uint32
}

// encodeHeader writes magic/id into buf[:headerSize], zero-initializing
// the struct first and leaving the reserved copy field at zero — matching
// sfcb_add's memset-then-assign-magic-and-id on-media layout.
func encodeHeader(buf []byte, magic, id uint32) {
	for i := 0; i < headerSize; i++ {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[0:4], magic)
	binary.BigEndian.PutUint32(buf[4:8], id)
}

// decodeHeader reads a headerSize-byte on-media header.
func decodeHeader(buf []byte) elementHeader {
	return elementHeader{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		ID:        binary.BigEndian.Uint32(buf[4:8]),
		MagicCopy: binary.BigEndian.Uint32(buf[8:12]),
	}
}

// headerErased reports whether buf[:headerSize] is an erased (all-0xFF)
// header, i.e. the page it prefixes has never been programmed.
func headerErased(buf []byte) bool {
	for i := 0; i < headerSize; i++ {
		if buf[i] != 0xFF {
			return false
		}
	}
	return true
}
