package asm

import (
	"encoding/binary"
	"errors"
)

const headerSize = 128

var magic = [4]byte{'N', 'N', 'E', 'P'}

// Header is the .nnep executable header, spec.md §4.6: a fixed 128 bytes
// at offset 0, all multi-byte fields little-endian.
type Header struct {
	Magic     [4]byte
	Version   uint32
	CodeStart uint64
	DataStart uint64
	Size      uint64
	Initial   uint64
}

func (h Header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.CodeStart)
	binary.LittleEndian.PutUint64(buf[16:24], h.DataStart)
	binary.LittleEndian.PutUint64(buf[24:32], h.Size)
	binary.LittleEndian.PutUint64(buf[32:40], h.Initial)
	// buf[40:128] stays zeroed, the reserved region.
	return buf
}

var (
	ErrBadMagic = errors.New("asm: not an NNEP image (bad magic)")
	ErrTruncated = errors.New("asm: image shorter than its header or declared size")
)

// DecodeHeader parses and validates a .nnep image's header (spec.md §4.6
// "The VM refuses images whose magic mismatches or whose declared size is
// inconsistent with the file length"); the disassembler and the VM share
// this check rather than each re-deriving it.
func DecodeHeader(image []byte) (Header, error) {
	if len(image) < headerSize {
		return Header{}, ErrTruncated
	}
	var h Header
	copy(h.Magic[:], image[0:4])
	if h.Magic != magic {
		return Header{}, ErrBadMagic
	}
	h.Version = binary.LittleEndian.Uint32(image[4:8])
	h.CodeStart = binary.LittleEndian.Uint64(image[8:16])
	h.DataStart = binary.LittleEndian.Uint64(image[16:24])
	h.Size = binary.LittleEndian.Uint64(image[24:32])
	h.Initial = binary.LittleEndian.Uint64(image[32:40])
	if h.Size != uint64(len(image)) {
		return Header{}, ErrTruncated
	}
	return h, nil
}
