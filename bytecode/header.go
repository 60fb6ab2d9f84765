package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// Blob header layout.
const (
	// HeaderSize is the size of the blob header. The bytecode follows it.
	HeaderSize = 64

	// Magic opens every blob.
	Magic = 0xdbdbdbdb
)

// Header is the fixed prefix of a database blob.
type Header struct {
	Magic    uint32
	Version  uint32 // major<<16 | minor<<8 | patch
	Length   uint64 // whole blob, header included
	Mode     uint32
	Flags    uint32
	Platform uint64
	Checksum uint32
	Offset   uint64 // start of the bytecode
	Size     uint64 // length of the bytecode
}

// MakeVersion packs a version triple.
func MakeVersion(major, minor, patch uint8) uint32 {
	return uint32(major)<<16 | uint32(minor)<<8 | uint32(patch)
}

// VersionString formats a packed version.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16&0xff, v>>8&0xff, v&0xff)
}

// Append encodes h onto dst.
func (h Header) Append(dst []byte) []byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:], h.Magic)
	binary.LittleEndian.PutUint32(b[4:], h.Version)
	binary.LittleEndian.PutUint64(b[8:], h.Length)
	binary.LittleEndian.PutUint32(b[16:], h.Mode)
	binary.LittleEndian.PutUint32(b[20:], h.Flags)
	binary.LittleEndian.PutUint64(b[24:], h.Platform)
	binary.LittleEndian.PutUint32(b[32:], h.Checksum)
	binary.LittleEndian.PutUint64(b[40:], h.Offset)
	binary.LittleEndian.PutUint64(b[48:], h.Size)
	return append(dst, b[:]...)
}

// ParseHeader decodes the header at the start of b. It checks only that
// the fields describe a region inside b; magic, version and the rest are
// left to the caller.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(b))
	}
	h := Header{
		Magic:    binary.LittleEndian.Uint32(b[0:]),
		Version:  binary.LittleEndian.Uint32(b[4:]),
		Length:   binary.LittleEndian.Uint64(b[8:]),
		Mode:     binary.LittleEndian.Uint32(b[16:]),
		Flags:    binary.LittleEndian.Uint32(b[20:]),
		Platform: binary.LittleEndian.Uint64(b[24:]),
		Checksum: binary.LittleEndian.Uint32(b[32:]),
		Offset:   binary.LittleEndian.Uint64(b[40:]),
		Size:     binary.LittleEndian.Uint64(b[48:]),
	}
	return h, nil
}

// Body returns the bytecode h describes within blob.
func (h Header) Body(blob []byte) ([]byte, error) {
	if h.Length > uint64(len(blob)) || h.Offset < HeaderSize || h.Offset > h.Length || h.Size > h.Length-h.Offset {
		return nil, fmt.Errorf("%w: bytecode [%d,+%d) outside blob of %d bytes", ErrCorrupt, h.Offset, h.Size, h.Length)
	}
	return blob[h.Offset : h.Offset+h.Size], nil
}

// Checksum hashes bytecode for the header.
func Checksum(body []byte) uint32 { return murmur3.Sum32(body) }
