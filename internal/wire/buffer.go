package wire

import (
	"encoding/binary"
	"fmt"
)

// Security limits mirrored from the teacher's internal/packet/parser.go,
// which cites Unbound's CVE-2024-8508 mitigation for these exact values.
const (
	maxCompressionDepth = 20
	maxDomainLength      = 255
	maxLabelLength       = 63

	// MaxMessageSize is the largest DNS message this codec will attempt
	// to parse, matching the TCP length-prefix field's range.
	MaxMessageSize = 65535
)

// Buffer is a cursor-based reader/writer over a contiguous byte region,
// built on the standard library alone with no third-party buffer type.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps an existing byte slice for reading.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// NewWriteBuffer returns an empty Buffer ready for writing, with cap
// bytes of backing capacity preallocated.
func NewWriteBuffer(cap int) *Buffer {
	return &Buffer{data: make([]byte, 0, cap)}
}

// Bytes returns the buffer's current backing content.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the total number of bytes held by the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Tell returns the current cursor offset.
func (b *Buffer) Tell() int { return b.pos }

// Remaining returns the number of unread bytes ahead of the cursor.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// Seek moves the cursor to an absolute offset. It is valid to seek
// anywhere within [0, Len()]; attempting to seek to write new data must
// still go through Write*, which always appends.
func (b *Buffer) Seek(abs int) error {
	if abs < 0 || abs > len(b.data) {
		return fmt.Errorf("%w: seek %d out of range [0,%d]", ErrBuffer, abs, len(b.data))
	}
	b.pos = abs
	return nil
}

// ReadBytes reads and returns the next n bytes, advancing the cursor. The
// returned slice is a fresh copy; the caller never holds a pointer back
// into the source buffer.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || b.pos+n > len(b.data) {
		return nil, fmt.Errorf("%w: read %d bytes at %d exceeds length %d", ErrBuffer, n, b.pos, len(b.data))
	}
	out := make([]byte, n)
	copy(out, b.data[b.pos:b.pos+n])
	b.pos += n
	return out, nil
}

// PeekByte returns the byte at the given absolute offset without moving
// the cursor.
func (b *Buffer) PeekByte(at int) (byte, error) {
	if at < 0 || at >= len(b.data) {
		return 0, fmt.Errorf("%w: peek at %d exceeds length %d", ErrBuffer, at, len(b.data))
	}
	return b.data[at], nil
}

// ReadUint8 reads one byte as an unsigned integer.
func (b *Buffer) ReadUint8() (uint8, error) {
	v, err := b.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadUint16 reads a big-endian 16-bit unsigned integer.
func (b *Buffer) ReadUint16() (uint16, error) {
	v, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(v), nil
}

// ReadUint32 reads a big-endian 32-bit unsigned integer.
func (b *Buffer) ReadUint32() (uint32, error) {
	v, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}

// WriteBytes appends raw bytes at the end of the buffer. Buffer only
// supports append-writes at the cursor tail; backpatching existing bytes
// goes through PackUint16At.
func (b *Buffer) WriteBytes(p []byte) {
	b.data = append(b.data, p...)
	b.pos = len(b.data)
}

// WriteUint8 appends a single byte.
func (b *Buffer) WriteUint8(v uint8) {
	b.WriteBytes([]byte{v})
}

// WriteUint16 appends a big-endian 16-bit unsigned integer.
func (b *Buffer) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.WriteBytes(tmp[:])
}

// WriteUint32 appends a big-endian 32-bit unsigned integer.
func (b *Buffer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.WriteBytes(tmp[:])
}

// PackUint16At overwrites two already-written bytes at an absolute
// offset. This is how RR encoding backpatches the RDLENGTH placeholder
// once the RDATA's true length is known.
func (b *Buffer) PackUint16At(abs int, v uint16) error {
	if abs < 0 || abs+2 > len(b.data) {
		return fmt.Errorf("%w: patch at %d exceeds written length %d", ErrBuffer, abs, len(b.data))
	}
	binary.BigEndian.PutUint16(b.data[abs:abs+2], v)
	return nil
}
