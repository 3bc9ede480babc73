package transaction

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrUnexpectedEnd = errors.New("unexpected end of transaction bytes")

// reader reads little endian values from transaction bytes at the current position.
// The first failure sticks, every following read returns zero values.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte, pos int) *reader {
	r := &reader{buf: buf, pos: pos}
	if pos < 0 || pos > len(buf) {
		r.err = fmt.Errorf("%w: position %d of %d", ErrUnexpectedEnd, pos, len(buf))
	}
	return r
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.pos < n {
		r.err = fmt.Errorf("%w: need %d bytes at %d of %d", ErrUnexpectedEnd, n, r.pos, len(r.buf))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) readByte() byte {
	if b := r.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) readInt16() int16 {
	if b := r.next(2); b != nil {
		return int16(binary.LittleEndian.Uint16(b))
	}
	return 0
}

func (r *reader) readInt32() int32 {
	if b := r.next(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *reader) readUint64() uint64 {
	if b := r.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) readBytes(n int) []byte {
	b := r.next(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// readHash reads 32 bytes as lower case hex.
func (r *reader) readHash() string {
	return hex.EncodeToString(r.readBytes(hashLength))
}

// readString1 reads string prefixed with one byte length.
func (r *reader) readString1() string {
	n := int(r.readByte())
	return string(r.readBytes(n))
}

// readString2 reads string prefixed with two byte length.
func (r *reader) readString2() string {
	n := int(uint16(r.readInt16()))
	return string(r.readBytes(n))
}

// readMessage reads int32 length with the text bit and the content.
func (r *reader) readMessage() (content []byte, isText bool) {
	l := r.readInt32()
	isText = l < 0
	n := int(l & 0x7fffffff)
	return r.readBytes(n), isText
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}
