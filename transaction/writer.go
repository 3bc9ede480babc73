package transaction

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

var ErrValueTooLong = errors.New("value too long for its length prefix")

// writer is the counterpart of reader, the first failure sticks.
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) putByte(b byte) {
	if w.err == nil {
		w.buf.WriteByte(b)
	}
}

func (w *writer) putInt16(v int16) {
	if w.err == nil {
		w.buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(v)))
	}
}

func (w *writer) putInt32(v int32) {
	if w.err == nil {
		w.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
	}
}

func (w *writer) putUint64(v uint64) {
	if w.err == nil {
		w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
	}
}

func (w *writer) putBytes(b []byte) {
	if w.err == nil {
		w.buf.Write(b)
	}
}

// putFixed writes exactly n bytes of b, padding with zeros.
func (w *writer) putFixed(b []byte, n int) {
	if w.err != nil {
		return
	}
	if len(b) > n {
		w.err = fmt.Errorf("%w: %d bytes where %d expected", ErrValueTooLong, len(b), n)
		return
	}
	w.buf.Write(b)
	w.buf.Write(make([]byte, n-len(b)))
}

// putHash writes hex encoded 32 bytes, empty value writes zeros.
func (w *writer) putHash(h string) {
	if w.err != nil {
		return
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		w.err = err
		return
	}
	w.putFixed(raw, hashLength)
}

func (w *writer) putString1(s string) {
	if len(s) > math.MaxUint8 {
		w.fail(len(s))
		return
	}
	w.putByte(byte(len(s)))
	w.putBytes([]byte(s))
}

func (w *writer) putString2(s string) {
	if len(s) > math.MaxUint16 {
		w.fail(len(s))
		return
	}
	w.putInt16(int16(uint16(len(s))))
	w.putBytes([]byte(s))
}

func (w *writer) putMessage(content []byte, isText bool) {
	if len(content) > math.MaxInt32 {
		w.fail(len(content))
		return
	}
	l := int32(len(content))
	if isText {
		l |= math.MinInt32
	}
	w.putInt32(l)
	w.putBytes(content)
}

func (w *writer) fail(n int) {
	if w.err == nil {
		w.err = fmt.Errorf("%w: %d", ErrValueTooLong, n)
	}
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
