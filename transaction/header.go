package transaction

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	headerLengthV0  = 168
	headerLength    = 184
	signatureLength = 64
	reservedLength  = 4
)

var (
	ErrUnknownRequestType = errors.New("unknown transaction request type")
	ErrTypeMismatch       = errors.New("transaction type or subtype differs from the request type")
	ErrTrailingBytes      = errors.New("unexpected bytes after the transaction")
)

// Decoded is the transaction decoded from the unsigned bytes.
type Decoded struct {
	Type           byte
	Subtype        byte
	Version        byte
	Timestamp      uint64
	Deadline       int16
	PublicKey      string
	Recipient      uint64
	Amount         uint64
	Fee            uint64
	ReferencedHash string
	Flags          int32
	ECBlockHeight  int32
	ECBlockID      uint64
	// Attachment holds the attachment and the appendix fields under their request names.
	Attachment Request

	phasingAt map[string]int // start of each phasing parameters block by prefix
}

// Decode decodes the transaction bytes laid out for the request type.
// The type and subtype must belong to the request type, all bytes must be consumed.
func Decode(raw []byte, requestType string) (Decoded, error) {
	kind, ok := KindOf(requestType)
	if !ok {
		return Decoded{}, fmt.Errorf("%w: %s", ErrUnknownRequestType, requestType)
	}
	if len(raw) < headerLengthV0 {
		return Decoded{}, fmt.Errorf("%w: %d bytes", ErrUnexpectedEnd, len(raw))
	}

	r := newReader(raw, 0)
	var d Decoded
	d.Type = r.readByte()
	vs := r.readByte()
	d.Version = vs >> 4
	d.Subtype = vs & 0x0f
	if d.Type != kind.Type || d.Subtype != kind.Subtype {
		return Decoded{}, fmt.Errorf("%w: %d/%d for %s", ErrTypeMismatch, d.Type, d.Subtype, requestType)
	}

	d.Timestamp = r.readUint64()
	d.Deadline = r.readInt16()
	d.PublicKey = hex.EncodeToString(r.readBytes(publicKeyLength))
	d.Recipient = r.readUint64()
	r.readBytes(reservedLength)
	d.Amount = r.readUint64()
	d.Fee = r.readUint64()
	d.ReferencedHash = r.readHash()
	if d.ReferencedHash == zeroHash {
		d.ReferencedHash = ""
	}
	r.readBytes(signatureLength)

	if d.Version > 0 {
		d.Flags = r.readInt32()
		d.ECBlockHeight = r.readInt32()
		d.ECBlockID = r.readUint64()
	}

	d.Attachment = make(Request)
	d.phasingAt = make(map[string]int)
	if kind.Versioned && d.Version > 0 {
		r.readByte()
	}
	for _, f := range kind.fields {
		if f.kind == kindPhasingParams {
			d.phasingAt[f.name] = r.pos
		}
		decodeField(r, f, d.Attachment)
	}

	if d.Version > 0 {
		if d.Flags&^knownFlags != 0 {
			return Decoded{}, fmt.Errorf("%w: %b", ErrUnknownFlags, d.Flags&^knownFlags)
		}
		decodeAppendices(r, d.Flags, d.Attachment, d.phasingAt)
	} else if kind.RequestType == "sendMessage" && r.remaining() > 0 {
		decodePlainMessage(r, d.Attachment)
	}

	if r.err != nil {
		return Decoded{}, r.err
	}
	if r.remaining() > 0 {
		return Decoded{}, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, r.remaining())
	}
	return d, nil
}

var zeroHash = hex.EncodeToString(make([]byte, hashLength))
