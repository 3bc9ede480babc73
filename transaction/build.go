package transaction

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/bartossh/MetroWallet/wallet"
)

// DefaultDeadline is the deadline in minutes used when the request gives none.
const DefaultDeadline = 1440

var ErrPublicKeyMissing = errors.New("public key missing")

// Header holds the header values of a transaction to build.
type Header struct {
	Version        byte
	Timestamp      uint64
	Deadline       int16
	PublicKey      []byte
	Recipient      uint64
	Amount         uint64
	Fee            uint64
	ReferencedHash string
	ECBlockHeight  int32
	ECBlockID      uint64
}

// HeaderFromRequest reads header values given in the request.
// Version, timestamp and fee not given by the request are left to the caller.
func HeaderFromRequest(data Request) (Header, error) {
	h := Header{Version: 1, Deadline: DefaultDeadline, ReferencedHash: data.Get("referencedTransactionFullHash")}

	if !data.Has("publicKey") {
		return Header{}, ErrPublicKeyMissing
	}
	key, err := hex.DecodeString(data.Get("publicKey"))
	if err != nil || len(key) != publicKeyLength {
		return Header{}, fmt.Errorf("%w: publicKey", ErrInvalidValue)
	}
	h.PublicKey = key

	if data.Has("deadline") {
		d, err := strconv.ParseInt(data.Get("deadline"), 10, 16)
		if err != nil {
			return Header{}, errors.Join(ErrInvalidValue, err)
		}
		h.Deadline = int16(d)
	}
	if r := data.Get("recipient"); r != "" {
		id, err := wallet.ParseAccount(r)
		if err != nil {
			return Header{}, err
		}
		h.Recipient = id
	}
	if h.Amount, err = parseUint(data.Get("amountMQT")); err != nil {
		return Header{}, errors.Join(ErrInvalidValue, err)
	}
	if h.Fee, err = parseUint(data.Get("feeMQT")); err != nil {
		return Header{}, errors.Join(ErrInvalidValue, err)
	}
	if data.Has("ecBlockHeight") {
		v, err := strconv.ParseInt(data.Get("ecBlockHeight"), 10, 32)
		if err != nil {
			return Header{}, errors.Join(ErrInvalidValue, err)
		}
		h.ECBlockHeight = int32(v)
	}
	if data.Has("ecBlockId") {
		if h.ECBlockID, err = parseUint(data.Get("ecBlockId")); err != nil {
			return Header{}, errors.Join(ErrInvalidValue, err)
		}
	}
	return h, nil
}

// Build encodes the unsigned transaction of the request type.
// The attachment and the appendices are taken from the request, the signature is left zeroed.
func Build(requestType string, h Header, data Request) ([]byte, error) {
	kind, ok := KindOf(requestType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, requestType)
	}
	if h.Version > 0x0f {
		return nil, fmt.Errorf("%w: transaction version %d", ErrInvalidValue, h.Version)
	}
	flags := ExpectedFlags(data)
	if h.Version == 0 && (flags&^FlagMessage != 0 || (flags != 0 && kind.RequestType != "sendMessage")) {
		return nil, fmt.Errorf("%w: flags %07b", ErrUnsupportedVersion, flags)
	}

	w := &writer{}
	w.buf.Grow(headerLength)
	w.putByte(kind.Type)
	w.putByte(h.Version<<4 | kind.Subtype&0x0f)
	w.putUint64(h.Timestamp)
	w.putInt16(h.Deadline)
	w.putFixed(h.PublicKey, publicKeyLength)
	w.putUint64(h.Recipient)
	w.putFixed(nil, reservedLength)
	w.putUint64(h.Amount)
	w.putUint64(h.Fee)
	w.putHash(h.ReferencedHash)
	w.putFixed(nil, signatureLength)

	if h.Version > 0 {
		w.putInt32(flags)
		w.putInt32(h.ECBlockHeight)
		w.putUint64(h.ECBlockID)
		if kind.Versioned {
			w.putByte(appendixVersion)
		}
	}
	for _, f := range kind.fields {
		encodeField(w, f, data)
	}

	if h.Version > 0 {
		encodeAppendices(w, flags, data)
	} else if flags&FlagMessage != 0 {
		encodePlainMessage(w, data)
	}

	return w.bytes()
}
