package transaction

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var (
	ErrFieldMismatch = errors.New("decoded field differs from the request")
	ErrInvalidValue  = errors.New("request value cannot be encoded")
)

const noVote = -128

func mismatch(name string) error {
	return fmt.Errorf("%w: %s", ErrFieldMismatch, name)
}

func indexed(name string, i int) string {
	return fmt.Sprintf("%s%02d", name, i)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

// equalNumber compares two decimal integers by value, so "007" equals "7".
func equalNumber(decoded, requested string) bool {
	d, ok := new(big.Int).SetString(decoded, 10)
	if !ok {
		return false
	}
	r, ok := new(big.Int).SetString(requested, 10)
	if !ok {
		return false
	}
	return d.Cmp(r) == 0
}

// equalByte compares a decoded byte with the requested number truncated to a byte.
// equalByte compares a decoded byte with the requested value.
// A requested value that does not fit one byte, signed or unsigned, never matches.
func equalByte(decoded, requested string) bool {
	d, err := strconv.ParseInt(decoded, 10, 64)
	if err != nil {
		return false
	}
	r, err := parseByte(requested)
	if err != nil {
		return false
	}
	return byte(d) == r
}

// parseByte parses the value into a byte, accepting the range of int8 and uint8.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt8 || v > math.MaxUint8 {
		return 0, fmt.Errorf("%d does not fit one byte", v)
	}
	return byte(v), nil
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

func nonEmpty(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func decodeField(r *reader, f field, out Request) {
	switch f.kind {
	case kindByte:
		out.Set(f.name, formatInt(int64(int8(r.readByte()))))
	case kindInt16:
		out.Set(f.name, formatInt(int64(r.readInt16())))
	case kindInt32:
		out.Set(f.name, formatInt(int64(r.readInt32())))
	case kindUint64:
		out.Set(f.name, formatUint(r.readUint64()))
	case kindString1:
		out.Set(f.name, r.readString1())
	case kindString2:
		out.Set(f.name, r.readString2())
	case kindHash:
		out.Set(f.name, r.readHash())
	case kindPollOptions:
		n := int(r.readByte())
		for i := 0; i < n; i++ {
			out.Set(indexed(f.name, i), r.readString2())
		}
	case kindVotes:
		n := int(r.readByte())
		for i := 0; i < n; i++ {
			out.Set(indexed(f.name, i), formatInt(int64(int8(r.readByte()))))
		}
	case kindApprovalHashes:
		n := int(r.readByte())
		out[f.name] = []string{}
		for i := 0; i < n; i++ {
			out.Add(f.name, r.readHash())
		}
	case kindRevealedSecret:
		n := r.readInt32()
		if n < 0 {
			r.err = fmt.Errorf("%w: negative revealed secret length", ErrUnexpectedEnd)
			return
		}
		out.Set(f.name, hex.EncodeToString(r.readBytes(int(n))))
	case kindEncryptedGoods:
		data, isText := r.readMessage()
		out.Set(f.name+"IsText", formatBool(isText))
		out.Set(f.name+"Data", hex.EncodeToString(data))
		out.Set(f.name+"Nonce", r.readHash())
	case kindPhasingParams:
		decodePhasingParams(r, f.name, out)
	}
}

func compareField(f field, decoded, data Request) error {
	if f.mode == matchIgnore {
		return nil
	}
	want := data.Get(f.name)
	if f.mode == matchZeroDefault {
		switch f.kind {
		case kindByte, kindInt16, kindInt32, kindUint64:
			want = orZero(want)
		}
	}

	switch f.kind {
	case kindByte:
		if !equalByte(decoded.Get(f.name), want) {
			return mismatch(f.name)
		}
	case kindInt16, kindInt32, kindUint64:
		if !equalNumber(decoded.Get(f.name), want) {
			return mismatch(f.name)
		}
	case kindString1, kindString2:
		if decoded.Get(f.name) != want {
			return mismatch(f.name)
		}
	case kindHash:
		if !strings.EqualFold(decoded.Get(f.name), want) {
			return mismatch(f.name)
		}
	case kindPollOptions:
		i := 0
		for ; ; i++ {
			k := indexed(f.name, i)
			if _, ok := decoded[k]; !ok {
				break
			}
			if decoded.Get(k) != data.Get(k) {
				return mismatch(k)
			}
		}
		if data.Has(indexed(f.name, i)) {
			return mismatch(indexed(f.name, i))
		}
	case kindVotes:
		i := 0
		for ; ; i++ {
			k := indexed(f.name, i)
			if _, ok := decoded[k]; !ok {
				break
			}
			v := data.Get(k)
			if v == "" {
				v = formatInt(noVote)
			}
			if !equalNumber(decoded.Get(k), v) {
				return mismatch(k)
			}
		}
		if data.Has(indexed(f.name, i)) {
			return mismatch(indexed(f.name, i))
		}
	case kindApprovalHashes:
		if !equalFoldLists(decoded.Values(f.name), nonEmpty(data.Values(f.name))) {
			return mismatch(f.name)
		}
	case kindRevealedSecret:
		want := strings.ToLower(data.Get("revealedSecret"))
		if want == "" && data.Has("revealedSecretText") {
			want = hex.EncodeToString([]byte(data.Get("revealedSecretText")))
		}
		if decoded.Get(f.name) != want {
			return mismatch(f.name)
		}
	case kindEncryptedGoods:
		if decoded.Get(f.name+"IsText") != formatBool(data.IsTrue(f.name+"IsText")) {
			return mismatch(f.name + "IsText")
		}
		for _, suffix := range []string{"Data", "Nonce"} {
			if !strings.EqualFold(decoded.Get(f.name+suffix), data.Get(f.name+suffix)) {
				return mismatch(f.name + suffix)
			}
		}
	}
	return nil
}

func equalFoldLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func encodeField(w *writer, f field, data Request) {
	if w.err != nil {
		return
	}
	switch f.kind {
	case kindByte:
		v, err := parseByte(orZero(data.Get(f.name)))
		w.check(f.name, err)
		w.putByte(v)
	case kindInt16:
		v, err := parseInt(data.Get(f.name), 16)
		w.check(f.name, err)
		w.putInt16(int16(v))
	case kindInt32:
		v, err := parseInt(data.Get(f.name), 32)
		w.check(f.name, err)
		w.putInt32(int32(v))
	case kindUint64:
		v, err := parseUint(data.Get(f.name))
		w.check(f.name, err)
		w.putUint64(v)
	case kindString1:
		w.putString1(data.Get(f.name))
	case kindString2:
		w.putString2(data.Get(f.name))
	case kindHash:
		w.putHash(data.Get(f.name))
	case kindPollOptions:
		var options []string
		for i := 0; data.Has(indexed(f.name, i)); i++ {
			options = append(options, data.Get(indexed(f.name, i)))
		}
		w.putByte(byte(len(options)))
		for _, o := range options {
			w.putString2(o)
		}
	case kindVotes:
		n := 0
		for k := range data {
			if i, ok := voteIndex(f.name, k); ok && i+1 > n {
				n = i + 1
			}
		}
		w.putByte(byte(n))
		for i := 0; i < n; i++ {
			v := int64(noVote)
			if s := data.Get(indexed(f.name, i)); s != "" {
				var err error
				v, err = parseInt(s, 8)
				w.check(indexed(f.name, i), err)
			}
			w.putByte(byte(int8(v)))
		}
	case kindApprovalHashes:
		hashes := nonEmpty(data.Values(f.name))
		w.putByte(byte(len(hashes)))
		for _, h := range hashes {
			w.putHash(h)
		}
	case kindRevealedSecret:
		secret := []byte(data.Get("revealedSecretText"))
		if data.Has("revealedSecret") {
			var err error
			secret, err = hex.DecodeString(data.Get("revealedSecret"))
			w.check("revealedSecret", err)
		}
		w.putInt32(int32(len(secret)))
		w.putBytes(secret)
	case kindEncryptedGoods:
		goods, err := hex.DecodeString(data.Get(f.name + "Data"))
		w.check(f.name+"Data", err)
		w.putMessage(goods, data.IsTrue(f.name+"IsText"))
		w.putHash(data.Get(f.name + "Nonce"))
	case kindPhasingParams:
		encodePhasingParams(w, data, f.name)
	}
}

func voteIndex(name, key string) (int, bool) {
	if !strings.HasPrefix(key, name) || len(key) != len(name)+2 {
		return 0, false
	}
	i, err := strconv.Atoi(key[len(name):])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func parseInt(s string, bits int) (int64, error) {
	return strconv.ParseInt(orZero(s), 10, bits)
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(orZero(s), 10, 64)
}

func (w *writer) check(name string, err error) {
	if err != nil && w.err == nil {
		w.err = errors.Join(ErrInvalidValue, fmt.Errorf("%s: %w", name, err))
	}
}
