package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Appendix flags, each bit gates one optional section after the attachment.
const (
	FlagMessage int32 = 1 << iota
	FlagEncryptedMessage
	FlagRecipientPublicKey
	FlagEncryptToSelfMessage
	FlagPhasing
	FlagPrunablePlainMessage
	FlagPrunableEncryptedMessage
)

const knownFlags = FlagMessage | FlagEncryptedMessage | FlagRecipientPublicKey |
	FlagEncryptToSelfMessage | FlagPhasing | FlagPrunablePlainMessage | FlagPrunableEncryptedMessage

const appendixVersion = 1

var (
	ErrUnknownFlags       = errors.New("unknown appendix flags")
	ErrFlagMismatch       = errors.New("appendix flags differ from the request")
	ErrUnsupportedVersion = errors.New("appendix not supported by transaction version")
)

// ExpectedFlags returns the appendix flags implied by the request.
// Prunable messages are expected as hash only sections instead of the full message.
func ExpectedFlags(data Request) int32 {
	var flags int32
	if data.Has("message") {
		if data.IsTrue("messageIsPrunable") {
			flags |= FlagPrunablePlainMessage
		} else {
			flags |= FlagMessage
		}
	}
	if data.Has("encryptedMessageData") {
		if data.IsTrue("encryptedMessageIsPrunable") {
			flags |= FlagPrunableEncryptedMessage
		} else {
			flags |= FlagEncryptedMessage
		}
	}
	if data.Has("recipientPublicKey") {
		flags |= FlagRecipientPublicKey
	}
	if data.Has("encryptToSelfMessageData") {
		flags |= FlagEncryptToSelfMessage
	}
	if data.IsTrue("phasing") {
		flags |= FlagPhasing
	}
	return flags
}

// PlainMessageHash computes the hash of a prunable plain message.
func PlainMessageHash(content []byte, isText bool) string {
	h := sha256.New()
	h.Write([]byte{boolByte(isText)})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// EncryptedMessageHash computes the hash of a prunable encrypted message.
func EncryptedMessageHash(data, nonce []byte, isText, isCompressed bool) string {
	h := sha256.New()
	h.Write([]byte{boolByte(isText), boolByte(isCompressed)})
	h.Write(data)
	h.Write(nonce)
	return hex.EncodeToString(h.Sum(nil))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// messageContent returns the bytes of the plain message, text or hex encoded binary.
func messageContent(data Request) ([]byte, bool, error) {
	isText := data.Get("messageIsText") != "false"
	if isText {
		return []byte(data.Get("message")), true, nil
	}
	raw, err := hex.DecodeString(data.Get("message"))
	return raw, false, err
}

func decodeAppendices(r *reader, flags int32, out Request, phasingAt map[string]int) {
	if flags&FlagMessage != 0 {
		r.readByte()
		decodePlainMessage(r, out)
	}
	if flags&FlagEncryptedMessage != 0 {
		r.readByte()
		decodeEncrypted(r, "encryptedMessage", "messageToEncryptIsText", out)
	}
	if flags&FlagRecipientPublicKey != 0 {
		r.readByte()
		out.Set("recipientPublicKey", hex.EncodeToString(r.readBytes(publicKeyLength)))
	}
	if flags&FlagEncryptToSelfMessage != 0 {
		r.readByte()
		decodeEncrypted(r, "encryptToSelfMessage", "messageToEncryptToSelfIsText", out)
	}
	if flags&FlagPhasing != 0 {
		r.readByte()
		out.Set("phasingFinishHeight", formatInt(int64(r.readInt32())))
		phasingAt[phasingPrefix] = r.pos
		decodePhasingParams(r, phasingPrefix, out)
		n := int(r.readByte())
		out["phasingLinkedFullHash"] = []string{}
		for i := 0; i < n; i++ {
			out.Add("phasingLinkedFullHash", r.readHash())
		}
		l := int(r.readByte())
		out.Set("phasingHashedSecret", hex.EncodeToString(r.readBytes(l)))
		out.Set("phasingHashedSecretAlgorithm", formatInt(int64(int8(r.readByte()))))
	}
	if flags&FlagPrunablePlainMessage != 0 {
		r.readByte()
		out.Set("messageHash", r.readHash())
	}
	if flags&FlagPrunableEncryptedMessage != 0 {
		r.readByte()
		out.Set("encryptedMessageHash", r.readHash())
	}
}

func decodePlainMessage(r *reader, out Request) {
	content, isText := r.readMessage()
	out.Set("messageIsText", formatBool(isText))
	if isText {
		out.Set("message", string(content))
		return
	}
	out.Set("message", hex.EncodeToString(content))
}

func decodeEncrypted(r *reader, name, isTextName string, out Request) {
	data, isText := r.readMessage()
	out.Set(isTextName, formatBool(isText))
	out.Set(name+"Data", hex.EncodeToString(data))
	out.Set(name+"Nonce", r.readHash())
}

// compareAppendices compares every section present in flags with the request.
// The node attachment, when given, must agree with the prunable hashes.
// Phasing parameters are left to the verifier which checks them on the raw bytes.
func compareAppendices(flags int32, decoded, data Request, attachment map[string]any) error {
	if flags&FlagMessage != 0 {
		if err := comparePlainMessage(decoded, data); err != nil {
			return err
		}
	}
	if flags&FlagEncryptedMessage != 0 {
		if err := compareEncrypted(decoded, data, "encryptedMessage", "messageToEncryptIsText"); err != nil {
			return err
		}
	}
	if flags&FlagRecipientPublicKey != 0 {
		if !strings.EqualFold(decoded.Get("recipientPublicKey"), data.Get("recipientPublicKey")) {
			return mismatch("recipientPublicKey")
		}
	}
	if flags&FlagEncryptToSelfMessage != 0 {
		if err := compareEncrypted(decoded, data, "encryptToSelfMessage", "messageToEncryptToSelfIsText"); err != nil {
			return err
		}
	}
	if flags&FlagPhasing != 0 {
		if err := comparePhasing(decoded, data); err != nil {
			return err
		}
	}
	if flags&FlagPrunablePlainMessage != 0 {
		content, isText, err := messageContent(data)
		if err != nil {
			return mismatch("message")
		}
		if err := compareHash(decoded, attachment, "messageHash", PlainMessageHash(content, isText)); err != nil {
			return err
		}
	}
	if flags&FlagPrunableEncryptedMessage != 0 {
		enc, err := hex.DecodeString(data.Get("encryptedMessageData"))
		if err != nil {
			return mismatch("encryptedMessageData")
		}
		nonce, err := hex.DecodeString(data.Get("encryptedMessageNonce"))
		if err != nil {
			return mismatch("encryptedMessageNonce")
		}
		want := EncryptedMessageHash(enc, nonce,
			data.Get("messageToEncryptIsText") != "false",
			data.Get("compressMessageToEncrypt") != "false")
		if err := compareHash(decoded, attachment, "encryptedMessageHash", want); err != nil {
			return err
		}
	}
	return nil
}

func comparePlainMessage(decoded, data Request) error {
	isText := data.Get("messageIsText") != "false"
	if decoded.Get("messageIsText") != formatBool(isText) {
		return mismatch("messageIsText")
	}
	if isText && decoded.Get("message") != data.Get("message") {
		return mismatch("message")
	}
	if !isText && !strings.EqualFold(decoded.Get("message"), data.Get("message")) {
		return mismatch("message")
	}
	return nil
}

func compareEncrypted(decoded, data Request, name, isTextName string) error {
	if decoded.Get(isTextName) != formatBool(data.Get(isTextName) != "false") {
		return mismatch(isTextName)
	}
	for _, suffix := range []string{"Data", "Nonce"} {
		if !strings.EqualFold(decoded.Get(name+suffix), data.Get(name+suffix)) {
			return mismatch(name + suffix)
		}
	}
	return nil
}

func comparePhasing(decoded, data Request) error {
	if !equalNumber(decoded.Get("phasingFinishHeight"), data.Get("phasingFinishHeight")) {
		return mismatch("phasingFinishHeight")
	}
	if !equalFoldLists(decoded.Values("phasingLinkedFullHash"), nonEmpty(data.Values("phasingLinkedFullHash"))) {
		return mismatch("phasingLinkedFullHash")
	}
	if !strings.EqualFold(decoded.Get("phasingHashedSecret"), data.Get("phasingHashedSecret")) {
		return mismatch("phasingHashedSecret")
	}
	if d := decoded.Get("phasingHashedSecretAlgorithm"); d != "0" && !equalByte(d, data.Get("phasingHashedSecretAlgorithm")) {
		return mismatch("phasingHashedSecretAlgorithm")
	}
	return nil
}

func compareHash(decoded Request, attachment map[string]any, name, want string) error {
	if decoded.Get(name) != want {
		return mismatch(name)
	}
	if v, ok := attachment[name]; ok {
		if s, ok := v.(string); !ok || !strings.EqualFold(s, want) {
			return mismatch(name)
		}
	}
	return nil
}

func encodeAppendices(w *writer, flags int32, data Request) {
	if flags&FlagMessage != 0 {
		w.putByte(appendixVersion)
		encodePlainMessage(w, data)
	}
	if flags&FlagEncryptedMessage != 0 {
		w.putByte(appendixVersion)
		encodeEncrypted(w, data, "encryptedMessage", "messageToEncryptIsText")
	}
	if flags&FlagRecipientPublicKey != 0 {
		w.putByte(appendixVersion)
		key, err := hex.DecodeString(data.Get("recipientPublicKey"))
		w.check("recipientPublicKey", err)
		w.putFixed(key, publicKeyLength)
	}
	if flags&FlagEncryptToSelfMessage != 0 {
		w.putByte(appendixVersion)
		encodeEncrypted(w, data, "encryptToSelfMessage", "messageToEncryptToSelfIsText")
	}
	if flags&FlagPhasing != 0 {
		w.putByte(appendixVersion)
		finish, err := parseInt(data.Get("phasingFinishHeight"), 32)
		w.check("phasingFinishHeight", err)
		w.putInt32(int32(finish))
		encodePhasingParams(w, data, phasingPrefix)
		linked := nonEmpty(data.Values("phasingLinkedFullHash"))
		w.putByte(byte(len(linked)))
		for _, h := range linked {
			w.putHash(h)
		}
		secret, err := hex.DecodeString(data.Get("phasingHashedSecret"))
		w.check("phasingHashedSecret", err)
		if len(secret) > 255 {
			w.fail(len(secret))
		}
		w.putByte(byte(len(secret)))
		w.putBytes(secret)
		algorithm, err := parseByte(orZero(data.Get("phasingHashedSecretAlgorithm")))
		w.check("phasingHashedSecretAlgorithm", err)
		w.putByte(algorithm)
	}
	if flags&FlagPrunablePlainMessage != 0 {
		w.putByte(appendixVersion)
		content, isText, err := messageContent(data)
		w.check("message", err)
		w.putHash(PlainMessageHash(content, isText))
	}
	if flags&FlagPrunableEncryptedMessage != 0 {
		w.putByte(appendixVersion)
		enc, err := hex.DecodeString(data.Get("encryptedMessageData"))
		w.check("encryptedMessageData", err)
		nonce, err := hex.DecodeString(data.Get("encryptedMessageNonce"))
		w.check("encryptedMessageNonce", err)
		w.putHash(EncryptedMessageHash(enc, nonce,
			data.Get("messageToEncryptIsText") != "false",
			data.Get("compressMessageToEncrypt") != "false"))
	}
}

func encodePlainMessage(w *writer, data Request) {
	content, isText, err := messageContent(data)
	w.check("message", err)
	w.putMessage(content, isText)
}

func encodeEncrypted(w *writer, data Request, name, isTextName string) {
	enc, err := hex.DecodeString(data.Get(name + "Data"))
	w.check(name+"Data", err)
	w.putMessage(enc, data.Get(isTextName) != "false")
	w.putHash(data.Get(name + "Nonce"))
}

func flagError(want, got int32) error {
	return fmt.Errorf("%w: expected %07b got %07b", ErrFlagMismatch, want, got)
}
