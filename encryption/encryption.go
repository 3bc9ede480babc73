package encryption

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// NonceLength is the length of the nonce carried in the transaction.
const NonceLength = 32

const (
	keyLength = 32
	boxNonce  = 24
	info      = "metro encrypt to self"
)

var (
	ErrInvalidNonce   = errors.New("invalid nonce length")
	ErrCannotDecrypt  = errors.New("cannot decrypt message")
	ErrEmptyPlaintext = errors.New("empty message to encrypt")
)

// Message is the encrypted message as sent to the node.
type Message struct {
	Data         []byte
	Nonce        []byte
	IsText       bool
	IsCompressed bool
}

// EncryptToSelf encrypts the plaintext so that only the owner of the secret phrase can read it.
// The key is derived from the secret phrase and a fresh random nonce.
func EncryptToSelf(secretPhrase string, plaintext []byte, isText, compress bool) (Message, error) {
	if len(plaintext) == 0 {
		return Message{}, ErrEmptyPlaintext
	}
	nonce := make([]byte, NonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Message{}, err
	}

	payload := plaintext
	if compress {
		var err error
		payload, err = gzipBytes(plaintext)
		if err != nil {
			return Message{}, err
		}
	}

	key, err := deriveKey(secretPhrase, nonce)
	if err != nil {
		return Message{}, err
	}
	var n [boxNonce]byte
	copy(n[:], nonce)

	return Message{
		Data:         secretbox.Seal(nil, payload, &n, &key),
		Nonce:        nonce,
		IsText:       isText,
		IsCompressed: compress,
	}, nil
}

// DecryptFromSelf opens the message encrypted with EncryptToSelf.
func DecryptFromSelf(secretPhrase string, msg Message) ([]byte, error) {
	if len(msg.Nonce) != NonceLength {
		return nil, ErrInvalidNonce
	}
	key, err := deriveKey(secretPhrase, msg.Nonce)
	if err != nil {
		return nil, err
	}
	var n [boxNonce]byte
	copy(n[:], msg.Nonce)

	payload, ok := secretbox.Open(nil, msg.Data, &n, &key)
	if !ok {
		return nil, ErrCannotDecrypt
	}
	if !msg.IsCompressed {
		return payload, nil
	}
	return gunzipBytes(payload)
}

func deriveKey(secretPhrase string, nonce []byte) ([keyLength]byte, error) {
	var key [keyLength]byte
	seed := sha256.Sum256([]byte(secretPhrase))
	r := hkdf.New(sha256.New, seed[:], nonce, []byte(info))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Join(ErrCannotDecrypt, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
