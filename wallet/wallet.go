package wallet

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/bartossh/MetroWallet/serializer"
)

const (
	checksumLength = 4
	version        = byte(0x00)
)

const (
	// AddressPrefix starts every formatted account address.
	AddressPrefix = "MTR-"
	// SignatureOffset is the position of the signature in the transaction bytes.
	SignatureOffset = 104
	// SignatureLength is the length of the ed25519 signature.
	SignatureLength = ed25519.SignatureSize
)

var (
	ErrInvalidAddress      = errors.New("invalid account address")
	ErrChecksumMismatch    = errors.New("address checksum is not equal")
	ErrTransactionTooShort = errors.New("transaction bytes too short to hold a signature")
	ErrInvalidSignature    = errors.New("transaction signature isn't valid")
)

// Wallet holds public and private key of the account owner.
type Wallet struct {
	Private ed25519.PrivateKey `json:"private" bson:"private"`
	Public  ed25519.PublicKey  `json:"public" bson:"public"`
}

// FromSecretPhrase derives the Wallet from the account secret phrase.
// The same phrase always gives the same keys.
func FromSecretPhrase(secretPhrase string) Wallet {
	seed := sha256.Sum256([]byte(secretPhrase))
	private := ed25519.NewKeyFromSeed(seed[:])
	return Wallet{Private: private, Public: private.Public().(ed25519.PublicKey)}
}

// PublicKeyHex returns public key as hex string.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.Public)
}

// AccountID returns numeric account id of the wallet.
func (w *Wallet) AccountID() uint64 {
	return AccountIDFromPublicKey(w.Public)
}

// Address creates the formatted account address that contains version and checksum.
func (w *Wallet) Address() string {
	return FormatAccountID(w.AccountID())
}

// Sign signs the message with Ed25519 signature over the sha256 digest.
func (w *Wallet) Sign(message []byte) []byte {
	digest := sha256.Sum256(message)
	return ed25519.Sign(w.Private, digest[:])
}

// SignTransaction signs unsigned transaction bytes and returns a copy with the signature spliced in.
// The signature region is zeroed before signing.
func (w *Wallet) SignTransaction(unsigned []byte) ([]byte, error) {
	if len(unsigned) < SignatureOffset+SignatureLength {
		return nil, ErrTransactionTooShort
	}
	signed := make([]byte, len(unsigned))
	copy(signed, unsigned)
	zeroSignature(signed)
	copy(signed[SignatureOffset:SignatureOffset+SignatureLength], w.Sign(signed))
	return signed, nil
}

// AccountIDFromPublicKey computes account id as the little endian number
// made of the first eight bytes of the public key sha256 digest.
func AccountIDFromPublicKey(public []byte) uint64 {
	digest := sha256.Sum256(public)
	return binary.LittleEndian.Uint64(digest[:8])
}

// FormatAccountID creates formatted address of the account id.
func FormatAccountID(id uint64) string {
	payload := make([]byte, 9)
	payload[0] = version
	binary.LittleEndian.PutUint64(payload[1:], id)
	full := append(payload, checksum(payload)...)
	return AddressPrefix + string(serializer.Base58Encode(full))
}

// ParseAccount reads account id given as decimal number or formatted address.
func ParseAccount(account string) (uint64, error) {
	if !strings.HasPrefix(account, AddressPrefix) {
		id, err := strconv.ParseUint(account, 10, 64)
		if err != nil {
			return 0, errors.Join(ErrInvalidAddress, err)
		}
		return id, nil
	}
	raw, err := serializer.Base58Decode([]byte(strings.TrimPrefix(account, AddressPrefix)))
	if err != nil {
		return 0, errors.Join(ErrInvalidAddress, err)
	}
	if len(raw) != 1+8+checksumLength {
		return 0, ErrInvalidAddress
	}
	if !bytes.Equal(raw[9:], checksum(raw[:9])) {
		return 0, ErrChecksumMismatch
	}
	return binary.LittleEndian.Uint64(raw[1:9]), nil
}

func zeroSignature(tx []byte) {
	for i := SignatureOffset; i < SignatureOffset+SignatureLength; i++ {
		tx[i] = 0
	}
}

func checksum(payload []byte) []byte {
	firstHash := sha256.Sum256(payload)
	secondHash := sha256.Sum256(firstHash[:])

	return secondHash[:checksumLength]
}
