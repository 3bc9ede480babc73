package wallet

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func generateRandom(bytesNum int) []byte {
	b := make([]byte, bytesNum)
	rand.Read(b)
	return b
}

func TestSignTransactionSplicesSignature(t *testing.T) {
	w := FromSecretPhrase("transaction signer")
	unsigned := generateRandom(200)
	zeroSignature(unsigned)

	signed, err := w.SignTransaction(unsigned)
	assert.Nil(t, err)
	assert.Len(t, signed, len(unsigned))
	assert.Equal(t, unsigned[:SignatureOffset], signed[:SignatureOffset])
	assert.Equal(t, unsigned[SignatureOffset+SignatureLength:], signed[SignatureOffset+SignatureLength:])
	assert.NotEqual(t, make([]byte, SignatureLength), signed[SignatureOffset:SignatureOffset+SignatureLength])

	err = Helper{}.VerifyTransaction(signed, w.Public)
	assert.Nil(t, err)
}

func TestVerifyTransactionFails(t *testing.T) {
	w := FromSecretPhrase("transaction signer")
	other := FromSecretPhrase("someone else")
	unsigned := generateRandom(190)

	signed, err := w.SignTransaction(unsigned)
	assert.Nil(t, err)

	err = Helper{}.VerifyTransaction(signed, other.Public)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	signed[60] ^= 0xff
	err = Helper{}.VerifyTransaction(signed, w.Public)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = w.SignTransaction(make([]byte, 100))
	assert.ErrorIs(t, err, ErrTransactionTooShort)
}

func BenchmarkVerifyTransaction(b *testing.B) {
	w := FromSecretPhrase("bench signer")
	signed, err := w.SignTransaction(generateRandom(1000))
	assert.Nil(b, err)

	for n := 0; n < b.N; n++ {
		assert.Nil(b, Helper{}.VerifyTransaction(signed, w.Public))
	}
}
