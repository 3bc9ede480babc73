package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

// Helper provides wallet helper functionalities without knowing about wallet private key.
type Helper struct{}

// NewVerifier creates new wallet Helper verifier.
func NewVerifier() Helper {
	return Helper{}
}

// VerifyTransaction verifies that signed transaction bytes are signed by the owner of the public key.
func (h Helper) VerifyTransaction(signed []byte, public ed25519.PublicKey) error {
	if len(signed) < SignatureOffset+SignatureLength {
		return ErrTransactionTooShort
	}
	if len(public) != ed25519.PublicKeySize {
		return fmt.Errorf("public key of invalid length %d", len(public))
	}
	signature := make([]byte, SignatureLength)
	copy(signature, signed[SignatureOffset:SignatureOffset+SignatureLength])

	unsigned := make([]byte, len(signed))
	copy(unsigned, signed)
	zeroSignature(unsigned)

	digest := sha256.Sum256(unsigned)
	if !ed25519.Verify(public, digest[:], signature) {
		return ErrInvalidSignature
	}
	return nil
}
