package serializer

import (
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// Base58Encode encodes byte array to base58 string.
func Base58Encode(input []byte) []byte {
	return []byte(base58.Encode(input))
}

// Base58Decode decodes base58 string to byte array.
func Base58Decode(input []byte) ([]byte, error) {
	return base58.Decode(string(input))
}

// HexEncode encodes bytes to lower case hex string as used by the node API.
func HexEncode(input []byte) string {
	return hex.EncodeToString(input)
}

// HexDecode decodes hex string received from the node API.
func HexDecode(input string) ([]byte, error) {
	return hex.DecodeString(input)
}
