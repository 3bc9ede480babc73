package transaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/wallet"
)

// GenesisAccount is the account the node reports as recipient of transactions without one.
const GenesisAccount = "1739068987193023818"

var ErrStaleBlock = errors.New("transaction is not anchored to the last known block")

// BlockReader gives the last block known to the wallet.
type BlockReader interface {
	LastBlock() (chainstate.Block, bool)
}

// Verifier checks that transaction bytes encode exactly the request the client made.
// Verifier never changes the request.
type Verifier struct {
	AccountPublicKey string // hex public key of the logged in account
	Blocks           BlockReader
}

// Verify tells if the bytes encode the request, any difference gives false.
func (v Verifier) Verify(raw []byte, requestType string, data Request, attachment map[string]any, checkFreshness bool) bool {
	return v.Check(raw, requestType, data, attachment, checkFreshness) == nil
}

// Check is Verify returning the first difference found.
func (v Verifier) Check(raw []byte, requestType string, data Request, attachment map[string]any, checkFreshness bool) error {
	d, err := Decode(raw, requestType)
	if err != nil {
		return err
	}
	if checkFreshness {
		if err := v.checkFreshness(d); err != nil {
			return err
		}
	}
	if err := v.checkCommon(d, data); err != nil {
		return err
	}

	kind, _ := KindOf(requestType)
	for _, f := range kind.fields {
		if f.kind == kindPhasingParams {
			if err := checkPhasingParams(raw, d, data, f.name); err != nil {
				return err
			}
			continue
		}
		if err := compareField(f, d.Attachment, data); err != nil {
			return err
		}
	}

	expected := ExpectedFlags(data)
	if d.Version == 0 {
		return checkVersionZeroMessage(kind, d, data, expected)
	}
	if d.Flags != expected {
		return flagError(expected, d.Flags)
	}
	if d.Flags&FlagPhasing != 0 {
		if err := checkPhasingParams(raw, d, data, phasingPrefix); err != nil {
			return err
		}
	}
	return compareAppendices(d.Flags, d.Attachment, data, attachment)
}

// checkPhasingParams validates the phasing parameters block decoded at the recorded position.
func checkPhasingParams(raw []byte, d Decoded, data Request, prefix string) error {
	pos, ok := d.phasingAt[prefix]
	if !ok || ValidatePhasingParams(raw, pos, data, prefix) == InvalidPosition {
		return mismatch(prefix + " phasing parameters")
	}
	return nil
}

func (v Verifier) checkFreshness(d Decoded) error {
	if d.Version == 0 {
		return fmt.Errorf("%w: version 0 carries no block reference", ErrStaleBlock)
	}
	if v.Blocks == nil {
		return fmt.Errorf("%w: no block known", ErrStaleBlock)
	}
	b, ok := v.Blocks.LastBlock()
	if !ok {
		return fmt.Errorf("%w: no block known", ErrStaleBlock)
	}
	if b.Height != d.ECBlockHeight || b.ID != d.ECBlockID {
		return fmt.Errorf("%w: expected %d/%d got %d/%d", ErrStaleBlock, b.Height, b.ID, d.ECBlockHeight, d.ECBlockID)
	}
	return nil
}

func (v Verifier) checkCommon(d Decoded, data Request) error {
	keyOK := v.AccountPublicKey != "" && strings.EqualFold(d.PublicKey, v.AccountPublicKey)
	if !keyOK && data.Has("publicKey") {
		keyOK = strings.EqualFold(d.PublicKey, data.Get("publicKey"))
	}
	if !keyOK {
		return mismatch("publicKey")
	}

	if data.Has("deadline") && !equalNumber(formatInt(int64(d.Deadline)), data.Get("deadline")) {
		return mismatch("deadline")
	}

	if !sameRecipient(d.Recipient, data.Get("recipient")) {
		return mismatch("recipient")
	}

	if !equalNumber(formatUint(d.Amount), orZero(data.Get("amountMQT"))) {
		return mismatch("amountMQT")
	}

	if fee := data.Get("feeMQT"); fee != "" && !equalNumber(fee, "0") && !equalNumber(formatUint(d.Fee), fee) {
		return mismatch("feeMQT")
	}

	if !strings.EqualFold(d.ReferencedHash, data.Get("referencedTransactionFullHash")) {
		return mismatch("referencedTransactionFullHash")
	}
	return nil
}

// sameRecipient allows no recipient or the genesis account to be decoded as zero.
func sameRecipient(decoded uint64, requested string) bool {
	if requested == "" || requested == GenesisAccount {
		return decoded == 0 || formatUint(decoded) == GenesisAccount
	}
	id, err := wallet.ParseAccount(requested)
	return err == nil && id == decoded
}

func checkVersionZeroMessage(kind Kind, d Decoded, data Request, expected int32) error {
	if expected&^FlagMessage != 0 || (expected != 0 && kind.RequestType != "sendMessage") {
		return fmt.Errorf("%w: flags %07b", ErrUnsupportedVersion, expected)
	}
	_, decodedMessage := d.Attachment["messageIsText"]
	if decodedMessage != (expected&FlagMessage != 0) {
		return flagError(expected, 0)
	}
	if decodedMessage {
		return comparePlainMessage(d.Attachment, data)
	}
	return nil
}
