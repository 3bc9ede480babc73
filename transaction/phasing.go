package transaction

import (
	"strconv"

	"github.com/bartossh/MetroWallet/wallet"
)

// InvalidPosition is returned by ValidatePhasingParams when the parameters don't match.
const InvalidPosition = -1

// phasingPrefix names the request fields of the phasing appendix.
const phasingPrefix = "phasing"

const (
	suffixVotingModel     = "VotingModel"
	suffixQuorum          = "Quorum"
	suffixMinBalance      = "MinBalance"
	suffixWhitelisted     = "Whitelisted"
	suffixHolding         = "Holding"
	suffixMinBalanceModel = "MinBalanceModel"
)

// ValidatePhasingParams decodes phasing parameters at pos and compares them with the
// request fields named with the prefix, for example phasingQuorum or controlQuorum.
// It returns the position after the parameters or InvalidPosition.
//
// Decoded zero quorum, min balance, holding and min balance model match any requested value.
// Whitelisted accounts are compared in order, each by number or by formatted address.
func ValidatePhasingParams(raw []byte, pos int, data Request, prefix string) int {
	r := newReader(raw, pos)
	decoded := make(Request)
	decodePhasingParams(r, prefix, decoded)
	if r.err != nil {
		return InvalidPosition
	}
	if err := comparePhasingParams(decoded, data, prefix); err != nil {
		return InvalidPosition
	}
	return r.pos
}

func decodePhasingParams(r *reader, prefix string, out Request) {
	out.Set(prefix+suffixVotingModel, formatInt(int64(int8(r.readByte()))))
	out.Set(prefix+suffixQuorum, formatUint(r.readUint64()))
	out.Set(prefix+suffixMinBalance, formatUint(r.readUint64()))
	n := int(r.readByte())
	out[prefix+suffixWhitelisted] = []string{}
	for i := 0; i < n; i++ {
		out.Add(prefix+suffixWhitelisted, formatUint(r.readUint64()))
	}
	out.Set(prefix+suffixHolding, formatUint(r.readUint64()))
	out.Set(prefix+suffixMinBalanceModel, formatInt(int64(int8(r.readByte()))))
}

func comparePhasingParams(decoded, data Request, prefix string) error {
	if !equalByte(decoded.Get(prefix+suffixVotingModel), orZero(data.Get(prefix+suffixVotingModel))) {
		return mismatch(prefix + suffixVotingModel)
	}
	for _, suffix := range []string{suffixQuorum, suffixMinBalance, suffixHolding} {
		d := decoded.Get(prefix + suffix)
		if d != "0" && !equalNumber(d, data.Get(prefix+suffix)) {
			return mismatch(prefix + suffix)
		}
	}
	if d := decoded.Get(prefix + suffixMinBalanceModel); d != "0" && !equalByte(d, data.Get(prefix+suffixMinBalanceModel)) {
		return mismatch(prefix + suffixMinBalanceModel)
	}

	got := decoded.Values(prefix + suffixWhitelisted)
	want := nonEmpty(data.Values(prefix + suffixWhitelisted))
	if len(got) != len(want) {
		return mismatch(prefix + suffixWhitelisted)
	}
	for i := range got {
		if !sameAccount(got[i], want[i]) {
			return mismatch(prefix + suffixWhitelisted)
		}
	}
	return nil
}

// sameAccount compares decoded numeric account id with the requested number or formatted address.
func sameAccount(decodedID, requested string) bool {
	if decodedID == requested {
		return true
	}
	id, err := strconv.ParseUint(decodedID, 10, 64)
	if err != nil {
		return false
	}
	if wallet.FormatAccountID(id) == requested {
		return true
	}
	r, err := wallet.ParseAccount(requested)
	return err == nil && r == id
}

func encodePhasingParams(w *writer, data Request, prefix string) {
	votingModel, err := parseByte(orZero(data.Get(prefix + suffixVotingModel)))
	w.check(prefix+suffixVotingModel, err)
	w.putByte(votingModel)

	for _, suffix := range []string{suffixQuorum, suffixMinBalance} {
		v, err := parseUint(data.Get(prefix + suffix))
		w.check(prefix+suffix, err)
		w.putUint64(v)
	}

	whitelist := nonEmpty(data.Values(prefix + suffixWhitelisted))
	w.putByte(byte(len(whitelist)))
	for _, account := range whitelist {
		id, err := wallet.ParseAccount(account)
		w.check(prefix+suffixWhitelisted, err)
		w.putUint64(id)
	}

	holding, err := parseUint(data.Get(prefix + suffixHolding))
	w.check(prefix+suffixHolding, err)
	w.putUint64(holding)

	model, err := parseByte(orZero(data.Get(prefix + suffixMinBalanceModel)))
	w.check(prefix+suffixMinBalanceModel, err)
	w.putByte(model)
}
