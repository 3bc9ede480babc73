package transaction

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/wallet"
)

var (
	account   = wallet.FromSecretPhrase("transaction test account")
	recipient = wallet.FromSecretPhrase("transaction test recipient")
	verifier  = Verifier{AccountPublicKey: account.PublicKeyHex()}
)

var (
	hashA = strings.Repeat("ab", 32)
	hashB = strings.Repeat("cd", 32)
	nonce = strings.Repeat("0f", 32)
)

func request(params map[string]string, multi map[string][]string) Request {
	r := NewRequest(params)
	for k, vs := range multi {
		r[k] = vs
	}
	return r
}

func build(t testing.TB, requestType string, data Request) []byte {
	withKey := data.Clone()
	withKey.Set("publicKey", account.PublicKeyHex())
	h, err := HeaderFromRequest(withKey)
	assert.Nil(t, err)
	h.Timestamp = 1700000000000
	h.ECBlockHeight = 1000
	h.ECBlockID = 77
	raw, err := Build(requestType, h, withKey)
	assert.Nil(t, err)
	return raw
}

type kindCase struct {
	requestType string
	params      map[string]string
	multi       map[string][]string
	mutateKey   string
	mutateValue string
}

func kindCases() []kindCase {
	return []kindCase{
		{"sendMoney", map[string]string{"recipient": "123", "amountMQT": "500000000", "feeMQT": "100000000", "deadline": "1440"}, nil, "amountMQT", "500000001"},
		{"sendMessage", map[string]string{"recipient": recipient.Address(), "message": "hello", "feeMQT": "100000000"}, nil, "message", "hellO"},
		{"setAlias", map[string]string{"aliasName": "foo", "aliasURI": "http://example.com"}, nil, "aliasURI", "http://example.org"},
		{"createPoll", map[string]string{"name": "poll", "description": "which one", "finishHeight": "2000", "option00": "a", "option01": "b", "votingModel": "0", "maxNumberOfOptions": "1"}, nil, "option01", "c"},
		{"castVote", map[string]string{"poll": "987654321", "vote00": "1", "vote02": "0"}, nil, "vote00", "0"},
		{"setAccountInfo", map[string]string{"name": "me", "description": "about me"}, nil, "name", "you"},
		{"sellAlias", map[string]string{"aliasName": "foo", "priceMQT": "1000", "recipient": "42"}, nil, "priceMQT", "1001"},
		{"buyAlias", map[string]string{"aliasName": "foo", "amountMQT": "1000", "recipient": "42"}, nil, "aliasName", "bar"},
		{"deleteAlias", map[string]string{"aliasName": "foo"}, nil, "aliasName", "fo"},
		{"approveTransaction", map[string]string{"revealedSecretText": "open sesame"}, map[string][]string{"transactionFullHash": {hashA, hashB}}, "revealedSecretText", "closed"},
		{"setAccountProperty", map[string]string{"recipient": "42", "property": "color", "value": "blue"}, nil, "value", "red"},
		{"deleteAccountProperty", map[string]string{"recipient": "42", "property": "color", "propertyId": "5"}, nil, "recipient", "43"},
		{"issueAsset", map[string]string{"name": "coin", "description": "a coin", "quantityQNT": "1000000", "decimals": "2"}, nil, "decimals", "3"},
		{"transferAsset", map[string]string{"recipient": "42", "asset": "555", "quantityQNT": "10"}, nil, "asset", "556"},
		{"placeAskOrder", map[string]string{"asset": "555", "quantityQNT": "10", "priceMQT": "20"}, nil, "priceMQT", "21"},
		{"placeBidOrder", map[string]string{"asset": "555", "quantityQNT": "10", "priceMQT": "20"}, nil, "quantityQNT", "11"},
		{"cancelAskOrder", map[string]string{"order": "999"}, nil, "order", "998"},
		{"cancelBidOrder", map[string]string{"order": "999"}, nil, "order", "1"},
		{"dividendPayment", map[string]string{"asset": "555", "height": "100", "amountMQTPerQNT": "3"}, nil, "height", "101"},
		{"deleteAssetShares", map[string]string{"asset": "555", "quantityQNT": "7"}, nil, "quantityQNT", "8"},
		{"dgsListing", map[string]string{"name": "book", "description": "good read", "tags": "books", "quantity": "3", "priceMQT": "100"}, nil, "tags", "films"},
		{"dgsDelisting", map[string]string{"goods": "321"}, nil, "goods", "322"},
		{"dgsPriceChange", map[string]string{"goods": "321", "priceMQT": "50"}, nil, "priceMQT", "51"},
		{"dgsQuantityChange", map[string]string{"goods": "321", "deltaQuantity": "-2"}, nil, "deltaQuantity", "2"},
		{"dgsPurchase", map[string]string{"goods": "321", "quantity": "1", "priceMQT": "100", "deliveryDeadlineTimestamp": "123456"}, nil, "deliveryDeadlineTimestamp", "123457"},
		{"dgsDelivery", map[string]string{"purchase": "654", "goodsIsText": "true", "goodsData": "0a0b0c", "goodsNonce": nonce}, nil, "goodsData", "0a0b0d"},
		{"dgsFeedback", map[string]string{"purchase": "654", "message": "thanks"}, nil, "purchase", "655"},
		{"dgsRefund", map[string]string{"purchase": "654", "refundMQT": "10"}, nil, "refundMQT", "11"},
		{"leaseBalance", map[string]string{"recipient": "42", "period": "1440"}, nil, "period", "1441"},
		{"setPhasingOnlyControl", map[string]string{"controlVotingModel": "1", "controlQuorum": "2", "controlMaxFees": "100000000", "controlMinDuration": "10", "controlMaxDuration": "100"}, map[string][]string{"controlWhitelisted": {recipient.Address(), "42"}}, "controlMaxDuration", "101"},
		{"shufflingCreate", map[string]string{"amount": "1000", "participantCount": "3", "registrationPeriod": "1440"}, nil, "participantCount", "4"},
		{"shufflingRegister", map[string]string{"shufflingFullHash": hashA}, nil, "shufflingFullHash", hashB},
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	for _, c := range kindCases() {
		t.Run(c.requestType, func(t *testing.T) {
			data := request(c.params, c.multi)
			raw := build(t, c.requestType, data)
			err := verifier.Check(raw, c.requestType, data, nil, false)
			assert.Nil(t, err)
			assert.True(t, verifier.Verify(raw, c.requestType, data, nil, false))
		})
	}
}

func TestVerifyMutatedField(t *testing.T) {
	for _, c := range kindCases() {
		t.Run(c.requestType, func(t *testing.T) {
			data := request(c.params, c.multi)
			raw := build(t, c.requestType, data)

			mutated := data.Clone()
			mutated.Set(c.mutateKey, c.mutateValue)
			assert.False(t, verifier.Verify(raw, c.requestType, mutated, nil, false))
			assert.True(t, verifier.Verify(raw, c.requestType, data, nil, false))
		})
	}
}

func TestAllRequestTypesAreCovered(t *testing.T) {
	covered := map[string]bool{}
	for _, c := range kindCases() {
		covered[c.requestType] = true
	}
	for _, rt := range RequestTypes() {
		assert.True(t, covered[rt], rt)
	}
}

func TestSendMoneyAmountChangedInBytes(t *testing.T) {
	data := NewRequest(map[string]string{
		"requestType": "sendMoney", "recipient": "123", "amountMQT": "500000000", "feeMQT": "100000000", "deadline": "1440",
	})
	raw := build(t, "sendMoney", data)
	assert.True(t, verifier.Verify(raw, "sendMoney", data, nil, false))

	d, err := Decode(raw, "sendMoney")
	assert.Nil(t, err)
	assert.Equal(t, uint64(123), d.Recipient)
	assert.Equal(t, uint64(500000000), d.Amount)
	assert.Equal(t, uint64(100000000), d.Fee)
	assert.Equal(t, int16(1440), d.Deadline)

	binary.LittleEndian.PutUint64(raw[56:], 600000000)
	assert.False(t, verifier.Verify(raw, "sendMoney", data, nil, false))
}

func TestSetAliasTruncatedURI(t *testing.T) {
	data := NewRequest(map[string]string{"requestType": "setAlias", "aliasName": "foo", "aliasURI": "http://example.com"})
	raw := build(t, "setAlias", data)
	assert.True(t, verifier.Verify(raw, "setAlias", data, nil, false))

	short := data.Clone()
	short.Set("aliasURI", "http://example.co")
	assert.False(t, verifier.Verify(build(t, "setAlias", short), "setAlias", data, nil, false))

	assert.False(t, verifier.Verify(raw[:len(raw)-1], "setAlias", data, nil, false))
}

func TestFlagGatedSections(t *testing.T) {
	base := map[string]string{"recipient": "123", "amountMQT": "1"}
	withMessage := map[string]string{"recipient": "123", "amountMQT": "1", "message": "hi"}
	withKey := map[string]string{"recipient": "123", "amountMQT": "1", "recipientPublicKey": recipient.PublicKeyHex()}

	cases := []struct {
		name      string
		built     map[string]string
		requested map[string]string
		ok        bool
	}{
		{"both absent", base, base, true},
		{"message in both", withMessage, withMessage, true},
		{"flag set, request without message", withMessage, base, false},
		{"flag clear, request with message", base, withMessage, false},
		{"recipient key in both", withKey, withKey, true},
		{"recipient key flag set, request without it", withKey, base, false},
		{"recipient key flag clear, request with it", base, withKey, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := build(t, "sendMoney", NewRequest(c.built))
			assert.Equal(t, c.ok, verifier.Verify(raw, "sendMoney", NewRequest(c.requested), nil, false))
		})
	}
}

func TestEncryptedSections(t *testing.T) {
	data := NewRequest(map[string]string{
		"recipient":                    recipient.Address(),
		"encryptedMessageData":         "a1b2c3",
		"encryptedMessageNonce":        nonce,
		"messageToEncryptIsText":       "false",
		"encryptToSelfMessageData":     "d4e5",
		"encryptToSelfMessageNonce":    nonce,
		"messageToEncryptToSelfIsText": "true",
	})
	raw := build(t, "sendMessage", data)
	assert.True(t, verifier.Verify(raw, "sendMessage", data, nil, false))

	d, err := Decode(raw, "sendMessage")
	assert.Nil(t, err)
	assert.Equal(t, FlagEncryptedMessage|FlagEncryptToSelfMessage, d.Flags)

	changed := data.Clone()
	changed.Set("messageToEncryptIsText", "true")
	assert.False(t, verifier.Verify(raw, "sendMessage", changed, nil, false))
}

func TestUnknownFlagAndTrailingBytes(t *testing.T) {
	data := NewRequest(map[string]string{"recipient": "123", "amountMQT": "1"})
	raw := build(t, "sendMoney", data)

	flagged := append([]byte(nil), raw...)
	flagged[168] |= 0x80
	_, err := Decode(flagged, "sendMoney")
	assert.ErrorIs(t, err, ErrUnknownFlags)

	trailing := append(append([]byte(nil), raw...), 0x00)
	_, err = Decode(trailing, "sendMoney")
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestTypeMismatchAndUnknownType(t *testing.T) {
	data := NewRequest(map[string]string{"recipient": "123", "amountMQT": "1"})
	raw := build(t, "sendMoney", data)

	assert.ErrorIs(t, verifier.Check(raw, "setAlias", data, nil, false), ErrTypeMismatch)
	assert.ErrorIs(t, verifier.Check(raw, "getAccount", data, nil, false), ErrUnknownRequestType)
}

func TestCommonFields(t *testing.T) {
	data := NewRequest(map[string]string{"recipient": "123", "amountMQT": "1", "deadline": "60", "referencedTransactionFullHash": hashA})
	raw := build(t, "sendMoney", data)
	assert.True(t, verifier.Verify(raw, "sendMoney", data, nil, false))

	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"deadline", "deadline", "61"},
		{"recipient", "recipient", "124"},
		{"referenced hash", "referencedTransactionFullHash", hashB},
		{"referenced hash removed", "referencedTransactionFullHash", ""},
		{"fee given and different", "feeMQT", "5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mutated := data.Clone()
			mutated.Set(c.key, c.value)
			assert.False(t, verifier.Verify(raw, "sendMoney", mutated, nil, false))
		})
	}

	other := Verifier{AccountPublicKey: recipient.PublicKeyHex()}
	assert.False(t, other.Verify(raw, "sendMoney", data, nil, false))

	withKey := data.Clone()
	withKey.Set("publicKey", account.PublicKeyHex())
	assert.True(t, Verifier{}.Verify(raw, "sendMoney", withKey, nil, false))
}

func TestRecipientAllowances(t *testing.T) {
	none := NewRequest(map[string]string{"aliasName": "foo", "aliasURI": "x"})
	raw := build(t, "setAlias", none)

	genesis := none.Clone()
	genesis.Set("recipient", GenesisAccount)
	assert.True(t, verifier.Verify(raw, "setAlias", none, nil, false))
	assert.True(t, verifier.Verify(raw, "setAlias", genesis, nil, false))

	byAddress := NewRequest(map[string]string{"recipient": recipient.Address(), "amountMQT": "5"})
	raw = build(t, "sendMoney", byAddress)
	byNumber := byAddress.Clone()
	byNumber.Set("recipient", formatUint(recipient.AccountID()))
	assert.True(t, verifier.Verify(raw, "sendMoney", byAddress, nil, false))
	assert.True(t, verifier.Verify(raw, "sendMoney", byNumber, nil, false))
}

func TestFreshness(t *testing.T) {
	data := NewRequest(map[string]string{"recipient": "123", "amountMQT": "1"})
	raw := build(t, "sendMoney", data)
	ref := chainstate.New()
	v := Verifier{AccountPublicKey: account.PublicKeyHex(), Blocks: ref}

	assert.ErrorIs(t, v.Check(raw, "sendMoney", data, nil, true), ErrStaleBlock)

	ref.Set(chainstate.Block{ID: 77, Height: 1000})
	assert.True(t, v.Verify(raw, "sendMoney", data, nil, true))

	ref.Set(chainstate.Block{ID: 78, Height: 1000})
	assert.False(t, v.Verify(raw, "sendMoney", data, nil, true))

	ref.Set(chainstate.Block{ID: 77, Height: 1001})
	assert.False(t, v.Verify(raw, "sendMoney", data, nil, true))
	assert.True(t, v.Verify(raw, "sendMoney", data, nil, false))
}

func TestVersionZero(t *testing.T) {
	data := NewRequest(map[string]string{"recipient": "123", "message": "old style", "publicKey": account.PublicKeyHex()})
	h, err := HeaderFromRequest(data)
	assert.Nil(t, err)
	h.Version = 0
	raw, err := Build("sendMessage", h, data)
	assert.Nil(t, err)
	assert.Len(t, raw, headerLengthV0+4+len("old style"))

	assert.True(t, verifier.Verify(raw, "sendMessage", data, nil, false))
	assert.False(t, verifier.Verify(raw, "sendMessage", data, nil, true))

	noMessage := data.Clone()
	noMessage.Del("message")
	assert.False(t, verifier.Verify(raw, "sendMessage", noMessage, nil, false))

	_, err = Build("sendMoney", h, data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestPrunablePlainMessage(t *testing.T) {
	data := NewRequest(map[string]string{"recipient": "123", "message": "pruned away", "messageIsPrunable": "true"})
	raw := build(t, "sendMessage", data)

	d, err := Decode(raw, "sendMessage")
	assert.Nil(t, err)
	assert.Equal(t, FlagPrunablePlainMessage, d.Flags)
	assert.Equal(t, PlainMessageHash([]byte("pruned away"), true), d.Attachment.Get("messageHash"))

	first := verifier.Verify(raw, "sendMessage", data, nil, false)
	second := verifier.Verify(raw, "sendMessage", data, nil, false)
	assert.True(t, first)
	assert.Equal(t, first, second)

	other := data.Clone()
	other.Set("message", "pruned awaY")
	assert.False(t, verifier.Verify(raw, "sendMessage", other, nil, false))

	notPrunable := data.Clone()
	notPrunable.Del("messageIsPrunable")
	assert.False(t, verifier.Verify(raw, "sendMessage", notPrunable, nil, false))

	attachment := map[string]any{"messageHash": d.Attachment.Get("messageHash")}
	assert.True(t, verifier.Verify(raw, "sendMessage", data, attachment, false))
	attachment["messageHash"] = hashA
	assert.False(t, verifier.Verify(raw, "sendMessage", data, attachment, false))
}

func TestPrunableEncryptedMessage(t *testing.T) {
	data := NewRequest(map[string]string{
		"recipient":                  "123",
		"encryptedMessageData":       "00112233",
		"encryptedMessageNonce":      nonce,
		"encryptedMessageIsPrunable": "true",
	})
	raw := build(t, "sendMessage", data)
	assert.True(t, verifier.Verify(raw, "sendMessage", data, nil, false))

	enc, _ := hex.DecodeString("00112233")
	n, _ := hex.DecodeString(nonce)
	assert.Equal(t, EncryptedMessageHash(enc, n, true, true), EncryptedMessageHash(enc, n, true, true))
	assert.NotEqual(t, EncryptedMessageHash(enc, n, true, true), EncryptedMessageHash(enc, n, true, false))

	uncompressed := data.Clone()
	uncompressed.Set("compressMessageToEncrypt", "false")
	assert.False(t, verifier.Verify(raw, "sendMessage", uncompressed, nil, false))
}

func TestPhasingAppendix(t *testing.T) {
	params := map[string]string{
		"recipient":                    "123",
		"amountMQT":                    "10",
		"phasing":                      "true",
		"phasingFinishHeight":          "5000",
		"phasingVotingModel":           "0",
		"phasingQuorum":                "1",
		"phasingHashedSecret":          "beef",
		"phasingHashedSecretAlgorithm": "2",
	}
	multi := map[string][]string{
		"phasingWhitelisted":    {recipient.Address()},
		"phasingLinkedFullHash": {hashA},
	}
	data := request(params, multi)
	raw := build(t, "sendMoney", data)
	assert.True(t, verifier.Verify(raw, "sendMoney", data, nil, false))

	cases := []struct {
		key   string
		value []string
	}{
		{"phasingFinishHeight", []string{"5001"}},
		{"phasingVotingModel", []string{"1"}},
		{"phasingWhitelisted", []string{"42"}},
		{"phasingWhitelisted", []string{recipient.Address(), "42"}},
		{"phasingLinkedFullHash", []string{hashB}},
		{"phasingHashedSecret", []string{"bee0"}},
		{"phasing", []string{"false"}},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			mutated := data.Clone()
			mutated[c.key] = c.value
			assert.False(t, verifier.Verify(raw, "sendMoney", mutated, nil, false))
		})
	}

	byNumber := data.Clone()
	byNumber["phasingWhitelisted"] = []string{formatUint(recipient.AccountID())}
	assert.True(t, verifier.Verify(raw, "sendMoney", byNumber, nil, false))
}

func TestValidatePhasingParamsWildcard(t *testing.T) {
	encode := func(params map[string]string) []byte {
		w := &writer{}
		w.putBytes([]byte{0xaa, 0xbb})
		encodePhasingParams(w, NewRequest(params), "control")
		raw, err := w.bytes()
		assert.Nil(t, err)
		return raw
	}

	wildcard := encode(map[string]string{"controlVotingModel": "0"})
	exactly := encode(map[string]string{"controlVotingModel": "0", "controlQuorum": "3", "controlMinBalance": "10", "controlHolding": "9", "controlMinBalanceModel": "1"})

	requested := NewRequest(map[string]string{
		"controlVotingModel": "0", "controlQuorum": "5", "controlMinBalance": "20", "controlHolding": "8", "controlMinBalanceModel": "2",
	})
	matching := NewRequest(map[string]string{
		"controlVotingModel": "0", "controlQuorum": "3", "controlMinBalance": "10", "controlHolding": "9", "controlMinBalanceModel": "1",
	})

	assert.Equal(t, len(wildcard), ValidatePhasingParams(wildcard, 2, requested, "control"))
	assert.Equal(t, InvalidPosition, ValidatePhasingParams(exactly, 2, requested, "control"))
	assert.Equal(t, len(exactly), ValidatePhasingParams(exactly, 2, matching, "control"))
	assert.Equal(t, InvalidPosition, ValidatePhasingParams(exactly[:len(exactly)-1], 2, matching, "control"))
	assert.Equal(t, InvalidPosition, ValidatePhasingParams(exactly, len(exactly)+1, matching, "control"))

	for _, key := range []string{"controlQuorum", "controlMinBalance", "controlHolding", "controlMinBalanceModel"} {
		t.Run(key, func(t *testing.T) {
			one := matching.Clone()
			one.Set(key, "4")
			assert.Equal(t, InvalidPosition, ValidatePhasingParams(exactly, 2, one, "control"))
			assert.Equal(t, len(wildcard), ValidatePhasingParams(wildcard, 2, one, "control"))
		})
	}
}

func TestVerifyRejectsByteOverflow(t *testing.T) {
	phased := map[string]string{
		"recipient": "123", "amountMQT": "10", "phasing": "true", "phasingFinishHeight": "5000",
		"phasingVotingModel": "0", "phasingQuorum": "1", "phasingMinBalance": "5", "phasingMinBalanceModel": "1",
	}
	cases := []struct {
		requestType string
		params      map[string]string
		key         string
		overflow    string
	}{
		{"shufflingCreate", map[string]string{"amount": "1000", "participantCount": "3", "registrationPeriod": "1440"}, "participantCount", "259"},
		{"issueAsset", map[string]string{"name": "coin", "description": "a coin", "quantityQNT": "1000000", "decimals": "2"}, "decimals", "258"},
		{"createPoll", map[string]string{"name": "poll", "description": "which one", "finishHeight": "2000", "option00": "a", "votingModel": "1", "maxNumberOfOptions": "1"}, "votingModel", "257"},
		{"sendMoney", phased, "phasingMinBalanceModel", "257"},
		{"shufflingCreate", map[string]string{"amount": "1000", "participantCount": "3", "registrationPeriod": "1440"}, "participantCount", "-253"},
	}
	for _, c := range cases {
		t.Run(c.requestType+"/"+c.key+"="+c.overflow, func(t *testing.T) {
			data := request(c.params, nil)
			raw := build(t, c.requestType, data)
			assert.True(t, verifier.Verify(raw, c.requestType, data, nil, false))

			overflowed := data.Clone()
			overflowed.Set(c.key, c.overflow)
			err := verifier.Check(raw, c.requestType, overflowed, nil, false)
			assert.ErrorIs(t, err, ErrFieldMismatch)
			assert.False(t, verifier.Verify(raw, c.requestType, overflowed, nil, false))

			withKey := overflowed.Clone()
			withKey.Set("publicKey", account.PublicKeyHex())
			h, err := HeaderFromRequest(withKey)
			assert.Nil(t, err)
			_, err = Build(c.requestType, h, withKey)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}

	signed := build(t, "issueAsset", request(map[string]string{"name": "coin", "description": "a coin", "quantityQNT": "1", "decimals": "-1"}, nil))
	assert.True(t, verifier.Verify(signed, "issueAsset", request(map[string]string{"name": "coin", "description": "a coin", "quantityQNT": "1", "decimals": "255"}, nil), nil, false))
}

func TestVerifyChecksPhasingParamsOnRawBytes(t *testing.T) {
	control := map[string]string{
		"controlVotingModel": "1", "controlQuorum": "2", "controlMaxFees": "100000000", "controlMinDuration": "10", "controlMaxDuration": "100",
	}
	multi := map[string][]string{"controlWhitelisted": {recipient.Address(), "42"}}
	data := request(control, multi)
	raw := build(t, "setPhasingOnlyControl", data)
	assert.Nil(t, verifier.Check(raw, "setPhasingOnlyControl", data, nil, false))

	cases := []struct {
		name  string
		key   string
		value []string
	}{
		{"whitelist order", "controlWhitelisted", []string{"42", recipient.Address()}},
		{"whitelist shorter", "controlWhitelisted", []string{recipient.Address()}},
		{"quorum", "controlQuorum", []string{"3"}},
		{"voting model", "controlVotingModel", []string{"2"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mutated := data.Clone()
			mutated[c.key] = c.value
			err := verifier.Check(raw, "setPhasingOnlyControl", mutated, nil, false)
			assert.ErrorIs(t, err, ErrFieldMismatch)
			assert.Contains(t, err.Error(), "control")
		})
	}

	t.Run("tampered quorum bytes", func(t *testing.T) {
		tampered := append([]byte{}, raw...)
		quorumAt := headerLength + 1 + 1 // version byte and voting model
		tampered[quorumAt]++
		assert.ErrorIs(t, verifier.Check(tampered, "setPhasingOnlyControl", data, nil, false), ErrFieldMismatch)
	})

	t.Run("phasing appendix", func(t *testing.T) {
		phased := request(map[string]string{
			"recipient": "123", "amountMQT": "10", "phasing": "true", "phasingFinishHeight": "5000",
			"phasingVotingModel": "0", "phasingQuorum": "1",
		}, map[string][]string{"phasingWhitelisted": {recipient.Address()}})
		raw := build(t, "sendMoney", phased)
		assert.Nil(t, verifier.Check(raw, "sendMoney", phased, nil, false))

		mutated := phased.Clone()
		mutated.Set("phasingQuorum", "2")
		err := verifier.Check(raw, "sendMoney", mutated, nil, false)
		assert.ErrorIs(t, err, ErrFieldMismatch)
		assert.Contains(t, err.Error(), "phasing")
	})
}

func TestBuildRejectsInvalidValues(t *testing.T) {
	data := NewRequest(map[string]string{"publicKey": account.PublicKeyHex(), "asset": "not a number", "quantityQNT": "1"})
	h, err := HeaderFromRequest(data)
	assert.Nil(t, err)
	_, err = Build("transferAsset", h, data)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = HeaderFromRequest(NewRequest(map[string]string{}))
	assert.ErrorIs(t, err, ErrPublicKeyMissing)
}

func BenchmarkVerifySendMoney(b *testing.B) {
	data := NewRequest(map[string]string{"recipient": "123", "amountMQT": "500000000", "feeMQT": "100000000", "deadline": "1440"})
	raw := build(b, "sendMoney", data)
	for n := 0; n < b.N; n++ {
		assert.True(b, verifier.Verify(raw, "sendMoney", data, nil, false))
	}
}
