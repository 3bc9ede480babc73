package transaction

import "sort"

// fieldKind tells how an attachment field is laid out in the bytes.
type fieldKind uint8

const (
	kindByte           fieldKind = iota // one byte, signed
	kindInt16                           // two bytes, signed
	kindInt32                           // four bytes, signed
	kindUint64                          // eight bytes, unsigned id or amount
	kindString1                         // string with one byte length
	kindString2                         // string with two byte length
	kindHash                            // 32 bytes, lower case hex
	kindPollOptions                     // byte count, each option a kindString2, option00..optionNN
	kindVotes                           // byte count, each vote signed byte, vote00..voteNN
	kindApprovalHashes                  // byte count, each a 32 byte transactionFullHash
	kindRevealedSecret                  // int32 length and bytes, revealedSecret or revealedSecretText
	kindEncryptedGoods                  // int32 length with text bit, data and 32 byte nonce
	kindPhasingParams                   // phasing parameters, the field name is the prefix
)

// matchMode tells how a decoded field is compared with the request.
type matchMode uint8

const (
	matchExact       matchMode = iota // request value must be equal
	matchZeroDefault                  // absent request value counts as zero
	matchIgnore                       // decoded but not compared, the client cannot know the value
)

type field struct {
	name string
	kind fieldKind
	mode matchMode
}

// Kind describes a transaction request type and its attachment layout.
type Kind struct {
	RequestType string
	Type        byte
	Subtype     byte
	// Versioned attachments start with the attachment version byte.
	Versioned bool
	fields    []field
}

const (
	hashLength      = 32
	publicKeyLength = 32
)

func exact(name string, kind fieldKind) field {
	return field{name: name, kind: kind, mode: matchExact}
}

func zero(name string, kind fieldKind) field {
	return field{name: name, kind: kind, mode: matchZeroDefault}
}

var kinds = map[string]Kind{
	"sendMoney":   {RequestType: "sendMoney", Type: 0, Subtype: 0},
	"sendMessage": {RequestType: "sendMessage", Type: 1, Subtype: 0},
	"setAlias": {RequestType: "setAlias", Type: 1, Subtype: 1, Versioned: true, fields: []field{
		exact("aliasName", kindString1),
		exact("aliasURI", kindString2),
	}},
	"createPoll": {RequestType: "createPoll", Type: 1, Subtype: 2, Versioned: true, fields: []field{
		exact("name", kindString2),
		exact("description", kindString2),
		exact("finishHeight", kindInt32),
		exact("option", kindPollOptions),
		exact("votingModel", kindByte),
		zero("minNumberOfOptions", kindByte),
		zero("maxNumberOfOptions", kindByte),
		zero("minRangeValue", kindByte),
		zero("maxRangeValue", kindByte),
		zero("minBalance", kindUint64),
		zero("minBalanceModel", kindByte),
		zero("holding", kindUint64),
	}},
	"castVote": {RequestType: "castVote", Type: 1, Subtype: 3, Versioned: true, fields: []field{
		exact("poll", kindUint64),
		exact("vote", kindVotes),
	}},
	"setAccountInfo": {RequestType: "setAccountInfo", Type: 1, Subtype: 5, Versioned: true, fields: []field{
		exact("name", kindString1),
		exact("description", kindString2),
	}},
	"sellAlias": {RequestType: "sellAlias", Type: 1, Subtype: 6, Versioned: true, fields: []field{
		exact("aliasName", kindString1),
		exact("priceMQT", kindUint64),
	}},
	"buyAlias": {RequestType: "buyAlias", Type: 1, Subtype: 7, Versioned: true, fields: []field{
		exact("aliasName", kindString1),
	}},
	"deleteAlias": {RequestType: "deleteAlias", Type: 1, Subtype: 8, Versioned: true, fields: []field{
		exact("aliasName", kindString1),
	}},
	"approveTransaction": {RequestType: "approveTransaction", Type: 1, Subtype: 9, Versioned: true, fields: []field{
		exact("transactionFullHash", kindApprovalHashes),
		exact("revealedSecret", kindRevealedSecret),
	}},
	"setAccountProperty": {RequestType: "setAccountProperty", Type: 1, Subtype: 10, Versioned: true, fields: []field{
		exact("property", kindString1),
		exact("value", kindString1),
	}},
	"deleteAccountProperty": {RequestType: "deleteAccountProperty", Type: 1, Subtype: 11, Versioned: true, fields: []field{
		{name: "propertyId", kind: kindUint64, mode: matchIgnore},
	}},
	"issueAsset": {RequestType: "issueAsset", Type: 2, Subtype: 0, Versioned: true, fields: []field{
		exact("name", kindString1),
		exact("description", kindString2),
		exact("quantityQNT", kindUint64),
		zero("decimals", kindByte),
	}},
	"transferAsset": {RequestType: "transferAsset", Type: 2, Subtype: 1, Versioned: true, fields: []field{
		exact("asset", kindUint64),
		exact("quantityQNT", kindUint64),
	}},
	"placeAskOrder": {RequestType: "placeAskOrder", Type: 2, Subtype: 2, Versioned: true, fields: []field{
		exact("asset", kindUint64),
		exact("quantityQNT", kindUint64),
		exact("priceMQT", kindUint64),
	}},
	"placeBidOrder": {RequestType: "placeBidOrder", Type: 2, Subtype: 3, Versioned: true, fields: []field{
		exact("asset", kindUint64),
		exact("quantityQNT", kindUint64),
		exact("priceMQT", kindUint64),
	}},
	"cancelAskOrder": {RequestType: "cancelAskOrder", Type: 2, Subtype: 4, Versioned: true, fields: []field{
		exact("order", kindUint64),
	}},
	"cancelBidOrder": {RequestType: "cancelBidOrder", Type: 2, Subtype: 5, Versioned: true, fields: []field{
		exact("order", kindUint64),
	}},
	"dividendPayment": {RequestType: "dividendPayment", Type: 2, Subtype: 6, Versioned: true, fields: []field{
		exact("asset", kindUint64),
		exact("height", kindInt32),
		exact("amountMQTPerQNT", kindUint64),
	}},
	"deleteAssetShares": {RequestType: "deleteAssetShares", Type: 2, Subtype: 7, Versioned: true, fields: []field{
		exact("asset", kindUint64),
		exact("quantityQNT", kindUint64),
	}},
	"dgsListing": {RequestType: "dgsListing", Type: 3, Subtype: 0, Versioned: true, fields: []field{
		exact("name", kindString2),
		exact("description", kindString2),
		exact("tags", kindString2),
		exact("quantity", kindInt32),
		exact("priceMQT", kindUint64),
	}},
	"dgsDelisting": {RequestType: "dgsDelisting", Type: 3, Subtype: 1, Versioned: true, fields: []field{
		exact("goods", kindUint64),
	}},
	"dgsPriceChange": {RequestType: "dgsPriceChange", Type: 3, Subtype: 2, Versioned: true, fields: []field{
		exact("goods", kindUint64),
		exact("priceMQT", kindUint64),
	}},
	"dgsQuantityChange": {RequestType: "dgsQuantityChange", Type: 3, Subtype: 3, Versioned: true, fields: []field{
		exact("goods", kindUint64),
		exact("deltaQuantity", kindInt32),
	}},
	"dgsPurchase": {RequestType: "dgsPurchase", Type: 3, Subtype: 4, Versioned: true, fields: []field{
		exact("goods", kindUint64),
		exact("quantity", kindInt32),
		exact("priceMQT", kindUint64),
		exact("deliveryDeadlineTimestamp", kindInt32),
	}},
	"dgsDelivery": {RequestType: "dgsDelivery", Type: 3, Subtype: 5, Versioned: true, fields: []field{
		exact("purchase", kindUint64),
		exact("goods", kindEncryptedGoods),
		zero("discountMQT", kindUint64),
	}},
	"dgsFeedback": {RequestType: "dgsFeedback", Type: 3, Subtype: 6, Versioned: true, fields: []field{
		exact("purchase", kindUint64),
	}},
	"dgsRefund": {RequestType: "dgsRefund", Type: 3, Subtype: 7, Versioned: true, fields: []field{
		exact("purchase", kindUint64),
		exact("refundMQT", kindUint64),
	}},
	"leaseBalance": {RequestType: "leaseBalance", Type: 4, Subtype: 0, Versioned: true, fields: []field{
		exact("period", kindInt16),
	}},
	"setPhasingOnlyControl": {RequestType: "setPhasingOnlyControl", Type: 4, Subtype: 1, Versioned: true, fields: []field{
		exact("control", kindPhasingParams),
		zero("controlMaxFees", kindUint64),
		zero("controlMinDuration", kindInt16),
		zero("controlMaxDuration", kindInt16),
	}},
	"shufflingCreate": {RequestType: "shufflingCreate", Type: 7, Subtype: 0, Versioned: true, fields: []field{
		zero("holding", kindUint64),
		zero("holdingType", kindByte),
		exact("amount", kindUint64),
		exact("participantCount", kindByte),
		exact("registrationPeriod", kindInt16),
	}},
	"shufflingRegister": {RequestType: "shufflingRegister", Type: 7, Subtype: 1, Versioned: true, fields: []field{
		exact("shufflingFullHash", kindHash),
	}},
}

// KindOf returns the Kind of the transaction request type.
func KindOf(requestType string) (Kind, bool) {
	k, ok := kinds[requestType]
	return k, ok
}

// IsTransactionRequest tells if the request type creates a transaction.
func IsTransactionRequest(requestType string) bool {
	_, ok := kinds[requestType]
	return ok
}

// RequestTypes returns all transaction request types in alphabetical order.
func RequestTypes() []string {
	types := make([]string, 0, len(kinds))
	for k := range kinds {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}
