package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimals is the number of decimal places of MTR, one MTR is 10^8 MQT.
const Decimals = 8

const base = 100000000

var (
	ErrMalformedAmount = errors.New("amount is not a valid number")
	ErrValueOverflow   = errors.New("value overflow")
)

// MQT is an amount given in base units.
type MQT int64

// String returns the amount in MTR with trailing fraction zeros removed.
func (m MQT) String() string {
	return FromBase(int64(m))
}

// Field maps a user facing MTR field to the base unit field sent to the node.
type Field struct {
	From string
	To   string
}

// Fields is the conversion table applied to every request.
var Fields = []Field{
	{"feeMTR", "feeMQT"},
	{"amountMTR", "amountMQT"},
	{"priceMTR", "priceMQT"},
	{"refundMTR", "refundMQT"},
	{"discountMTR", "discountMQT"},
	{"phasingQuorumMTR", "phasingQuorum"},
	{"phasingMinBalanceMTR", "phasingMinBalance"},
	{"controlQuorumMTR", "controlQuorum"},
	{"controlMinBalanceMTR", "controlMinBalance"},
	{"controlMaxFeesMTR", "controlMaxFees"},
	{"minBalanceMTR", "minBalance"},
	{"shufflingAmountMTR", "amount"},
	{"monitorAmountMTR", "amount"},
	{"monitorThresholdMTR", "threshold"},
}

// ToBase converts decimal MTR string to base units.
// Fraction digits beyond Decimals are dropped, only digits and a single dot are accepted.
func ToBase(decimal string) (MQT, error) {
	whole, fraction, _ := strings.Cut(decimal, ".")
	if !digitsOnly(whole) || !digitsOnly(fraction) {
		return 0, errors.Join(ErrMalformedAmount, fmt.Errorf("%q", decimal))
	}
	if len(fraction) > Decimals {
		fraction = fraction[:Decimals]
	}
	fraction += strings.Repeat("0", Decimals-len(fraction))

	digits := strings.TrimLeft(whole+fraction, "0")
	if digits == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrValueOverflow, fmt.Errorf("%q", decimal))
	}
	return MQT(v), nil
}

// FromBase converts base units to decimal MTR string.
func FromBase(mqt int64) string {
	if mqt == math.MinInt64 {
		return "-92233720368.54775808"
	}
	sign := ""
	if mqt < 0 {
		sign = "-"
		mqt = -mqt
	}
	whole := mqt / base
	fraction := mqt % base
	if fraction == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	f := strings.TrimRight(fmt.Sprintf("%08d", fraction), "0")
	return sign + strconv.FormatInt(whole, 10) + "." + f
}

// ConvertFields replaces every MTR field found in the data with its base unit counterpart.
// On the first malformed value the data is left untouched and the error names the field.
func ConvertFields(data map[string][]string) error {
	converted := make(map[string]string)
	var remove []string
	for _, f := range Fields {
		vs, ok := data[f.From]
		if !ok {
			continue
		}
		value := ""
		if len(vs) > 0 {
			value = vs[0]
		}
		mqt, err := ToBase(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.From, err)
		}
		converted[f.To] = strconv.FormatInt(int64(mqt), 10)
		remove = append(remove, f.From)
	}
	for _, k := range remove {
		delete(data, k)
	}
	for k, v := range converted {
		data[k] = []string{v}
	}
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
