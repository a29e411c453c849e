package x12

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseX12Decimal parses an X12 numeric element with implied decimals: a
// value with no decimal point is divided by 10^impliedPlaces ("1500" ->
// 15.00), a value with a decimal point is taken verbatim ("15.00" ->
// 15.00), and a malformed value yields 0.00 plus warned=true rather than
// an error, per the original parse_x12_decimal behavior.
func ParseX12Decimal(value string, impliedPlaces int32) (result decimal.Decimal, warned bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, false
	}

	if strings.Contains(value, ".") {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, true
		}
		return d, false
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, true
	}
	divisor := decimal.New(1, impliedPlaces)
	return d.DivRound(divisor, impliedPlaces+2), false
}
