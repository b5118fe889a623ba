// internal/ledger/currency.go
package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const DropsPerXRP = 1_000_000

var dropsPerXRP = decimal.NewFromInt(DropsPerXRP)

// CurrencyCode maps a token name onto a ledger currency code. Three
// character names other than XRP are used as is; everything else is hex
// encoded and padded to 160 bits.
func CurrencyCode(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("token name is required")
	}
	if len(name) == 3 && strings.ToUpper(name) != "XRP" {
		return strings.ToUpper(name), nil
	}
	if len(name) > 20 {
		return "", fmt.Errorf("token name %q is longer than 20 bytes", name)
	}
	code := StrToHex(name)
	return code + strings.Repeat("0", 40-len(code)), nil
}

// XRPToDrops converts a major-unit amount. Amounts that do not land on a
// whole drop are rejected.
func XRPToDrops(xrp decimal.Decimal) (int64, error) {
	if !xrp.IsPositive() {
		return 0, fmt.Errorf("price must be positive")
	}
	drops := xrp.Mul(dropsPerXRP)
	if !drops.Equal(drops.Truncate(0)) {
		return 0, fmt.Errorf("price %s has more than 6 decimal places", xrp.String())
	}
	if !drops.LessThanOrEqual(decimal.NewFromInt(100_000_000_000 * DropsPerXRP)) {
		return 0, fmt.Errorf("price %s exceeds the XRP supply", xrp.String())
	}
	return drops.IntPart(), nil
}

func DropsToXRP(drops int64) decimal.Decimal {
	return decimal.NewFromInt(drops).Div(dropsPerXRP)
}

// StrToHex encodes s the way the ledger stores URIs and long currency codes.
func StrToHex(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}
