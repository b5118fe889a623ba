// internal/ledger/currency_test.go
package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXRPToDrops(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.5", 12_500_000, false},
		{"1.0", 1_000_000, false},
		{"0.01", 10_000, false},
		{"0.1", 100_000, false},
		{"19.99", 19_990_000, false},
		{"0.000001", 1, false},
		{"0.0000001", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := XRPToDrops(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDropsToXRP(t *testing.T) {
	assert.Equal(t, "12.5", DropsToXRP(12_500_000).String())
}

func TestCurrencyCode(t *testing.T) {
	code, err := CurrencyCode("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", code)

	code, err = CurrencyCode("GoldBar")
	require.NoError(t, err)
	assert.Len(t, code, 40)
	assert.Equal(t, "476F6C64426172", code[:14])

	code, err = CurrencyCode("xrp")
	require.NoError(t, err)
	assert.Len(t, code, 40)

	_, err = CurrencyCode("")
	assert.Error(t, err)
	_, err = CurrencyCode("a name that is far too long")
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	mint := NFTMintTemplate("rMinter", "RWA-XRPL", 0, 0, 0)
	assert.Equal(t, "NFTokenMint", mint.TransactionType)
	assert.Equal(t, StrToHex("RWA-XRPL"), mint.Template["URI"])
	assert.Equal(t, uint32(TfTransferable), mint.Template["Flags"])
	assert.Equal(t, "10", mint.Instructions.Fee)
	assert.Nil(t, mint.Instructions.Sequence)

	transfer := NFTTransferOfferTemplate("rSeller", "rBuyer", "NFT1")
	assert.Equal(t, "0", transfer.Template["Amount"])
	assert.Equal(t, "rBuyer", transfer.Template["Destination"])

	sell := NFTSellOfferTemplate("rSeller", "NFT1", 2_000_000, 0, "")
	assert.Equal(t, "2000000", sell.Template["Amount"])
	assert.NotContains(t, sell.Template, "Destination")
	assert.NotContains(t, sell.Template, "Expiration")

	pay := PaymentTemplate("rBuyer", "rSeller", 1_000_000)
	assert.Equal(t, "1000000", pay.Template["Amount"])
	assert.Equal(t, "Payment", pay.Template["TransactionType"])
}
