// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listRequest struct {
	NFTID  string `json:"nft_id" validate:"required"`
	Seller string `json:"seller_address" validate:"required,xrpl_address"`
}

func TestClassicAddress(t *testing.T) {
	assert.True(t, IsClassicAddress("rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"))
	assert.False(t, IsClassicAddress("rHb9CJAWyB4rj91VRWn96DkukG4bwdtyT0"))
	assert.False(t, IsClassicAddress("xHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"))
	assert.False(t, IsClassicAddress("rShort"))
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	err := ValidateStruct(listRequest{Seller: "nope"})
	require.Error(t, err)

	errs := GetValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "nft_id", errs[0].Field)
	assert.Equal(t, "nft_id is required", errs[0].Message)
	assert.Equal(t, "seller_address", errs[1].Field)
	assert.Equal(t, "xrpl_address", errs[1].Tag)
}
