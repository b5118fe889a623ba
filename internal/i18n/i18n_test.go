// internal/i18n/i18n_test.go
package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogsCoverEveryKey(t *testing.T) {
	require.NoError(t, Initialize())

	keys := []string{
		KeyWalletNotFound, KeyListingNotFound, KeyListingNotOwned, KeyOfferNotFound,
		KeyMetadataNotFound, KeyInternalError, KeyListingPending,
	}
	for _, lang := range GetSupportedLanguages() {
		for _, key := range keys {
			assert.NotEqual(t, key, T(lang, key), "%s missing in %s", key, lang)
		}
	}
}

func TestFallbackAndFormatting(t *testing.T) {
	assert.Equal(t, "Wallet not found", T("fr", KeyWalletNotFound))
	assert.Equal(t, "nft_id is required", T("en", KeyValidationRequired, "nft_id"))
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
}
