// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyInternalError      = "server.internal_error"
	KeyForbidden          = "auth.forbidden"
	KeyRateLimited        = "server.rate_limited"

	// Wallet sessions
	KeyAuthInvalidToken   = "auth.invalid_token"
	KeyAuthWalletMismatch = "auth.wallet_mismatch"

	// Wallets and tokens
	KeyWalletNotFound = "wallet.not_found"

	// Listings
	KeyListingNotFound          = "listing.not_found"
	KeyListingCreated           = "listing.created"
	KeyListingCancelled         = "listing.cancelled"
	KeyListingNotActive         = "listing.not_active"
	KeyListingNotOwned          = "listing.not_owned"
	KeyListingAlreadyListed     = "listing.already_listed"
	KeyListingSellerOnly        = "listing.seller_only"
	KeyListingAvailable         = "listing.available"
	KeyListingBuyTemplate       = "listing.buy_template"
	KeyListingPurchaseCompleted = "listing.purchase_completed"
	KeyListingPending           = "listing.pending"

	// Offers
	KeyOfferNotFound       = "offer.not_found"
	KeyOfferTemplate       = "offer.template"
	KeyOfferTracked        = "offer.tracked"
	KeyOfferAcceptTemplate = "offer.accept_template"
	KeyOfferSold           = "offer.sold"
	KeyOfferCancelled      = "offer.cancelled"

	// NFTs and metadata
	KeyMetadataNotFound = "metadata.not_found"
	KeyNFTMintTemplate  = "nft.mint_template"
	KeyNFTSubmitted     = "nft.submitted"
)
