// internal/models/sale.go
package models

import (
	"time"
)

// SaleMechanism tags how the NFT changes hands on the ledger.
type SaleMechanism string

const (
	// Buyer pays the seller, seller transfers through a zero-amount offer.
	SaleMechanismLegacyPaymentTransfer SaleMechanism = "legacy_payment_transfer"
	// Seller posts a sell offer on the ledger, buyer accepts it.
	SaleMechanismNativeOffer SaleMechanism = "native_offer"
)

type SaleStatus string

const (
	SaleStatusActive    SaleStatus = "active"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusSold      SaleStatus = "sold"
	SaleStatusInvalid   SaleStatus = "invalid"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusActive, SaleStatusCompleted, SaleStatusCancelled, SaleStatusSold, SaleStatusInvalid:
		return true
	}
	return false
}

// Sale is a marketplace listing or a tracked ledger sell offer. Records are
// never deleted; only their status moves.
type Sale struct {
	ListingID        string                 `json:"listing_id" bson:"listing_id"`
	Mechanism        SaleMechanism          `json:"mechanism" bson:"mechanism"`
	NFTID            string                 `json:"nft_id" bson:"nft_id"`
	SellerAddress    string                 `json:"seller_address" bson:"seller_address"`
	PriceDrops       int64                  `json:"price_drops" bson:"price_drops"`
	MetadataHash     string                 `json:"metadata_hash,omitempty" bson:"metadata_hash,omitempty"`
	Status           SaleStatus             `json:"status" bson:"status"`
	OfferID          string                 `json:"offer_id,omitempty" bson:"offer_id,omitempty"`
	OfferTxHash      string                 `json:"transaction_hash,omitempty" bson:"transaction_hash,omitempty"`
	BuyerAddress     string                 `json:"buyer_address,omitempty" bson:"buyer_address,omitempty"`
	SettlementTxHash []string               `json:"settlement_tx_hashes,omitempty" bson:"settlement_tx_hashes,omitempty"`
	Reason           string                 `json:"reason,omitempty" bson:"reason,omitempty"`
	Extra            map[string]interface{} `json:"extra,omitempty" bson:"extra,omitempty"`
	CreatedAt        time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" bson:"updated_at"`

	// Resolved on read from the metadata store.
	Metadata interface{} `json:"metadata,omitempty" bson:"-"`
}

// SaleUpdate is merged into a sale together with a status change.
type SaleUpdate struct {
	BuyerAddress     string
	SettlementTxHash []string
	Reason           string
	Extra            map[string]interface{}
}
