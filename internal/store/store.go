// internal/store/store.go

// Package store defines the document-store contracts shared by the MongoDB
// backend and the in-process backend used for development and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/javajoker/rwa-backend/internal/models"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("duplicate document")
	ErrStatusChanged = errors.New("document status changed concurrently")
)

type MetadataRepository interface {
	// InsertMetadata fails with ErrDuplicate when the hash or id exists.
	InsertMetadata(ctx context.Context, doc *models.MetadataDocument) error
	FindMetadataByHash(ctx context.Context, hash string) (*models.MetadataDocument, error)
	FindMetadataByID(ctx context.Context, id string) (*models.MetadataDocument, error)
}

type SaleFilter struct {
	Status    models.SaleStatus
	Mechanism models.SaleMechanism
	NFTID     string
}

type SaleRepository interface {
	// InsertSale fails with ErrDuplicate when a legacy listing for the same
	// NFT is already active or the offer id is already tracked.
	InsertSale(ctx context.Context, sale *models.Sale) error
	FindSale(ctx context.Context, listingID string) (*models.Sale, error)
	FindSaleByOfferID(ctx context.Context, offerID string) (*models.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]models.Sale, error)
	// TransitionSale applies the update only while the sale is still in
	// status from. It returns ErrStatusChanged otherwise.
	TransitionSale(ctx context.Context, listingID string, from, to models.SaleStatus, update models.SaleUpdate, at time.Time) (*models.Sale, error)
	// RecordSettlement attaches buyer and settlement hashes to an active sale.
	RecordSettlement(ctx context.Context, listingID, buyer string, txHashes []string, at time.Time) (*models.Sale, error)
}

type NFTRepository interface {
	InsertNFT(ctx context.Context, nft *models.NFTRecord) error
	FindNFTsByAccount(ctx context.Context, account string) ([]models.NFTRecord, error)
	SetNFTokenID(ctx context.Context, nftID, nftokenID string) error
	UpdateNFTStatus(ctx context.Context, txHash string, status models.NFTStatus) error
}

// Documents is the full document store.
type Documents interface {
	MetadataRepository
	SaleRepository
	NFTRepository
	Close(ctx context.Context) error
}

// ApplySaleUpdate merges an update into sale in place.
func ApplySaleUpdate(sale *models.Sale, to models.SaleStatus, update models.SaleUpdate, at time.Time) {
	sale.Status = to
	sale.UpdatedAt = at
	if update.BuyerAddress != "" {
		sale.BuyerAddress = update.BuyerAddress
	}
	if len(update.SettlementTxHash) > 0 {
		sale.SettlementTxHash = update.SettlementTxHash
	}
	if update.Reason != "" {
		sale.Reason = update.Reason
	}
	if len(update.Extra) > 0 {
		if sale.Extra == nil {
			sale.Extra = make(map[string]interface{}, len(update.Extra))
		}
		for k, v := range update.Extra {
			sale.Extra[k] = v
		}
	}
}
