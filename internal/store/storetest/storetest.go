// internal/store/storetest/storetest.go

// Package storetest holds behaviour checks every document store backend
// must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Documents) {
	t.Run("MetadataUniqueness", func(t *testing.T) { testMetadataUniqueness(t, newStore(t)) })
	t.Run("OneActiveListingPerNFT", func(t *testing.T) { testOneActiveListingPerNFT(t, newStore(t)) })
	t.Run("OffersDoNotBlockEachOther", func(t *testing.T) { testOffers(t, newStore(t)) })
	t.Run("TransitionIsCompareAndSet", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("NFTRecords", func(t *testing.T) { testNFTs(t, newStore(t)) })
}

func newListing(nftID string) *models.Sale {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Sale{
		ListingID:     uuid.NewString(),
		Mechanism:     models.SaleMechanismLegacyPaymentTransfer,
		NFTID:         nftID,
		SellerAddress: "rSeller",
		PriceDrops:    1_000_000,
		Status:        models.SaleStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testMetadataUniqueness(t *testing.T, s store.Documents) {
	ctx := context.Background()
	doc := &models.MetadataDocument{
		ID:        uuid.NewString(),
		Hash:      "0123456789abcdef",
		Metadata:  map[string]interface{}{"name": "Deed"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.InsertMetadata(ctx, doc))

	dup := *doc
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.InsertMetadata(ctx, &dup), store.ErrDuplicate)

	byHash, err := s.FindMetadataByHash(ctx, doc.Hash)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byHash.ID)
	assert.Equal(t, "Deed", byHash.Metadata["name"])

	byID, err := s.FindMetadataByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Hash, byID.Hash)

	_, err = s.FindMetadataByHash(ctx, "ffffffffffffffff")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOneActiveListingPerNFT(t *testing.T, s store.Documents) {
	ctx := context.Background()
	first := newListing("NFT-1")
	require.NoError(t, s.InsertSale(ctx, first))
	assert.ErrorIs(t, s.InsertSale(ctx, newListing("NFT-1")), store.ErrDuplicate)
	require.NoError(t, s.InsertSale(ctx, newListing("NFT-2")))

	_, err := s.TransitionSale(ctx, first.ListingID, models.SaleStatusActive, models.SaleStatusCancelled, models.SaleUpdate{}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.InsertSale(ctx, newListing("NFT-1")))

	active, err := s.ListSales(ctx, store.SaleFilter{Status: models.SaleStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func testOffers(t *testing.T, s store.Documents) {
	ctx := context.Background()
	for _, offerID := range []string{"OFFER-A", "OFFER-B"} {
		sale := newListing("NFT-9")
		sale.Mechanism = models.SaleMechanismNativeOffer
		sale.OfferID = offerID
		require.NoError(t, s.InsertSale(ctx, sale))
	}

	again := newListing("NFT-9")
	again.Mechanism = models.SaleMechanismNativeOffer
	again.OfferID = "OFFER-A"
	assert.ErrorIs(t, s.InsertSale(ctx, again), store.ErrDuplicate)

	found, err := s.FindSaleByOfferID(ctx, "OFFER-B")
	require.NoError(t, err)
	assert.Equal(t, "NFT-9", found.NFTID)

	offers, err := s.ListSales(ctx, store.SaleFilter{
		Status:    models.SaleStatusActive,
		Mechanism: models.SaleMechanismNativeOffer,
		NFTID:     "NFT-9",
	})
	require.NoError(t, err)
	assert.Len(t, offers, 2)
}

func testTransition(t *testing.T, s store.Documents) {
	ctx := context.Background()
	sale := newListing("NFT-3")
	require.NoError(t, s.InsertSale(ctx, sale))

	recorded, err := s.RecordSettlement(ctx, sale.ListingID, "rBuyer", []string{"H1", "H2"}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []string{"H1", "H2"}, recorded.SettlementTxHash)

	updated, err := s.TransitionSale(ctx, sale.ListingID, models.SaleStatusActive, models.SaleStatusCompleted, models.SaleUpdate{
		BuyerAddress: "rBuyer",
		Extra:        map[string]interface{}{"note": "done"},
	}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, updated.Status)
	assert.Equal(t, "rBuyer", updated.BuyerAddress)
	assert.Equal(t, "done", updated.Extra["note"])

	_, err = s.TransitionSale(ctx, sale.ListingID, models.SaleStatusActive, models.SaleStatusCancelled, models.SaleUpdate{}, time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrStatusChanged)

	_, err = s.TransitionSale(ctx, "missing", models.SaleStatusActive, models.SaleStatusCancelled, models.SaleUpdate{}, time.Now().UTC())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testNFTs(t *testing.T, s store.Documents) {
	ctx := context.Background()
	nft := &models.NFTRecord{
		NFTID:           uuid.NewString(),
		Account:         "rMinter",
		URI:             "RWA-XRPL_REAL_WORLD-ART-0123456789abcdef",
		TransactionHash: "MINTHASH",
		Status:          models.NFTStatusMinted,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, s.InsertNFT(ctx, nft))
	require.NoError(t, s.SetNFTokenID(ctx, nft.NFTID, "000800"))
	require.NoError(t, s.UpdateNFTStatus(ctx, "MINTHASH", models.NFTStatusFailed))
	assert.ErrorIs(t, s.SetNFTokenID(ctx, "missing", "x"), store.ErrNotFound)

	nfts, err := s.FindNFTsByAccount(ctx, "rMinter")
	require.NoError(t, err)
	require.Len(t, nfts, 1)
	assert.Equal(t, "000800", nfts[0].NFTokenID)
	assert.Equal(t, models.NFTStatusFailed, nfts[0].Status)
	assert.NotNil(t, nfts[0].UpdatedAt)

	none, err := s.FindNFTsByAccount(ctx, "rNobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
