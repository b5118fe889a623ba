// internal/services/marketplace_service_test.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/ledger/ledgertest"
	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store/memstore"
)

const (
	testSeller = "rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY"
	testBuyer  = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	testNFT    = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000001"
)

type MarketplaceServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	docs     *memstore.Store
	gateway  *ledgertest.Gateway
	metadata *MetadataService
	service  *MarketplaceService
	metaHash string
}

func (s *MarketplaceServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.docs = memstore.New()
	s.gateway = ledgertest.New()
	s.metadata = NewMetadataService(s.docs, nil)
	s.service = NewMarketplaceService(s.docs, s.metadata, s.gateway)

	hash, _, err := s.metadata.Store(s.ctx, map[string]interface{}{"name": "Gold Deed", "asset_type": "REAL_ESTATE"})
	s.Require().NoError(err)
	s.metaHash = hash

	s.gateway.Own(testSeller, testNFT)
}

func (s *MarketplaceServiceTestSuite) list(price string) *models.Sale {
	sale, err := s.service.CreateListing(s.ctx, testNFT, testSeller, decimal.RequireFromString(price), s.metaHash)
	s.Require().NoError(err)
	return sale
}

func (s *MarketplaceServiceTestSuite) setTx(hash, txType, account, destination string, drops string, validated bool) {
	tx := &ledger.TxStatus{
		Hash:            hash,
		Validated:       validated,
		Result:          ledger.ResultSuccess,
		TransactionType: txType,
		Account:         account,
		Destination:     destination,
	}
	if drops != "" {
		tx.Amount = json.RawMessage(`"` + drops + `"`)
	}
	s.gateway.SetTx(tx)
}

// setTransferTx registers the seller's zero-amount sell offer for nftID.
func (s *MarketplaceServiceTestSuite) setTransferTx(hash, nftID, destination string) {
	s.gateway.SetTx(&ledger.TxStatus{
		Hash:            hash,
		Validated:       true,
		Result:          ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenCreateOffer,
		Account:         testSeller,
		Destination:     destination,
		Amount:          json.RawMessage(`"0"`),
		NFTokenID:       nftID,
		Flags:           ledger.TfSellNFToken,
	})
}

func (s *MarketplaceServiceTestSuite) TestCreateListingConvertsPriceToDrops() {
	sale := s.list("12.5")

	assert.Equal(s.T(), int64(12500000), sale.PriceDrops)
	assert.Equal(s.T(), models.SaleStatusActive, sale.Status)
	assert.Equal(s.T(), models.SaleMechanismLegacyPaymentTransfer, sale.Mechanism)
	assert.Equal(s.T(), "12.5", PriceXRP(sale.PriceDrops))
}

func (s *MarketplaceServiceTestSuite) TestCreateListingRejectsBadPrices() {
	for _, price := range []string{"0", "-1", "0.0000001"} {
		_, err := s.service.CreateListing(s.ctx, testNFT, testSeller, decimal.RequireFromString(price), s.metaHash)
		assert.ErrorIs(s.T(), err, ErrValidation, price)
	}
}

func (s *MarketplaceServiceTestSuite) TestDuplicateListingUntilCancelled() {
	first := s.list("10")

	_, err := s.service.CreateListing(s.ctx, testNFT, testSeller, decimal.NewFromInt(11), s.metaHash)
	assert.ErrorIs(s.T(), err, ErrConflict)

	_, err = s.service.CancelListing(s.ctx, first.ListingID, testSeller)
	s.Require().NoError(err)

	second := s.list("11")
	assert.NotEqual(s.T(), first.ListingID, second.ListingID)
}

func (s *MarketplaceServiceTestSuite) TestConcurrentCreateListingOnlyOneSucceeds() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, conflicts := 0, 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CreateListing(s.ctx, testNFT, testSeller, decimal.NewFromInt(5), s.metaHash)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(s.T(), 1, succeeded)
	assert.Equal(s.T(), 9, conflicts)
}

func (s *MarketplaceServiceTestSuite) TestCancelListingRequiresSeller() {
	sale := s.list("3")

	_, err := s.service.CancelListing(s.ctx, sale.ListingID, testBuyer)
	assert.ErrorIs(s.T(), err, ErrForbidden)

	_, err = s.service.CancelListing(s.ctx, "missing", testSeller)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *MarketplaceServiceTestSuite) TestTerminalStatusCannotChange() {
	sale := s.list("3")

	_, err := s.service.UpdateListingStatus(s.ctx, sale.ListingID, models.SaleStatusCompleted, models.SaleUpdate{BuyerAddress: testBuyer})
	s.Require().NoError(err)

	_, err = s.service.UpdateListingStatus(s.ctx, sale.ListingID, models.SaleStatusCancelled, models.SaleUpdate{})
	var transitionErr *InvalidTransitionError
	s.Require().ErrorAs(err, &transitionErr)
	assert.Equal(s.T(), models.SaleStatusCompleted, transitionErr.From)
	assert.Equal(s.T(), models.SaleStatusCancelled, transitionErr.To)

	_, err = s.service.UpdateListingStatus(s.ctx, sale.ListingID, "bogus", models.SaleUpdate{})
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *MarketplaceServiceTestSuite) TestUpdateListingStatusMergesExtra() {
	sale := s.list("3")

	updated, err := s.service.UpdateListingStatus(s.ctx, sale.ListingID, models.SaleStatusInvalid, models.SaleUpdate{
		Reason: "manual review",
		Extra:  map[string]interface{}{"ticket": "42"},
	})
	s.Require().NoError(err)
	assert.Equal(s.T(), "manual review", updated.Reason)
	assert.Equal(s.T(), "42", updated.Extra["ticket"])
}

func (s *MarketplaceServiceTestSuite) TestListingsCarryMetadata() {
	sale := s.list("3")

	listings, err := s.service.GetActiveListings(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listings, 1)
	assert.Equal(s.T(), "Gold Deed", listings[0].Metadata.(map[string]interface{})["name"])

	s.docs.ReplaceMetadataPayload(s.metaHash, map[string]interface{}{"name": "Tampered"})
	got, err := s.service.GetListing(s.ctx, sale.ListingID)
	s.Require().NoError(err)
	assert.Equal(s.T(), map[string]interface{}{"error": "Metadata not found"}, got.Metadata)
}

func (s *MarketplaceServiceTestSuite) TestValidatePurchaseInvalidatesMovedNFT() {
	sale := s.list("3")
	s.gateway.Disown(testSeller, testNFT)

	_, err := s.service.ValidatePurchase(s.ctx, sale.ListingID)
	assert.ErrorIs(s.T(), err, ErrNoLongerOwned)

	stored, err := s.service.GetListing(s.ctx, sale.ListingID)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusInvalid, stored.Status)
	assert.Equal(s.T(), reasonNoLongerOwned, stored.Reason)

	_, err = s.service.ValidatePurchase(s.ctx, sale.ListingID)
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *MarketplaceServiceTestSuite) TestPrepareBuyReturnsBothTemplates() {
	sale := s.list("12.5")

	templates, err := s.service.PrepareBuy(s.ctx, sale.ListingID, testBuyer)
	s.Require().NoError(err)

	assert.Equal(s.T(), ledger.TxPayment, templates.PaymentTemplate.TransactionType)
	assert.Equal(s.T(), "12500000", templates.PaymentTemplate.Template["Amount"])
	assert.Equal(s.T(), testSeller, templates.PaymentTemplate.Template["Destination"])
	assert.Equal(s.T(), ledger.TxNFTokenCreateOffer, templates.NFTOfferTemplate.TransactionType)
	assert.Equal(s.T(), "0", templates.NFTOfferTemplate.Template["Amount"])
	assert.Equal(s.T(), testBuyer, templates.NFTOfferTemplate.Template["Destination"])

	_, err = s.service.PrepareBuy(s.ctx, sale.ListingID, testSeller)
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *MarketplaceServiceTestSuite) TestCompletePurchaseVerifiesLedger() {
	sale := s.list("2")

	_, err := s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	assert.ErrorIs(s.T(), err, ErrPending)

	s.setTx("PAY", ledger.TxPayment, testBuyer, testSeller, "1000000", true)
	s.setTransferTx("XFER", testNFT, testBuyer)
	_, err = s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	assert.ErrorIs(s.T(), err, ErrValidation)

	s.setTx("PAY", ledger.TxPayment, testBuyer, testSeller, "2000000", true)
	completed, err := s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusCompleted, completed.Status)
	assert.Equal(s.T(), testBuyer, completed.BuyerAddress)
	assert.Equal(s.T(), []string{"PAY", "XFER"}, completed.SettlementTxHash)

	again, err := s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	s.Require().NoError(err)
	assert.Equal(s.T(), completed.ListingID, again.ListingID)
}

func (s *MarketplaceServiceTestSuite) TestCompletePurchaseRejectsForeignTransactions() {
	sale := s.list("2")

	s.setTx("PAY", ledger.TxPayment, testSeller, testSeller, "2000000", true)
	s.setTransferTx("XFER", testNFT, testBuyer)

	_, err := s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	assert.ErrorIs(s.T(), err, ErrValidation)

	stored, err := s.service.GetListing(s.ctx, sale.ListingID)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusActive, stored.Status)
}

func (s *MarketplaceServiceTestSuite) TestCompletePurchaseRequiresTransferOfThisNFTToBuyer() {
	sale := s.list("2")
	s.setTx("PAY", ledger.TxPayment, testBuyer, testSeller, "2000000", true)

	s.setTransferTx("XFER", "000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000099", testBuyer)
	_, err := s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	assert.ErrorIs(s.T(), err, ErrValidation)

	s.setTransferTx("XFER", testNFT, testSeller)
	_, err = s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	assert.ErrorIs(s.T(), err, ErrValidation)

	s.gateway.SetTx(&ledger.TxStatus{
		Hash:            "XFER",
		Validated:       true,
		Result:          ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenCreateOffer,
		Account:         testSeller,
		Destination:     testBuyer,
		NFTokenID:       testNFT,
	})
	_, err = s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, "PAY", "XFER")
	assert.ErrorIs(s.T(), err, ErrValidation)

	stored, err := s.service.GetListing(s.ctx, sale.ListingID)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusActive, stored.Status)
}

func (s *MarketplaceServiceTestSuite) TestSubmitBuyPendingThenComplete() {
	sale := s.list("1")

	result, err := s.service.SubmitBuy(s.ctx, sale.ListingID, testBuyer, "SIGNED-PAY", "SIGNED-XFER")
	s.Require().NoError(err)
	assert.True(s.T(), result.Pending)
	assert.Equal(s.T(), []string{"SIGNED-PAY", "SIGNED-XFER"}, s.gateway.Submitted)

	payHash := ledgertest.HashOf("SIGNED-PAY")
	xferHash := ledgertest.HashOf("SIGNED-XFER")
	assert.Equal(s.T(), []string{payHash, xferHash}, result.Listing.SettlementTxHash)

	s.setTx(payHash, ledger.TxPayment, testBuyer, testSeller, "1000000", true)
	s.setTransferTx(xferHash, testNFT, testBuyer)

	completed, err := s.service.CompletePurchase(s.ctx, sale.ListingID, testBuyer, payHash, xferHash)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusCompleted, completed.Status)
}

func (s *MarketplaceServiceTestSuite) TestSubmitBuyStopsOnRejectedPayment() {
	sale := s.list("1")
	s.gateway.SubmitResults["BAD-PAY"] = "tecUNFUNDED_PAYMENT"

	_, err := s.service.SubmitBuy(s.ctx, sale.ListingID, testBuyer, "BAD-PAY", "SIGNED-XFER")
	var submitErr *ledger.SubmitError
	s.Require().ErrorAs(err, &submitErr)
	assert.Equal(s.T(), "tecUNFUNDED_PAYMENT", submitErr.EngineResult)
	assert.Equal(s.T(), []string{"BAD-PAY"}, s.gateway.Submitted)
}

func (s *MarketplaceServiceTestSuite) setOfferTx(txHash, offerID, drops, nftID string, flags uint32) {
	s.gateway.SetTx(&ledger.TxStatus{
		Hash:            txHash,
		Validated:       true,
		Result:          ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenCreateOffer,
		Account:         testSeller,
		Amount:          json.RawMessage(`"` + drops + `"`),
		NFTokenID:       nftID,
		Flags:           flags,
		OfferID:         offerID,
	})
}

func (s *MarketplaceServiceTestSuite) trackOffer(txHash, offerID, drops string) (*models.Sale, error) {
	s.setOfferTx(txHash, offerID, drops, testNFT, ledger.TfSellNFToken)
	return s.service.TrackNFTOffer(s.ctx, TrackOfferInput{
		TxHash:        txHash,
		NFTID:         testNFT,
		SellerAddress: testSeller,
		PriceXRP:      decimal.NewFromInt(5),
		MetadataHash:  s.metaHash,
	})
}

func (s *MarketplaceServiceTestSuite) TestTrackOfferUsesLedgerOfferID() {
	offer, err := s.trackOffer("OFFERTX", "OFFER1", "5000000")
	s.Require().NoError(err)
	assert.Equal(s.T(), "OFFER1", offer.OfferID)
	assert.Equal(s.T(), models.SaleMechanismNativeOffer, offer.Mechanism)

	_, err = s.trackOffer("OFFERTX", "OFFER1", "5000000")
	assert.ErrorIs(s.T(), err, ErrConflict)

	offers, err := s.service.GetActiveOffersForNFT(s.ctx, testNFT)
	s.Require().NoError(err)
	assert.Len(s.T(), offers, 1)

	all, err := s.service.GetAllActiveOffers(s.ctx)
	s.Require().NoError(err)
	assert.Len(s.T(), all, 1)
}

func (s *MarketplaceServiceTestSuite) TestTrackOfferRejectsMismatchedPrice() {
	_, err := s.trackOffer("OFFERTX", "OFFER1", "4000000")
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *MarketplaceServiceTestSuite) TestTrackOfferRejectsOfferForAnotherNFT() {
	s.setOfferTx("OFFERTX", "OFFER1", "5000000", "000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000099", ledger.TfSellNFToken)

	_, err := s.service.TrackNFTOffer(s.ctx, TrackOfferInput{
		TxHash:        "OFFERTX",
		NFTID:         testNFT,
		SellerAddress: testSeller,
		PriceXRP:      decimal.NewFromInt(5),
	})
	assert.ErrorIs(s.T(), err, ErrValidation)

	offers, err := s.service.GetAllActiveOffers(s.ctx)
	s.Require().NoError(err)
	assert.Empty(s.T(), offers)
}

func (s *MarketplaceServiceTestSuite) TestTrackOfferRejectsBuyOffer() {
	s.setOfferTx("OFFERTX", "OFFER1", "5000000", testNFT, 0)

	_, err := s.service.TrackNFTOffer(s.ctx, TrackOfferInput{
		TxHash:        "OFFERTX",
		NFTID:         testNFT,
		SellerAddress: testSeller,
		PriceXRP:      decimal.NewFromInt(5),
	})
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *MarketplaceServiceTestSuite) TestTrackOfferRequiresValidatedTx() {
	_, err := s.service.TrackNFTOffer(s.ctx, TrackOfferInput{
		TxHash:        "UNKNOWN",
		NFTID:         testNFT,
		SellerAddress: testSeller,
		PriceXRP:      decimal.NewFromInt(5),
	})
	assert.ErrorIs(s.T(), err, ErrPending)
}

func (s *MarketplaceServiceTestSuite) TestOfferAcceptFlow() {
	_, err := s.trackOffer("OFFERTX", "OFFER1", "5000000")
	s.Require().NoError(err)

	template, offer, err := s.service.PrepareAcceptOffer(s.ctx, "OFFER1", testBuyer)
	s.Require().NoError(err)
	assert.Equal(s.T(), ledger.TxNFTokenAcceptOffer, template.TransactionType)
	assert.Equal(s.T(), "OFFER1", template.Template["NFTokenSellOffer"])
	assert.Equal(s.T(), "OFFER1", offer.OfferID)

	s.gateway.SetTx(&ledger.TxStatus{
		Hash:            "ACCEPT",
		Validated:       true,
		Result:          ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenAcceptOffer,
		Account:         testBuyer,
		SellOffer:       "OFFER1",
	})
	sold, err := s.service.CompleteOfferSale(s.ctx, "OFFER1", testBuyer, "ACCEPT")
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusSold, sold.Status)

	_, err = s.service.CancelOffer(s.ctx, "OFFER1", testSeller)
	var transitionErr *InvalidTransitionError
	assert.ErrorAs(s.T(), err, &transitionErr)
}

func (s *MarketplaceServiceTestSuite) TestCompleteOfferSaleRequiresAcceptOfThisOffer() {
	_, err := s.trackOffer("OFFERTX", "OFFER1", "5000000")
	s.Require().NoError(err)

	for hash, sellOffer := range map[string]string{"NO-SELL-OFFER": "", "OTHER-OFFER": "OFFER2"} {
		s.gateway.SetTx(&ledger.TxStatus{
			Hash:            hash,
			Validated:       true,
			Result:          ledger.ResultSuccess,
			TransactionType: ledger.TxNFTokenAcceptOffer,
			Account:         testBuyer,
			SellOffer:       sellOffer,
		})
		_, err = s.service.CompleteOfferSale(s.ctx, "OFFER1", testBuyer, hash)
		assert.ErrorIs(s.T(), err, ErrValidation, hash)
	}

	offers, err := s.service.GetActiveOffersForNFT(s.ctx, testNFT)
	s.Require().NoError(err)
	s.Require().Len(offers, 1)
	assert.Equal(s.T(), models.SaleStatusActive, offers[0].Status)
}

func (s *MarketplaceServiceTestSuite) TestCancelOfferReturnsCancelTemplate() {
	_, err := s.trackOffer("OFFERTX", "OFFER1", "5000000")
	s.Require().NoError(err)

	_, err = s.service.CancelOffer(s.ctx, "OFFER1", testBuyer)
	assert.ErrorIs(s.T(), err, ErrForbidden)

	result, err := s.service.CancelOffer(s.ctx, "OFFER1", testSeller)
	s.Require().NoError(err)
	assert.Equal(s.T(), models.SaleStatusCancelled, result.Offer.Status)
	assert.Equal(s.T(), ledger.TxNFTokenCancelOffer, result.CancelTemplate.TransactionType)
}

func (s *MarketplaceServiceTestSuite) TestPrepareAcceptOfferInvalidatesMovedNFT() {
	_, err := s.trackOffer("OFFERTX", "OFFER1", "5000000")
	s.Require().NoError(err)
	s.gateway.Disown(testSeller, testNFT)

	_, _, err = s.service.PrepareAcceptOffer(s.ctx, "OFFER1", testBuyer)
	assert.ErrorIs(s.T(), err, ErrNoLongerOwned)

	offers, err := s.service.GetAllActiveOffers(s.ctx)
	s.Require().NoError(err)
	assert.Empty(s.T(), offers)
}

func TestMarketplaceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceServiceTestSuite))
}

func TestOwnershipCheckOnList(t *testing.T) {
	docs := memstore.New()
	gateway := ledgertest.New()
	service := NewMarketplaceService(docs, NewMetadataService(docs, nil), gateway, WithOwnershipCheckOnList(true))

	_, err := service.CreateListing(context.Background(), testNFT, testSeller, decimal.NewFromInt(1), "abc")
	require.ErrorIs(t, err, ErrValidation)

	gateway.Own(testSeller, testNFT)
	_, err = service.CreateListing(context.Background(), testNFT, testSeller, decimal.NewFromInt(1), "abc")
	require.NoError(t, err)
}
