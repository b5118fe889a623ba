// internal/services/marketplace_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
)

const reasonNoLongerOwned = "NFT no longer owned by seller"

// MarketplaceService tracks listings and ledger sell offers. Every status
// change goes through the sale transition table and is applied with a
// compare-and-set on the current status.
type MarketplaceService struct {
	sales             store.SaleRepository
	metadata          *MetadataService
	ledger            ledger.Gateway
	verifyOwnerOnList bool
	now               func() time.Time
}

type MarketplaceOption func(*MarketplaceService)

// WithOwnershipCheckOnList makes CreateListing confirm the seller holds the NFT.
func WithOwnershipCheckOnList(enabled bool) MarketplaceOption {
	return func(s *MarketplaceService) { s.verifyOwnerOnList = enabled }
}

func WithClock(now func() time.Time) MarketplaceOption {
	return func(s *MarketplaceService) { s.now = now }
}

func NewMarketplaceService(sales store.SaleRepository, metadata *MetadataService, gateway ledger.Gateway, opts ...MarketplaceOption) *MarketplaceService {
	s := &MarketplaceService{
		sales:    sales,
		metadata: metadata,
		ledger:   gateway,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type BuyTemplates struct {
	PaymentTemplate  *ledger.Template `json:"payment_template"`
	NFTOfferTemplate *ledger.Template `json:"nft_offer_template"`
	Listing          *models.Sale     `json:"listing"`
}

type PurchaseSubmission struct {
	PaymentResult  *ledger.SubmitResult `json:"payment_result"`
	NFTOfferResult *ledger.SubmitResult `json:"nft_offer_result"`
	Listing        *models.Sale         `json:"listing"`
	Pending        bool                 `json:"pending"`
}

type TrackOfferInput struct {
	TxHash        string
	NFTID         string
	SellerAddress string
	PriceXRP      decimal.Decimal
	MetadataHash  string
}

type OfferCancellation struct {
	Offer          *models.Sale     `json:"offer"`
	CancelTemplate *ledger.Template `json:"cancel_template"`
}

// CreateListing opens a legacy payment-and-transfer listing. At most one
// such listing may be active per NFT.
func (s *MarketplaceService) CreateListing(ctx context.Context, nftID, seller string, priceXRP decimal.Decimal, metadataHash string) (*models.Sale, error) {
	switch {
	case nftID == "":
		return nil, validationError("nft_id is required")
	case seller == "":
		return nil, validationError("seller_address is required")
	case metadataHash == "":
		return nil, validationError("metadata_hash is required")
	}

	drops, err := ledger.XRPToDrops(priceXRP)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	active, err := s.sales.ListSales(ctx, store.SaleFilter{
		Status:    models.SaleStatusActive,
		Mechanism: models.SaleMechanismLegacyPaymentTransfer,
		NFTID:     nftID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing listings: %w", err)
	}
	if len(active) > 0 {
		return nil, fmt.Errorf("%w: NFT %s is already listed for sale", ErrConflict, nftID)
	}

	if s.verifyOwnerOnList {
		owned, err := s.ledger.VerifyNFTOwnership(ctx, seller, nftID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, validationError("seller %s does not own NFT %s", seller, nftID)
		}
	}

	now := s.now()
	sale := &models.Sale{
		ListingID:     uuid.NewString(),
		Mechanism:     models.SaleMechanismLegacyPaymentTransfer,
		NFTID:         nftID,
		SellerAddress: seller,
		PriceDrops:    drops,
		MetadataHash:  metadataHash,
		Status:        models.SaleStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.sales.InsertSale(ctx, sale); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: NFT %s is already listed for sale", ErrConflict, nftID)
		}
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"listing_id":  sale.ListingID,
		"nft_id":      nftID,
		"price_drops": drops,
	}).Info("Listing created")
	return sale, nil
}

func (s *MarketplaceService) GetActiveListings(ctx context.Context) ([]models.Sale, error) {
	return s.listWithMetadata(ctx, store.SaleFilter{
		Status:    models.SaleStatusActive,
		Mechanism: models.SaleMechanismLegacyPaymentTransfer,
	})
}

func (s *MarketplaceService) GetListing(ctx context.Context, listingID string) (*models.Sale, error) {
	sale, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	s.attachMetadata(ctx, sale)
	return sale, nil
}

// UpdateListingStatus moves a listing to status and merges update into it.
func (s *MarketplaceService) UpdateListingStatus(ctx context.Context, listingID string, status models.SaleStatus, update models.SaleUpdate) (*models.Sale, error) {
	sale, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, sale, status, update)
}

func (s *MarketplaceService) CancelListing(ctx context.Context, listingID, seller string) (*models.Sale, error) {
	sale, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if sale.SellerAddress != seller {
		return nil, ErrForbidden
	}
	return s.transition(ctx, sale, models.SaleStatusCancelled, models.SaleUpdate{Reason: "Cancelled by seller"})
}

// ValidatePurchase re-checks on the ledger that the seller still holds the
// NFT. A listing whose NFT moved is invalidated.
func (s *MarketplaceService) ValidatePurchase(ctx context.Context, listingID string) (*models.Sale, error) {
	sale, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if sale.Status != models.SaleStatusActive {
		return nil, validationError("Listing is not active")
	}
	if err := s.reconcileOwnership(ctx, sale); err != nil {
		return nil, err
	}
	s.attachMetadata(ctx, sale)
	return sale, nil
}

// PrepareBuy returns the buyer's payment and the seller's zero-amount
// transfer offer, both unsigned.
func (s *MarketplaceService) PrepareBuy(ctx context.Context, listingID, buyer string) (*BuyTemplates, error) {
	if buyer == "" {
		return nil, validationError("buyer_address is required")
	}

	sale, err := s.ValidatePurchase(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if sale.SellerAddress == buyer {
		return nil, validationError("buyer cannot be the seller")
	}

	return &BuyTemplates{
		PaymentTemplate:  ledger.PaymentTemplate(buyer, sale.SellerAddress, sale.PriceDrops),
		NFTOfferTemplate: ledger.NFTTransferOfferTemplate(sale.SellerAddress, buyer, sale.NFTID),
		Listing:          sale,
	}, nil
}

// SubmitBuy relays both signed transactions, records their hashes on the
// listing and completes it once the ledger has validated them.
func (s *MarketplaceService) SubmitBuy(ctx context.Context, listingID, buyer, signedPayment, signedTransfer string) (*PurchaseSubmission, error) {
	switch {
	case buyer == "":
		return nil, validationError("buyer_address is required")
	case signedPayment == "":
		return nil, validationError("signed_payment is required")
	case signedTransfer == "":
		return nil, validationError("signed_nft_offer is required")
	}

	if _, err := s.ValidatePurchase(ctx, listingID); err != nil {
		return nil, err
	}

	paymentResult, err := s.ledger.Submit(ctx, signedPayment)
	if err != nil {
		return nil, err
	}
	transferResult, err := s.ledger.Submit(ctx, signedTransfer)
	if err != nil {
		return nil, err
	}

	sale, err := s.sales.RecordSettlement(ctx, listingID, buyer, []string{paymentResult.Hash, transferResult.Hash}, s.now())
	if err != nil {
		return nil, s.storeError(listingID, err)
	}

	result := &PurchaseSubmission{PaymentResult: paymentResult, NFTOfferResult: transferResult, Listing: sale}

	completed, err := s.CompletePurchase(ctx, listingID, buyer, paymentResult.Hash, transferResult.Hash)
	switch {
	case errors.Is(err, ErrPending):
		result.Pending = true
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Listing = completed
	return result, nil
}

// CompletePurchase marks a listing completed after looking both settlement
// transactions up on the ledger. Unvalidated transactions yield ErrPending.
func (s *MarketplaceService) CompletePurchase(ctx context.Context, listingID, buyer, paymentHash, transferHash string) (*models.Sale, error) {
	switch {
	case buyer == "":
		return nil, validationError("buyer_address is required")
	case paymentHash == "" || transferHash == "":
		return nil, validationError("payment_tx_hash and nft_offer_tx_hash are required")
	}

	sale, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if sale.Status == models.SaleStatusCompleted && sale.BuyerAddress == buyer {
		return sale, nil
	}
	if err := CheckSaleTransition(sale.Status, models.SaleStatusCompleted); err != nil {
		return nil, err
	}

	payment, err := s.settledTx(ctx, paymentHash, ledger.TxPayment, buyer)
	if err != nil {
		return nil, err
	}
	if payment.Destination != sale.SellerAddress {
		return nil, validationError("payment destination %s is not the seller", payment.Destination)
	}
	if drops, ok := payment.AmountDrops(); !ok || drops < sale.PriceDrops {
		return nil, validationError("payment amount does not cover the listing price of %d drops", sale.PriceDrops)
	}

	transfer, err := s.settledTx(ctx, transferHash, ledger.TxNFTokenCreateOffer, sale.SellerAddress)
	if err != nil {
		return nil, err
	}
	switch {
	case !transfer.IsSellOffer():
		return nil, validationError("transaction %s is not a sell offer", transferHash)
	case transfer.NFTokenID != sale.NFTID:
		return nil, validationError("transaction %s offers NFT %s, not %s", transferHash, transfer.NFTokenID, sale.NFTID)
	case transfer.Destination != buyer:
		return nil, validationError("transaction %s is not reserved for buyer %s", transferHash, buyer)
	}

	return s.transition(ctx, sale, models.SaleStatusCompleted, models.SaleUpdate{
		BuyerAddress:     buyer,
		SettlementTxHash: []string{paymentHash, transferHash},
	})
}

// SellOfferTemplate builds the seller's on-ledger sell offer.
func (s *MarketplaceService) SellOfferTemplate(ctx context.Context, seller, nftID string, priceXRP decimal.Decimal, expiration uint32, destination string) (*ledger.Template, error) {
	if seller == "" || nftID == "" {
		return nil, validationError("seller_address and nft_id are required")
	}
	drops, err := ledger.XRPToDrops(priceXRP)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	owned, err := s.ledger.VerifyNFTOwnership(ctx, seller, nftID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, validationError("seller %s does not own NFT %s", seller, nftID)
	}

	return ledger.NFTSellOfferTemplate(seller, nftID, drops, expiration, destination), nil
}

// TrackNFTOffer records a sell offer the seller already placed on the
// ledger. The offer id and price are taken from the validated transaction.
func (s *MarketplaceService) TrackNFTOffer(ctx context.Context, in TrackOfferInput) (*models.Sale, error) {
	switch {
	case in.TxHash == "":
		return nil, validationError("transaction_hash is required")
	case in.NFTID == "":
		return nil, validationError("nft_id is required")
	case in.SellerAddress == "":
		return nil, validationError("seller_address is required")
	}

	drops, err := ledger.XRPToDrops(in.PriceXRP)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	tx, err := s.settledTx(ctx, in.TxHash, ledger.TxNFTokenCreateOffer, in.SellerAddress)
	if err != nil {
		return nil, err
	}
	if tx.OfferID == "" {
		return nil, validationError("transaction %s did not create an offer", in.TxHash)
	}
	if !tx.IsSellOffer() {
		return nil, validationError("transaction %s is not a sell offer", in.TxHash)
	}
	if tx.NFTokenID != in.NFTID {
		return nil, validationError("transaction %s offers NFT %s, not %s", in.TxHash, tx.NFTokenID, in.NFTID)
	}
	if onLedger, ok := tx.AmountDrops(); !ok || onLedger != drops {
		return nil, validationError("price does not match the offer on the ledger")
	}

	now := s.now()
	sale := &models.Sale{
		ListingID:     uuid.NewString(),
		Mechanism:     models.SaleMechanismNativeOffer,
		NFTID:         in.NFTID,
		SellerAddress: in.SellerAddress,
		PriceDrops:    drops,
		MetadataHash:  in.MetadataHash,
		Status:        models.SaleStatusActive,
		OfferID:       tx.OfferID,
		OfferTxHash:   in.TxHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.sales.InsertSale(ctx, sale); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: offer %s is already tracked", ErrConflict, tx.OfferID)
		}
		return nil, fmt.Errorf("failed to track offer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"offer_id": sale.OfferID,
		"nft_id":   sale.NFTID,
	}).Info("Offer tracked")
	return sale, nil
}

func (s *MarketplaceService) UpdateListingByOffer(ctx context.Context, offerID string, status models.SaleStatus, update models.SaleUpdate) (*models.Sale, error) {
	sale, err := s.findOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, sale, status, update)
}

func (s *MarketplaceService) GetActiveOffersForNFT(ctx context.Context, nftID string) ([]models.Sale, error) {
	return s.listWithMetadata(ctx, store.SaleFilter{
		Status:    models.SaleStatusActive,
		Mechanism: models.SaleMechanismNativeOffer,
		NFTID:     nftID,
	})
}

func (s *MarketplaceService) GetAllActiveOffers(ctx context.Context) ([]models.Sale, error) {
	return s.listWithMetadata(ctx, store.SaleFilter{
		Status:    models.SaleStatusActive,
		Mechanism: models.SaleMechanismNativeOffer,
	})
}

// PrepareAcceptOffer reconciles ownership and returns the buyer's accept
// transaction.
func (s *MarketplaceService) PrepareAcceptOffer(ctx context.Context, offerID, buyer string) (*ledger.Template, *models.Sale, error) {
	if buyer == "" {
		return nil, nil, validationError("buyer_address is required")
	}

	sale, err := s.findOffer(ctx, offerID)
	if err != nil {
		return nil, nil, err
	}
	if sale.Status != models.SaleStatusActive {
		return nil, nil, validationError("Offer is not active")
	}
	if sale.SellerAddress == buyer {
		return nil, nil, validationError("buyer cannot be the seller")
	}
	if err := s.reconcileOwnership(ctx, sale); err != nil {
		return nil, nil, err
	}

	return ledger.NFTAcceptOfferTemplate(buyer, offerID), sale, nil
}

// CompleteOfferSale marks an offer sold once the buyer's accept
// transaction is validated on the ledger.
func (s *MarketplaceService) CompleteOfferSale(ctx context.Context, offerID, buyer, acceptHash string) (*models.Sale, error) {
	if buyer == "" || acceptHash == "" {
		return nil, validationError("buyer_address and transaction_hash are required")
	}

	sale, err := s.findOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if sale.Status == models.SaleStatusSold && sale.BuyerAddress == buyer {
		return sale, nil
	}
	if err := CheckSaleTransition(sale.Status, models.SaleStatusSold); err != nil {
		return nil, err
	}

	tx, err := s.settledTx(ctx, acceptHash, ledger.TxNFTokenAcceptOffer, buyer)
	if err != nil {
		return nil, err
	}
	if tx.SellOffer != offerID {
		return nil, validationError("transaction %s did not accept offer %s", acceptHash, offerID)
	}

	return s.transition(ctx, sale, models.SaleStatusSold, models.SaleUpdate{
		BuyerAddress:     buyer,
		SettlementTxHash: []string{acceptHash},
	})
}

// CancelOffer delists an offer and returns the transaction that removes it
// from the ledger.
func (s *MarketplaceService) CancelOffer(ctx context.Context, offerID, seller string) (*OfferCancellation, error) {
	sale, err := s.findOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if sale.SellerAddress != seller {
		return nil, ErrForbidden
	}

	updated, err := s.transition(ctx, sale, models.SaleStatusCancelled, models.SaleUpdate{Reason: "Cancelled by seller"})
	if err != nil {
		return nil, err
	}

	return &OfferCancellation{
		Offer:          updated,
		CancelTemplate: ledger.NFTCancelOfferTemplate(seller, offerID),
	}, nil
}

func (s *MarketplaceService) reconcileOwnership(ctx context.Context, sale *models.Sale) error {
	owned, err := s.ledger.VerifyNFTOwnership(ctx, sale.SellerAddress, sale.NFTID)
	if err != nil {
		return err
	}
	if owned {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"listing_id": sale.ListingID,
		"nft_id":     sale.NFTID,
		"seller":     sale.SellerAddress,
	}).Warn("Seller no longer owns NFT, invalidating sale")

	if _, err := s.transition(ctx, sale, models.SaleStatusInvalid, models.SaleUpdate{Reason: reasonNoLongerOwned}); err != nil {
		return err
	}
	return ErrNoLongerOwned
}

// settledTx fetches hash and requires a validated tesSUCCESS transaction
// of txType sent by account.
func (s *MarketplaceService) settledTx(ctx context.Context, hash, txType, account string) (*ledger.TxStatus, error) {
	tx, err := s.ledger.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tx.Pending() {
		return nil, fmt.Errorf("%w: %s", ErrPending, hash)
	}
	if tx.Result != ledger.ResultSuccess {
		return nil, validationError("transaction %s failed with %s", hash, tx.Result)
	}
	if tx.TransactionType != txType {
		return nil, validationError("transaction %s is a %s, expected %s", hash, tx.TransactionType, txType)
	}
	if tx.Account != account {
		return nil, validationError("transaction %s was not sent by %s", hash, account)
	}
	return tx, nil
}

func (s *MarketplaceService) transition(ctx context.Context, sale *models.Sale, to models.SaleStatus, update models.SaleUpdate) (*models.Sale, error) {
	if !to.Valid() {
		return nil, validationError("unknown status %q", to)
	}
	if err := CheckSaleTransition(sale.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.sales.TransitionSale(ctx, sale.ListingID, sale.Status, to, update, s.now())
	if errors.Is(err, store.ErrStatusChanged) {
		current, findErr := s.sales.FindSale(ctx, sale.ListingID)
		if findErr != nil {
			return nil, s.storeError(sale.ListingID, findErr)
		}
		return nil, &InvalidTransitionError{From: current.Status, To: to}
	}
	if err != nil {
		return nil, s.storeError(sale.ListingID, err)
	}

	logrus.WithFields(logrus.Fields{
		"listing_id": updated.ListingID,
		"mechanism":  updated.Mechanism,
		"from":       sale.Status,
		"to":         to,
	}).Info("Sale status changed")
	return updated, nil
}

func (s *MarketplaceService) findListing(ctx context.Context, listingID string) (*models.Sale, error) {
	sale, err := s.sales.FindSale(ctx, listingID)
	if err != nil {
		return nil, s.storeError(listingID, err)
	}
	return sale, nil
}

func (s *MarketplaceService) findOffer(ctx context.Context, offerID string) (*models.Sale, error) {
	sale, err := s.sales.FindSaleByOfferID(ctx, offerID)
	if err != nil {
		return nil, s.storeError(offerID, err)
	}
	return sale, nil
}

func (s *MarketplaceService) storeError(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if errors.Is(err, store.ErrStatusChanged) {
		return fmt.Errorf("%w: %s changed concurrently", ErrConflict, id)
	}
	return err
}

func (s *MarketplaceService) listWithMetadata(ctx context.Context, filter store.SaleFilter) ([]models.Sale, error) {
	sales, err := s.sales.ListSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}
	for i := range sales {
		s.attachMetadata(ctx, &sales[i])
	}
	return sales, nil
}

func (s *MarketplaceService) attachMetadata(ctx context.Context, sale *models.Sale) {
	if sale.MetadataHash == "" || s.metadata == nil {
		return
	}
	sale.Metadata, _ = s.metadata.Resolve(ctx, sale.MetadataHash)
}

// PriceXRP renders drops as a decimal XRP string.
func PriceXRP(drops int64) string {
	return ledger.DropsToXRP(drops).String()
}
