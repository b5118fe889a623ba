// internal/handlers/marketplace.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/middleware"
	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/services"
	"github.com/javajoker/rwa-backend/internal/utils"
)

type MarketplaceHandler struct {
	marketplaceService *services.MarketplaceService
}

func NewMarketplaceHandler(marketplaceService *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{marketplaceService: marketplaceService}
}

// saleResponse adds the XRP price next to the stored drops.
type saleResponse struct {
	*models.Sale
	PriceXRP string `json:"price_xrp"`
}

func saleView(sale *models.Sale) saleResponse {
	return saleResponse{Sale: sale, PriceXRP: services.PriceXRP(sale.PriceDrops)}
}

func saleViews(sales []models.Sale) []saleResponse {
	out := make([]saleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, saleView(&sales[i]))
	}
	return out
}

type createListingRequest struct {
	NFTID         string           `json:"nft_id" binding:"required"`
	SellerAddress string           `json:"seller_address" binding:"required,xrpl_address"`
	PriceXRP      *decimal.Decimal `json:"price_xrp" binding:"required"`
	MetadataHash  string           `json:"metadata_hash" binding:"required"`
}

type sellerRequest struct {
	SellerAddress string `json:"seller_address" binding:"required,xrpl_address"`
}

type buyerRequest struct {
	BuyerAddress string `json:"buyer_address" binding:"required,xrpl_address"`
}

type submitBuyRequest struct {
	BuyerAddress   string      `json:"buyer_address" binding:"required,xrpl_address"`
	SignedPayment  interface{} `json:"signed_payment" binding:"required"`
	SignedNFTOffer interface{} `json:"signed_nft_offer" binding:"required"`
}

type completePurchaseRequest struct {
	BuyerAddress   string `json:"buyer_address" binding:"required,xrpl_address"`
	PaymentTxHash  string `json:"payment_tx_hash" binding:"required,xrpl_hash"`
	NFTOfferTxHash string `json:"nft_offer_tx_hash" binding:"required,xrpl_hash"`
}

type offerTemplateRequest struct {
	SellerAddress string           `json:"seller_address" binding:"required,xrpl_address"`
	NFTID         string           `json:"nft_id" binding:"required"`
	PriceXRP      *decimal.Decimal `json:"price_xrp" binding:"required"`
	Expiration    uint32           `json:"expiration"`
	Destination   string           `json:"destination" binding:"omitempty,xrpl_address"`
}

type trackOfferRequest struct {
	TransactionHash string           `json:"transaction_hash" binding:"required,xrpl_hash"`
	NFTID           string           `json:"nft_id" binding:"required"`
	SellerAddress   string           `json:"seller_address" binding:"required,xrpl_address"`
	PriceXRP        *decimal.Decimal `json:"price_xrp" binding:"required"`
	MetadataHash    string           `json:"metadata_hash"`
}

type completeOfferRequest struct {
	BuyerAddress    string `json:"buyer_address" binding:"required,xrpl_address"`
	TransactionHash string `json:"transaction_hash" binding:"required,xrpl_hash"`
}

// POST /api/marketplace/list
func (h *MarketplaceHandler) CreateListing(c *gin.Context) {
	var req createListingRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.SellerAddress) {
		return
	}

	listing, err := h.marketplaceService.CreateListing(c.Request.Context(), req.NFTID, req.SellerAddress, *req.PriceXRP, req.MetadataHash)
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"listing": saleView(listing),
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyListingCreated),
	})
}

// GET /api/marketplace/listings
func (h *MarketplaceHandler) GetListings(c *gin.Context) {
	listings, err := h.marketplaceService.GetActiveListings(c.Request.Context())
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"listings": saleViews(listings),
		"count":    len(listings),
	})
}

// GET /api/marketplace/listing/:id
func (h *MarketplaceHandler) GetListing(c *gin.Context) {
	listing, err := h.marketplaceService.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{"listing": saleView(listing)})
}

// POST /api/marketplace/listing/:id/cancel
func (h *MarketplaceHandler) CancelListing(c *gin.Context) {
	var req sellerRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.SellerAddress) {
		return
	}

	listing, err := h.marketplaceService.CancelListing(c.Request.Context(), c.Param("id"), req.SellerAddress)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			utils.ForbiddenResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyListingSellerOnly))
			return
		}
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"listing": saleView(listing),
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyListingCancelled),
	})
}

// POST /api/marketplace/listing/:id/validate-purchase
func (h *MarketplaceHandler) ValidatePurchase(c *gin.Context) {
	listing, err := h.marketplaceService.ValidatePurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"listing": saleView(listing),
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyListingAvailable),
	})
}

// POST /api/marketplace/listing/:id/prepare-buy
// POST /api/marketplace/buy/template/:id
func (h *MarketplaceHandler) PrepareBuy(c *gin.Context) {
	var req buyerRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.BuyerAddress) {
		return
	}

	templates, err := h.marketplaceService.PrepareBuy(c.Request.Context(), c.Param("id"), req.BuyerAddress)
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"payment_template":   templates.PaymentTemplate,
		"nft_offer_template": templates.NFTOfferTemplate,
		"listing":            saleView(templates.Listing),
		"message":            i18n.T(utils.GetLangFromContext(c), i18n.KeyListingBuyTemplate),
	})
}

// POST /api/marketplace/buy/submit/:id
func (h *MarketplaceHandler) SubmitBuy(c *gin.Context) {
	var req submitBuyRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.BuyerAddress) {
		return
	}

	payment, err := services.SignedBlob(req.SignedPayment)
	if err != nil {
		respondError(c, err, "listing")
		return
	}
	transfer, err := services.SignedBlob(req.SignedNFTOffer)
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	result, err := h.marketplaceService.SubmitBuy(c.Request.Context(), c.Param("id"), req.BuyerAddress, payment, transfer)
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	lang := utils.GetLangFromContext(c)
	status, message := http.StatusOK, i18n.T(lang, i18n.KeyListingPurchaseCompleted)
	if result.Pending {
		status, message = http.StatusAccepted, i18n.T(lang, i18n.KeyListingPending)
	}

	utils.FlatResponse(c, status, gin.H{
		"payment_result":   result.PaymentResult,
		"nft_offer_result": result.NFTOfferResult,
		"listing":          saleView(result.Listing),
		"pending":          result.Pending,
		"message":          message,
	})
}

// POST /api/marketplace/listing/:id/complete
func (h *MarketplaceHandler) CompletePurchase(c *gin.Context) {
	var req completePurchaseRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.BuyerAddress) {
		return
	}

	listing, err := h.marketplaceService.CompletePurchase(c.Request.Context(), c.Param("id"), req.BuyerAddress, req.PaymentTxHash, req.NFTOfferTxHash)
	if err != nil {
		respondError(c, err, "listing")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"listing": saleView(listing),
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyListingPurchaseCompleted),
	})
}

// POST /api/marketplace/offer/template
func (h *MarketplaceHandler) OfferTemplate(c *gin.Context) {
	var req offerTemplateRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.SellerAddress) {
		return
	}

	template, err := h.marketplaceService.SellOfferTemplate(c.Request.Context(), req.SellerAddress, req.NFTID, *req.PriceXRP, req.Expiration, req.Destination)
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"template": template,
		"message":  i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferTemplate),
	})
}

// POST /api/marketplace/offer/track
func (h *MarketplaceHandler) TrackOffer(c *gin.Context) {
	var req trackOfferRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.SellerAddress) {
		return
	}

	offer, err := h.marketplaceService.TrackNFTOffer(c.Request.Context(), services.TrackOfferInput{
		TxHash:        req.TransactionHash,
		NFTID:         req.NFTID,
		SellerAddress: req.SellerAddress,
		PriceXRP:      *req.PriceXRP,
		MetadataHash:  req.MetadataHash,
	})
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"offer":   saleView(offer),
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferTracked),
	})
}

// GET /api/marketplace/offers
func (h *MarketplaceHandler) GetOffers(c *gin.Context) {
	offers, err := h.marketplaceService.GetAllActiveOffers(c.Request.Context())
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"offers": saleViews(offers),
		"count":  len(offers),
	})
}

// GET /api/marketplace/offers/nft/:nft_id
func (h *MarketplaceHandler) GetOffersForNFT(c *gin.Context) {
	nftID := c.Param("nft_id")
	offers, err := h.marketplaceService.GetActiveOffersForNFT(c.Request.Context(), nftID)
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"nft_id": nftID,
		"offers": saleViews(offers),
		"count":  len(offers),
	})
}

// POST /api/marketplace/offer/:offer_id/accept-template
func (h *MarketplaceHandler) AcceptOfferTemplate(c *gin.Context) {
	var req buyerRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.BuyerAddress) {
		return
	}

	template, offer, err := h.marketplaceService.PrepareAcceptOffer(c.Request.Context(), c.Param("offer_id"), req.BuyerAddress)
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"template": template,
		"offer":    saleView(offer),
		"message":  i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferAcceptTemplate),
	})
}

// POST /api/marketplace/offer/:offer_id/complete
func (h *MarketplaceHandler) CompleteOfferSale(c *gin.Context) {
	var req completeOfferRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.BuyerAddress) {
		return
	}

	offer, err := h.marketplaceService.CompleteOfferSale(c.Request.Context(), c.Param("offer_id"), req.BuyerAddress, req.TransactionHash)
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"offer":   saleView(offer),
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferSold),
	})
}

// POST /api/marketplace/offer/:offer_id/cancel
func (h *MarketplaceHandler) CancelOffer(c *gin.Context) {
	var req sellerRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.SellerAddress) {
		return
	}

	result, err := h.marketplaceService.CancelOffer(c.Request.Context(), c.Param("offer_id"), req.SellerAddress)
	if err != nil {
		respondError(c, err, "offer")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"offer":           saleView(result.Offer),
		"cancel_template": result.CancelTemplate,
		"message":         i18n.T(utils.GetLangFromContext(c), i18n.KeyOfferCancelled),
	})
}
