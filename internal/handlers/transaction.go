// internal/handlers/transaction.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/middleware"
	"github.com/javajoker/rwa-backend/internal/services"
	"github.com/javajoker/rwa-backend/internal/utils"
)

type TransactionHandler struct {
	nftService      *services.NFTService
	metadataService *services.MetadataService
}

func NewTransactionHandler(nftService *services.NFTService, metadataService *services.MetadataService) *TransactionHandler {
	return &TransactionHandler{
		nftService:      nftService,
		metadataService: metadataService,
	}
}

type mintTemplateRequest struct {
	Account     string                 `json:"account" binding:"required,xrpl_address"`
	Metadata    map[string]interface{} `json:"metadata" binding:"required"`
	Flags       uint32                 `json:"flags"`
	TransferFee uint32                 `json:"transfer_fee" binding:"lte=50000"`
	Taxon       uint32                 `json:"taxon"`
}

type submitTransactionRequest struct {
	SignedTransaction interface{}            `json:"signed_transaction" binding:"required"`
	Account           string                 `json:"account" binding:"required,xrpl_address"`
	URI               string                 `json:"uri" binding:"required"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// POST /api/transaction/nft/mint/template
func (h *TransactionHandler) MintTemplate(c *gin.Context) {
	var req mintTemplateRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.Account) {
		return
	}

	result, err := h.nftService.MintTemplate(c.Request.Context(), services.MintTemplateInput{
		Account:     req.Account,
		Metadata:    req.Metadata,
		Flags:       req.Flags,
		TransferFee: req.TransferFee,
		Taxon:       req.Taxon,
	})
	if err != nil {
		respondError(c, err, "metadata")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"template":      result.Template,
		"metadata_hash": result.MetadataHash,
		"uri":           result.URI,
		"message":       i18n.T(utils.GetLangFromContext(c), i18n.KeyNFTMintTemplate),
	})
}

// GET /api/transaction/metadata/hash/:hash
func (h *TransactionHandler) GetMetadataByHash(c *gin.Context) {
	result, err := h.metadataService.GetByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err, "metadata")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GET /api/transaction/metadata/id/:id
func (h *TransactionHandler) GetMetadataByID(c *gin.Context) {
	result, err := h.metadataService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "metadata")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GET /api/transaction/metadata/archive/:hash
func (h *TransactionHandler) GetMetadataArchive(c *gin.Context) {
	hash := c.Param("hash")
	url, err := h.metadataService.ArchiveLink(c.Request.Context(), hash)
	if err != nil {
		respondError(c, err, "metadata")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"metadata_hash": hash,
		"url":           url,
	})
}

// POST /api/transaction/submit
func (h *TransactionHandler) Submit(c *gin.Context) {
	var req submitTransactionRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.Account) {
		return
	}

	submission, err := h.nftService.Submit(c.Request.Context(), services.SubmitInput{
		SignedTransaction: req.SignedTransaction,
		Account:           req.Account,
		URI:               req.URI,
		Metadata:          req.Metadata,
	})
	if err != nil {
		respondError(c, err, "metadata")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"result":  submission.Result,
		"nft":     submission.NFT,
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyNFTSubmitted),
	})
}

// GET /api/transaction/nfts/:address
func (h *TransactionHandler) GetAccountNFTs(c *gin.Context) {
	address := c.Param("address")
	if !utils.IsClassicAddress(address) {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "address"))
		return
	}

	nfts, err := h.nftService.GetAccountNFTs(c.Request.Context(), address)
	if err != nil {
		respondError(c, err, "metadata")
		return
	}

	utils.FlatResponse(c, http.StatusOK, gin.H{
		"nfts":    nfts,
		"count":   len(nfts),
		"address": address,
	})
}
