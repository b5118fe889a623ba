// internal/handlers/token.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/middleware"
	"github.com/javajoker/rwa-backend/internal/services"
	"github.com/javajoker/rwa-backend/internal/utils"
)

type TokenHandler struct {
	tokenService *services.TokenService
}

func NewTokenHandler(tokenService *services.TokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// POST /api/tokens/wallet/create
func (h *TokenHandler) CreateWallet(c *gin.Context) {
	wallet, err := h.tokenService.CreateWallet(c.Request.Context())
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, wallet)
}

// GET /api/tokens/wallet/info/:address
func (h *TokenHandler) GetWalletInfo(c *gin.Context) {
	address := c.Param("address")
	if !utils.IsClassicAddress(address) {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "address"))
		return
	}

	info, err := h.tokenService.GetWalletInfo(c.Request.Context(), address)
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, info)
}

// POST /api/tokens/create
func (h *TokenHandler) CreateToken(c *gin.Context) {
	var req services.CreateTokenRequest
	if !bindJSON(c, &req) || !middleware.RequireSessionMatch(c, req.Wallet.ClassicAddress) {
		return
	}

	issuance, err := h.tokenService.CreateToken(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, issuance)
}

// GET /api/tokens/list
func (h *TokenHandler) ListTokens(c *gin.Context) {
	tokens, err := h.tokenService.ListTokens(c.Request.Context())
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, gin.H{"tokens": tokens})
}

// GET /api/tokens/transactions
func (h *TokenHandler) ListTransactions(c *gin.Context) {
	transactions, err := h.tokenService.ListTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err, "wallet")
		return
	}

	utils.SuccessResponse(c, gin.H{"transactions": transactions})
}
