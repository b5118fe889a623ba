// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/rwa-backend/internal/config"
	"github.com/javajoker/rwa-backend/internal/handlers"
	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/middleware"
	"github.com/javajoker/rwa-backend/internal/services"
	"github.com/javajoker/rwa-backend/internal/store"
	"github.com/javajoker/rwa-backend/internal/utils"
)

// Initialize wires services and handlers. docs and gateway are injected so
// tests can swap in in-memory versions.
func Initialize(db *gorm.DB, docs store.Documents, gateway ledger.Gateway, cfg *config.Config) *gin.Engine {
	// Metadata is hashed over the numbers exactly as the client sent them.
	binding.EnableDecoderUseNumber = true

	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Warn("Metadata archive disabled")
	}
	var archive services.MetadataArchiver
	if storageService != nil {
		archive = storageService
	}

	sealer := utils.NewSecretSealer(cfg.Wallet.SealingKey)
	metadataService := services.NewMetadataService(docs, archive)
	marketplaceService := services.NewMarketplaceService(docs, metadataService, gateway,
		services.WithOwnershipCheckOnList(cfg.Marketplace.VerifyOwnershipOnList))
	tokenService := services.NewTokenService(db, gateway, sealer, cfg)
	nftService := services.NewNFTService(docs, metadataService, gateway)

	// Initialize handlers
	tokenHandler := handlers.NewTokenHandler(tokenService)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService)
	transactionHandler := handlers.NewTransactionHandler(nftService, metadataService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())
	r.Use(limiter.Middleware())
	r.Use(middleware.OptionalWalletAuth())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")
	{
		tokens := api.Group("/tokens")
		{
			tokens.POST("/wallet/create", tokenHandler.CreateWallet)
			tokens.GET("/wallet/info/:address", tokenHandler.GetWalletInfo)
			tokens.POST("/create", tokenHandler.CreateToken)
			tokens.GET("/list", tokenHandler.ListTokens)
			tokens.GET("/transactions", tokenHandler.ListTransactions)
		}

		marketplace := api.Group("/marketplace")
		{
			marketplace.POST("/list", marketplaceHandler.CreateListing)
			marketplace.GET("/listings", marketplaceHandler.GetListings)
			marketplace.GET("/listing/:id", marketplaceHandler.GetListing)
			marketplace.POST("/listing/:id/cancel", marketplaceHandler.CancelListing)
			marketplace.POST("/listing/:id/validate-purchase", marketplaceHandler.ValidatePurchase)
			marketplace.POST("/listing/:id/prepare-buy", marketplaceHandler.PrepareBuy)
			marketplace.POST("/listing/:id/complete", marketplaceHandler.CompletePurchase)
			marketplace.POST("/buy/template/:id", marketplaceHandler.PrepareBuy)
			marketplace.POST("/buy/submit/:id", marketplaceHandler.SubmitBuy)

			marketplace.POST("/offer/template", marketplaceHandler.OfferTemplate)
			marketplace.POST("/offer/track", marketplaceHandler.TrackOffer)
			marketplace.GET("/offers", marketplaceHandler.GetOffers)
			marketplace.GET("/offers/nft/:nft_id", marketplaceHandler.GetOffersForNFT)
			marketplace.POST("/offer/:offer_id/accept-template", marketplaceHandler.AcceptOfferTemplate)
			marketplace.POST("/offer/:offer_id/complete", marketplaceHandler.CompleteOfferSale)
			marketplace.POST("/offer/:offer_id/cancel", marketplaceHandler.CancelOffer)
		}

		transaction := api.Group("/transaction")
		{
			transaction.POST("/nft/mint/template", transactionHandler.MintTemplate)
			transaction.GET("/metadata/hash/:hash", transactionHandler.GetMetadataByHash)
			transaction.GET("/metadata/id/:id", transactionHandler.GetMetadataByID)
			transaction.GET("/metadata/archive/:hash", transactionHandler.GetMetadataArchive)
			transaction.POST("/submit", transactionHandler.Submit)
			transaction.GET("/nfts/:address", transactionHandler.GetAccountNFTs)
		}
	}

	// Archived metadata is readable from disk in development.
	if cfg.IsDevelopment() && cfg.AWS.AccessKeyID == "" && cfg.Archive.LocalDir != "" {
		r.Static("/archive", cfg.Archive.LocalDir)
	}

	return r
}
