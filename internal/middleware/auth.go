// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/utils"
)

const walletAddressKey = "wallet_address"

// OptionalWalletAuth binds a wallet session when a bearer token is sent.
// Requests without one pass through; a bad token is rejected.
func OptionalWalletAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		lang := utils.GetLangFromContext(c)

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   i18n.T(lang, i18n.KeyAuthInvalidToken),
			})
			c.Abort()
			return
		}

		claims, err := utils.ValidateWalletToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   i18n.T(lang, i18n.KeyAuthInvalidToken),
			})
			c.Abort()
			return
		}

		c.Set(walletAddressKey, claims.WalletAddress)
		c.Next()
	}
}

// RequireSessionMatch aborts with 403 when a wallet session is bound and
// does not match address. It reports whether the request may continue.
func RequireSessionMatch(c *gin.Context, address string) bool {
	bound, ok := utils.GetWalletAddressFromContext(c)
	if !ok || bound == address {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthWalletMismatch),
	})
	c.Abort()
	return false
}
