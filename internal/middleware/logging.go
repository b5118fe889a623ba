// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/utils"
)

// maxAuditBody caps the request body copied into an audit row.
const maxAuditBody = 64 << 10

// auditRedactedFields never reach the audit table.
var auditRedactedFields = []string{"secret", "seed", "signed_transaction", "signed_payment", "signed_nft_offer"}

// AuditLogMiddleware records every mutating request. Rows are written in
// the background so a slow database does not hold the response.
func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		// Only the audit copy is capped; the handler still reads the whole body.
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), c.Request.Body))
		}

		c.Next()

		var requestData map[string]interface{}
		if len(requestBody) > 0 {
			json.Unmarshal(requestBody, &requestData)
		}
		redact(requestData)

		wallet, _ := utils.GetWalletAddressFromContext(c)
		auditLog := &models.AuditLog{
			WalletAddress: wallet,
			Action:        c.Request.Method + " " + c.FullPath(),
			ResourceType:  extractResourceType(c.Request.URL.Path),
			ResourceID:    extractResourceID(c),
			StatusCode:    c.Writer.Status(),
			NewValues:     models.JSONB(requestData),
			IPAddress:     c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
		}

		go func() {
			if err := db.Create(auditLog).Error; err != nil {
				logrus.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

func redact(data map[string]interface{}) {
	for k, v := range data {
		for _, field := range auditRedactedFields {
			if k == field {
				data[k] = "[redacted]"
			}
		}
		if nested, ok := v.(map[string]interface{}); ok {
			redact(nested)
		}
	}
}

// extractResourceType maps /api/<group>/... to <group>.
func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "api" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(c *gin.Context) string {
	for _, key := range []string{"id", "offer_id", "nft_id", "address"} {
		if v := c.Param(key); v != "" {
			return v
		}
	}
	return ""
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		wallet, _ := utils.GetWalletAddressFromContext(c)
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"wallet":     wallet,
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request processed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}
