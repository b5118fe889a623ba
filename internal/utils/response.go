// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/rwa-backend/internal/i18n"
)

// Envelope is the token API shape: {"success": true, "response": ...}.
type Envelope struct {
	Success  bool        `json:"success"`
	Response interface{} `json:"response,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Response: data})
}

// FlatResponse writes fields at the top level next to "success", which is
// the shape of the marketplace and transaction APIs.
func FlatResponse(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": status < http.StatusBadRequest}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Envelope{Success: false, Error: message})
}

func BadRequestResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyValidationInvalid, "request")
	}
	ErrorResponse(c, http.StatusBadRequest, message)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyAuthInvalidToken)
	}
	ErrorResponse(c, http.StatusUnauthorized, message)
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyForbidden)
	}
	ErrorResponse(c, http.StatusForbidden, message)
}

// NotFoundResponse looks up "<resource>.not_found" in the message catalog.
func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, i18n.T(GetLangFromContext(c), resource+".not_found"))
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, message)
}

func InternalErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, i18n.T(GetLangFromContext(c), i18n.KeyInternalError))
}

func ValidationErrorResponse(c *gin.Context, err error) {
	errs := GetValidationErrors(err)
	if len(errs) == 0 {
		BadRequestResponse(c, "")
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   errs[0].Message,
		"details": errs,
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

// GetWalletAddressFromContext returns the address bound by a wallet session.
func GetWalletAddressFromContext(c *gin.Context) (string, bool) {
	if address, exists := c.Get("wallet_address"); exists {
		if addressStr, ok := address.(string); ok && addressStr != "" {
			return addressStr, true
		}
	}
	return "", false
}
