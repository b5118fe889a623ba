// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/services"
	"github.com/javajoker/rwa-backend/internal/utils"
)

// respondError maps service errors onto status codes. resource names the
// "<resource>.not_found" message used for 404s.
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	var (
		validationErr *services.ValidationError
		transitionErr *services.InvalidTransitionError
		gatewayErr    *ledger.GatewayError
		submitErr     *ledger.SubmitError
	)

	switch {
	case errors.As(err, &validationErr):
		utils.BadRequestResponse(c, validationErr.Message)
	case errors.Is(err, services.ErrNoLongerOwned):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyListingNotOwned))
	case errors.As(err, &transitionErr):
		utils.ConflictResponse(c, transitionErr.Error())
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, detail(err, services.ErrConflict))
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrIntegrity):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrPending):
		utils.FlatResponse(c, http.StatusAccepted, gin.H{
			"pending": true,
			"message": i18n.T(lang, i18n.KeyListingPending),
		})
	case errors.As(err, &submitErr):
		utils.BadRequestResponse(c, submitErr.Error())
	case errors.As(err, &gatewayErr):
		utils.BadRequestResponse(c, gatewayErr.Error())
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		utils.InternalErrorResponse(c)
	}
}

// detail strips the sentinel prefix added by fmt.Errorf("%w: ...").
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// bindJSON binds and validates the body, writing the 400 itself.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return false
	}
	return true
}
