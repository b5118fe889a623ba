// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/javajoker/rwa-backend/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrPending    = errors.New("transaction not yet validated")
	ErrValidation = errors.New("validation failed")

	// ErrNoLongerOwned means the seller lost the NFT and the sale was
	// invalidated.
	ErrNoLongerOwned = errors.New("NFT is no longer owned by the seller")

	// ErrIntegrity means a stored document no longer matches its hash.
	ErrIntegrity = errors.New("metadata integrity check failed")
)

// InvalidTransitionError rejects a status change the sale state machine
// does not allow.
type InvalidTransitionError struct {
	From models.SaleStatus
	To   models.SaleStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ValidationError carries a client-facing message and matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
