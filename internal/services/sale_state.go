// internal/services/sale_state.go
package services

import "github.com/javajoker/rwa-backend/internal/models"

// saleTransitions lists every allowed status change. Terminal states have
// no entry.
var saleTransitions = map[models.SaleStatus][]models.SaleStatus{
	models.SaleStatusActive: {
		models.SaleStatusCompleted,
		models.SaleStatusCancelled,
		models.SaleStatusSold,
		models.SaleStatusInvalid,
	},
}

// CheckSaleTransition returns *InvalidTransitionError unless from may move to to.
func CheckSaleTransition(from, to models.SaleStatus) error {
	for _, next := range saleTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

func IsTerminalSaleStatus(status models.SaleStatus) bool {
	return len(saleTransitions[status]) == 0
}
