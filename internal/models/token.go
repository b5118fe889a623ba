// internal/models/token.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Token is an issued currency. Supply is fixed once the issuance
// transactions have been recorded.
type Token struct {
	BaseModel
	CurrencyCode     string    `json:"currency_code" gorm:"size:40;not null;index"`
	Name             string    `json:"name" gorm:"size:100;not null"`
	TotalSupply      int64     `json:"total_supply" gorm:"not null"`
	TokenMetadata    JSONB     `json:"token_metadata" gorm:"type:jsonb"`
	IssuerID         uuid.UUID `json:"issuer_id" gorm:"type:uuid;not null;index"`
	HolderAddress    string    `json:"holder_address" gorm:"size:64"`
	EnableRipplingTx string    `json:"enable_rippling_tx" gorm:"size:128"`
	TrustSetTx       string    `json:"trust_set_tx" gorm:"size:128"`
	PaymentTx        string    `json:"payment_tx" gorm:"size:128"`

	// Relationships
	Issuer       Wallet        `json:"issuer,omitempty" gorm:"foreignKey:IssuerID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:TokenID"`
}

type TokenView struct {
	ID            string                 `json:"id"`
	CurrencyCode  string                 `json:"currency_code"`
	Name          string                 `json:"name"`
	TotalSupply   int64                  `json:"total_supply"`
	TokenMetadata map[string]interface{} `json:"token_metadata"`
	IssuerAddress string                 `json:"issuer_address"`
	HolderAddress string                 `json:"holder_address"`
	CreatedAt     string                 `json:"created_at"`
	Transactions  map[string]string      `json:"transactions"`
}

// View requires Issuer to be preloaded.
func (t *Token) View() TokenView {
	return TokenView{
		ID:            t.ID.String(),
		CurrencyCode:  t.CurrencyCode,
		Name:          t.Name,
		TotalSupply:   t.TotalSupply,
		TokenMetadata: t.TokenMetadata,
		IssuerAddress: t.Issuer.Address,
		HolderAddress: t.HolderAddress,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		Transactions: map[string]string{
			"enable_rippling_tx": t.EnableRipplingTx,
			"trust_set_tx":       t.TrustSetTx,
			"payment_tx":         t.PaymentTx,
		},
	}
}
