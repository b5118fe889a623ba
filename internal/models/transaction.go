// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an append-only receipt of a ledger transaction submitted
// on behalf of a registered wallet.
type Transaction struct {
	BaseModel
	TxHash   string            `json:"tx_hash" gorm:"uniqueIndex;size:128;not null"`
	TxType   TransactionType   `json:"tx_type" gorm:"type:varchar(50);not null;index"`
	WalletID uuid.UUID         `json:"wallet_id" gorm:"type:uuid;not null;index"`
	TokenID  *uuid.UUID        `json:"token_id" gorm:"type:uuid;index"`
	Status   TransactionStatus `json:"status" gorm:"type:varchar(20);not null"`
	RawData  JSONB             `json:"raw_data" gorm:"type:jsonb"`

	// Relationships
	Wallet Wallet `json:"wallet,omitempty" gorm:"foreignKey:WalletID"`
	Token  *Token `json:"token,omitempty" gorm:"foreignKey:TokenID"`
}

type TransactionView struct {
	ID            string                 `json:"id"`
	TxHash        string                 `json:"tx_hash"`
	TxType        TransactionType        `json:"tx_type"`
	WalletAddress string                 `json:"wallet_address"`
	TokenName     *string                `json:"token_name"`
	Status        TransactionStatus      `json:"status"`
	CreatedAt     string                 `json:"created_at"`
	RawData       map[string]interface{} `json:"raw_data"`
}

// View requires Wallet and Token to be preloaded.
func (t *Transaction) View() TransactionView {
	view := TransactionView{
		ID:            t.ID.String(),
		TxHash:        t.TxHash,
		TxType:        t.TxType,
		WalletAddress: t.Wallet.Address,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		RawData:       t.RawData,
	}
	if t.Token != nil {
		view.TokenName = &t.Token.Name
	}
	return view
}
