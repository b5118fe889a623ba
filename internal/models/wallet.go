// internal/models/wallet.go
package models

import (
	"time"
)

type Wallet struct {
	BaseModel
	Address    string     `json:"address" gorm:"uniqueIndex;size:64;not null"`
	SealedSeed string     `json:"-" gorm:"type:text;not null"`
	LastSynced *time.Time `json:"last_synced"`

	// Relationships
	Tokens []Token `json:"tokens,omitempty" gorm:"foreignKey:IssuerID"`
}

type WalletView struct {
	ID          string  `json:"id"`
	Address     string  `json:"address"`
	CreatedAt   string  `json:"created_at"`
	LastSynced  *string `json:"last_synced"`
	TokensCount int     `json:"tokens_count"`
}

// View requires Tokens to be preloaded for an accurate tokens_count.
func (w *Wallet) View() WalletView {
	view := WalletView{
		ID:          w.ID.String(),
		Address:     w.Address,
		CreatedAt:   w.CreatedAt.UTC().Format(time.RFC3339),
		TokensCount: len(w.Tokens),
	}
	if w.LastSynced != nil {
		synced := w.LastSynced.UTC().Format(time.RFC3339)
		view.LastSynced = &synced
	}
	return view
}
