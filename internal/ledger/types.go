// internal/ledger/types.go
package ledger

import (
	"encoding/json"
	"strconv"
)

const (
	ResultSuccess = "tesSUCCESS"

	TxPayment            = "Payment"
	TxAccountSet         = "AccountSet"
	TxTrustSet           = "TrustSet"
	TxNFTokenMint        = "NFTokenMint"
	TxNFTokenCreateOffer = "NFTokenCreateOffer"
	TxNFTokenAcceptOffer = "NFTokenAcceptOffer"
	TxNFTokenCancelOffer = "NFTokenCancelOffer"

	// AccountSet flag enabling rippling by default on issued currencies.
	AsfDefaultRipple = 8
	// NFTokenMint flag making the token transferable.
	TfTransferable   = 8
	// NFTokenCreateOffer flag marking a sell offer.
	TfSellNFToken    = 1
)

// Wallet is a key pair handed out by the test-network faucet.
type Wallet struct {
	ClassicAddress string `json:"classic_address"`
	Seed           string `json:"seed"`
}

type TrustLine struct {
	Account  string `json:"account"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Limit    string `json:"limit"`
}

type NFToken struct {
	NFTokenID    string `json:"NFTokenID"`
	Issuer       string `json:"Issuer"`
	URI          string `json:"URI,omitempty"`
	Flags        uint32 `json:"Flags"`
	NFTokenTaxon uint32 `json:"NFTokenTaxon"`
	TransferFee  uint32 `json:"TransferFee,omitempty"`
	Serial       uint32 `json:"nft_serial"`
}

type SubmitResult struct {
	Status              string `json:"status"`
	Hash                string `json:"hash"`
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
}

// TxStatus is the server-observed state of a transaction.
type TxStatus struct {
	Hash            string          `json:"hash"`
	Found           bool            `json:"found"`
	Validated       bool            `json:"validated"`
	Result          string          `json:"result"`
	TransactionType string          `json:"transaction_type"`
	Account         string          `json:"account"`
	Destination     string          `json:"destination,omitempty"`
	Amount          json.RawMessage `json:"amount,omitempty"`
	NFTokenID       string          `json:"nftoken_id,omitempty"`
	OfferID         string          `json:"offer_id,omitempty"`
	SellOffer       string          `json:"nftoken_sell_offer,omitempty"`
	Flags           uint32          `json:"flags,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Succeeded reports a validated, fully applied transaction.
func (t *TxStatus) Succeeded() bool {
	return t.Found && t.Validated && t.Result == ResultSuccess
}

// Pending reports a transaction that may still be validated later.
func (t *TxStatus) Pending() bool {
	return !t.Found || !t.Validated
}

// IsSellOffer reports an NFTokenCreateOffer carrying the sell flag.
func (t *TxStatus) IsSellOffer() bool {
	return t.TransactionType == TxNFTokenCreateOffer && t.Flags&TfSellNFToken != 0
}

// AmountDrops returns an XRP amount in drops. Issued-currency amounts
// report false.
func (t *TxStatus) AmountDrops() (int64, bool) {
	var s string
	if len(t.Amount) == 0 || json.Unmarshal(t.Amount, &s) != nil {
		return 0, false
	}
	drops, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return drops, true
}

// SignedTx is a locally or node signed transaction ready for submission.
type SignedTx struct {
	TxBlob string                 `json:"tx_blob"`
	TxJSON map[string]interface{} `json:"tx_json"`
}

// Hash returns the transaction hash reported by the signer.
func (s *SignedTx) Hash() string {
	if s.TxJSON == nil {
		return ""
	}
	h, _ := s.TxJSON["hash"].(string)
	return h
}
