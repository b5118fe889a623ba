// internal/ledger/templates.go
package ledger

import "strconv"

const defaultFee = "10"

// Instructions tells the signer which fields it still has to fill.
type Instructions struct {
	Fee                string  `json:"fee"`
	Sequence           *uint32 `json:"sequence"`
	LastLedgerSequence *uint32 `json:"last_ledger_sequence"`
}

// Template is an unsigned transaction in rippled JSON form.
type Template struct {
	TransactionType string                 `json:"transaction_type"`
	Template        map[string]interface{} `json:"template"`
	Instructions    Instructions           `json:"instructions"`
}

func newTemplate(txType string, fields map[string]interface{}) *Template {
	fields["TransactionType"] = txType
	return &Template{
		TransactionType: txType,
		Template:        fields,
		Instructions:    Instructions{Fee: defaultFee},
	}
}

func PaymentTemplate(account, destination string, amountDrops int64) *Template {
	return newTemplate(TxPayment, map[string]interface{}{
		"Account":     account,
		"Destination": destination,
		"Amount":      strconv.FormatInt(amountDrops, 10),
	})
}

// NFTMintTemplate hex encodes uri. Zero flags default to transferable.
func NFTMintTemplate(account, uri string, flags, transferFee, taxon uint32) *Template {
	if flags == 0 {
		flags = TfTransferable
	}
	fields := map[string]interface{}{
		"Account":      account,
		"URI":          StrToHex(uri),
		"Flags":        flags,
		"NFTokenTaxon": taxon,
	}
	if transferFee > 0 {
		fields["TransferFee"] = transferFee
	}
	return newTemplate(TxNFTokenMint, fields)
}

// NFTSellOfferTemplate lists nftID for amountDrops on the ledger.
func NFTSellOfferTemplate(account, nftID string, amountDrops int64, expiration uint32, destination string) *Template {
	fields := map[string]interface{}{
		"Account":   account,
		"NFTokenID": nftID,
		"Amount":    strconv.FormatInt(amountDrops, 10),
		"Flags":     uint32(TfSellNFToken),
	}
	if expiration > 0 {
		fields["Expiration"] = expiration
	}
	if destination != "" {
		fields["Destination"] = destination
	}
	return newTemplate(TxNFTokenCreateOffer, fields)
}

// NFTTransferOfferTemplate is a zero-amount sell offer reserved for
// destination. Payment settles separately.
func NFTTransferOfferTemplate(account, destination, nftID string) *Template {
	return newTemplate(TxNFTokenCreateOffer, map[string]interface{}{
		"Account":     account,
		"NFTokenID":   nftID,
		"Destination": destination,
		"Amount":      "0",
		"Flags":       uint32(TfSellNFToken),
	})
}

func NFTAcceptOfferTemplate(account, sellOfferID string) *Template {
	return newTemplate(TxNFTokenAcceptOffer, map[string]interface{}{
		"Account":          account,
		"NFTokenSellOffer": sellOfferID,
	})
}

func NFTCancelOfferTemplate(account string, offerIDs ...string) *Template {
	return newTemplate(TxNFTokenCancelOffer, map[string]interface{}{
		"Account":       account,
		"NFTokenOffers": offerIDs,
	})
}

// AccountSetTemplate turns on rippling for an issuer.
func AccountSetTemplate(account string) map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": TxAccountSet,
		"Account":         account,
		"SetFlag":         AsfDefaultRipple,
	}
}

func TrustSetTemplate(account, issuer, currency string, limit int64) map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": TxTrustSet,
		"Account":         account,
		"LimitAmount": map[string]interface{}{
			"currency": currency,
			"issuer":   issuer,
			"value":    strconv.FormatInt(limit, 10),
		},
	}
}

func IssuedPaymentTemplate(issuer, holder, currency string, amount int64) map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": TxPayment,
		"Account":         issuer,
		"Destination":     holder,
		"Amount": map[string]interface{}{
			"currency": currency,
			"issuer":   issuer,
			"value":    strconv.FormatInt(amount, 10),
		},
	}
}
