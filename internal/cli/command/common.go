// internal/cli/command/common.go
package command

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/cli"
	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/models"
)

// listingView is a sale as the marketplace API renders it.
type listingView struct {
	models.Sale
	PriceXRP string `json:"price_xrp"`
}

// signedTx is what the backend accepts for a signed transaction.
type signedTx struct {
	TxBlob string `json:"tx_blob"`
	Hash   string `json:"hash,omitempty"`
}

// sign has the configured node sign template with seed.
func sign(ctx context.Context, template *ledger.Template, seed string) (*ledger.SignedTx, error) {
	env := cli.GetEnv(ctx)

	signed, err := env.Ledger.Sign(ctx, template.Template, seed)
	if err != nil {
		return nil, errors.Wrapf(err, "sign %s", template.TransactionType)
	}

	logrus.WithFields(logrus.Fields{
		"type": template.TransactionType,
		"hash": signed.Hash(),
	}).Debug("Signed transaction")
	return signed, nil
}

// signAndSubmit signs template with seed and submits it to the node.
func signAndSubmit(ctx context.Context, template *ledger.Template, seed string) (*ledger.SubmitResult, error) {
	signed, err := sign(ctx, template, seed)
	if err != nil {
		return nil, err
	}

	result, err := cli.GetEnv(ctx).Ledger.Submit(ctx, signed.TxBlob)
	if err != nil {
		return nil, errors.Wrapf(err, "submit %s", template.TransactionType)
	}
	if result.Hash == "" {
		result.Hash = signed.Hash()
	}
	return result, nil
}

// pollAPI posts body to path until the backend stops answering 202.
func pollAPI(ctx context.Context, path string, body interface{}, token string) (cli.Raw, error) {
	env := cli.GetEnv(ctx)

	var raw cli.Raw
	err := cli.Poll(ctx, env.Config.PollAttempts, env.PollInterval(), func(ctx context.Context) (bool, error) {
		status, r, err := env.API.Post(ctx, path, body, token)
		if err != nil {
			return false, err
		}
		raw = r
		return status != http.StatusAccepted, nil
	})
	return raw, err
}

// currentWallet returns the selected local wallet or a human-friendly
// error.
func currentWallet(ctx context.Context) (*cli.LocalWallet, error) {
	return cli.GetEnv(ctx).State.CurrentWallet()
}

func printJSON(v interface{}) {
	raw, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		cli.Errof("  <unprintable: %s>\n", err)
		return
	}
	cli.Valuf("  %s\n", raw)
}

func printListing(l listingView) {
	cli.Boldf("  %s", l.ListingID)
	cli.Normf("  %s  ", l.Mechanism)
	cli.Valuf("%s XRP", l.PriceXRP)
	cli.Normf("  nft=%s  seller=%s  status=%s\n", l.NFTID, l.SellerAddress, l.Status)
	if l.OfferID != "" {
		cli.Normf("    offer=%s\n", l.OfferID)
	}
	if m, ok := l.Metadata.(map[string]interface{}); ok {
		if name, ok := m["name"]; ok {
			cli.Normf("    name=%v\n", name)
		}
		if problem, ok := m["error"]; ok {
			cli.Warnf("    metadata: %v\n", problem)
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Local().Format("2006-01-02 15:04")
}
