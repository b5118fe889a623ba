// internal/cli/command/market.go
package command

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/javajoker/rwa-backend/internal/cli"
	"github.com/javajoker/rwa-backend/internal/ledger"
)

const (
	// CmdNmMarket is the command name.
	CmdNmMarket cli.CmdName = "market"
)

func init() {
	cli.Registrar[CmdNmMarket] = NewMarket
}

// Market lists, buys and cancels NFT sales.
type Market struct {
	Action       string
	ID           string
	NFTID        string
	Price        decimal.Decimal
	MetadataHash string
	Destination  string
	Offer        bool
}

// NewMarket constructs and initializes the command.
func NewMarket() cli.Command {
	return &Market{}
}

// Name returns the command name.
func (c *Market) Name() cli.CmdName {
	return CmdNmMarket
}

// Help prints out the help message for the command.
func (c *Market) Help(ctx context.Context) {
	cli.Normf("\nUsage: ")
	cli.Boldf("rwa market <action> [<args>]\n")
	cli.Normf("\n")
	cli.Normf("  Sells and buys NFTs through listings or native ledger sell offers.\n")
	cli.Normf("\n")
	cli.Normf("Actions:\n")
	cli.Boldf("  listings\n")
	cli.Normf("    Shows active listings.\n")
	cli.Boldf("  list <nft_id> <price_xrp> --metadata-hash=<hash>\n")
	cli.Normf("    Lists an NFT of the current wallet for sale.\n")
	cli.Boldf("  list <nft_id> <price_xrp> --offer [--metadata-hash=<hash>] [--destination=<address>]\n")
	cli.Normf("    Creates a sell offer on the ledger and registers it with the backend.\n")
	cli.Boldf("  buy <listing_id> | buy --offer=<offer_id>\n")
	cli.Normf("    Buys a listing (its seller must also be a local wallet) or accepts a\n")
	cli.Normf("    sell offer, then waits for the ledger to validate the purchase.\n")
	cli.Boldf("  cancel <listing_id> | cancel --offer=<offer_id>\n")
	cli.Normf("    Cancels a listing, or a sell offer on the backend and the ledger.\n")
	cli.Boldf("  offers [<nft_id>]\n")
	cli.Normf("    Shows active sell offers, optionally for one NFT.\n")
	cli.Normf("\n")
	cli.Normf("Examples:\n")
	cli.Valuf("  rwa market list 000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000001 12.5 --metadata-hash=3f1c0d9a8b7e6f50\n")
	cli.Valuf("  rwa market buy --offer=9C8D1A5E0F...\n")
	cli.Normf("\n")
}

// Parse parses the arguments passed to the command.
func (c *Market) Parse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("Action required (listings, list, buy, cancel, offers).")
	}
	c.Action, args = args[0], args[1:]
	flags := cli.GetEnv(ctx).Flags

	switch c.Action {
	case "listings":
	case "offers":
		if len(args) > 0 {
			c.NFTID = args[0]
		}
	case "list":
		if len(args) != 2 {
			return errors.New("NFT id and price required.")
		}
		price, err := decimal.NewFromString(args[1])
		if err != nil || !price.IsPositive() {
			return errors.Errorf("Invalid price: %s.", args[1])
		}
		c.NFTID, c.Price = args[0], price
		c.MetadataHash = flags["metadata-hash"]
		c.Destination = flags["destination"]
		c.Offer = flags["offer"] == "true"
		if !c.Offer && c.MetadataHash == "" {
			return errors.New("--metadata-hash is required for listings.")
		}
	case "buy", "cancel":
		if offerID, ok := flags["offer"]; ok && offerID != "true" {
			c.ID, c.Offer = offerID, true
			return nil
		}
		if len(args) != 1 {
			return errors.New("Listing id (or --offer=<offer_id>) required.")
		}
		c.ID = args[0]
	default:
		return errors.Errorf("Unknown market action: %s.", c.Action)
	}
	return nil
}

// Execute the command or return a human-friendly error.
func (c *Market) Execute(ctx context.Context) error {
	switch c.Action {
	case "listings":
		return c.listings(ctx)
	case "offers":
		return c.offers(ctx)
	case "list":
		if c.Offer {
			return c.createOffer(ctx)
		}
		return c.createListing(ctx)
	case "buy":
		if c.Offer {
			return c.acceptOffer(ctx)
		}
		return c.buyListing(ctx)
	case "cancel":
		if c.Offer {
			return c.cancelOffer(ctx)
		}
		return c.cancelListing(ctx)
	}
	return nil
}

func (c *Market) listings(ctx context.Context) error {
	_, raw, err := cli.GetEnv(ctx).API.Get(ctx, "/api/marketplace/listings")
	if err != nil {
		return err
	}
	var listings []listingView
	if err := raw.Extract("listings", &listings); err != nil {
		return err
	}

	cli.Boldf("Listings:\n")
	if len(listings) == 0 {
		cli.Normf("  No active listing.\n")
	}
	for _, l := range listings {
		printListing(l)
	}
	return nil
}

func (c *Market) offers(ctx context.Context) error {
	path := "/api/marketplace/offers"
	if c.NFTID != "" {
		path = "/api/marketplace/offers/nft/" + c.NFTID
	}

	_, raw, err := cli.GetEnv(ctx).API.Get(ctx, path)
	if err != nil {
		return err
	}
	var offers []listingView
	if err := raw.Extract("offers", &offers); err != nil {
		return err
	}

	cli.Boldf("Offers:\n")
	if len(offers) == 0 {
		cli.Normf("  No active offer.\n")
	}
	for _, o := range offers {
		printListing(o)
	}
	return nil
}

func (c *Market) createListing(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	seller, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	_, raw, err := env.API.Post(ctx, "/api/marketplace/list", map[string]interface{}{
		"nft_id":         c.NFTID,
		"seller_address": seller.Address,
		"price_xrp":      c.Price.String(),
		"metadata_hash":  c.MetadataHash,
	}, seller.AccessToken)
	if err != nil {
		return err
	}

	var listing listingView
	if err := raw.Extract("listing", &listing); err != nil {
		return err
	}
	cli.Succf("Listed\n")
	printListing(listing)
	return nil
}

func (c *Market) createOffer(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	seller, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	value, err := cli.Background(ctx, "Creating sell offer...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/marketplace/offer/template", map[string]interface{}{
			"seller_address": seller.Address,
			"nft_id":         c.NFTID,
			"price_xrp":      c.Price.String(),
			"destination":    c.Destination,
		}, seller.AccessToken)
		if err != nil {
			return nil, err
		}
		var template ledger.Template
		if err := raw.Extract("template", &template); err != nil {
			return nil, err
		}

		submitted, err := signAndSubmit(ctx, &template, seller.Seed)
		if err != nil {
			return nil, err
		}

		raw, err = pollAPI(ctx, "/api/marketplace/offer/track", map[string]interface{}{
			"transaction_hash": submitted.Hash,
			"nft_id":           c.NFTID,
			"seller_address":   seller.Address,
			"price_xrp":        c.Price.String(),
			"metadata_hash":    c.MetadataHash,
		}, seller.AccessToken)
		if err != nil {
			return nil, errors.Wrapf(err, "offer transaction %s", submitted.Hash)
		}

		var offer listingView
		return &offer, raw.Extract("offer", &offer)
	})
	if err != nil {
		return err
	}

	cli.Succf("Sell offer created\n")
	printListing(*value.(*listingView))
	return nil
}

type buyTemplates struct {
	Payment  ledger.Template
	Transfer ledger.Template
	Listing  listingView
}

type purchase struct {
	Listing       listingView
	TransferOffer string
}

// buyListing signs the payment as the buyer and the transfer offer as the
// seller, so both wallets must be held locally.
func (c *Market) buyListing(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	buyer, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	value, err := cli.Background(ctx, "Buying listing...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/marketplace/buy/template/"+c.ID,
			map[string]interface{}{"buyer_address": buyer.Address}, buyer.AccessToken)
		if err != nil {
			return nil, err
		}

		var templates buyTemplates
		if err := raw.Extract("payment_template", &templates.Payment); err != nil {
			return nil, err
		}
		if err := raw.Extract("nft_offer_template", &templates.Transfer); err != nil {
			return nil, err
		}
		if err := raw.Extract("listing", &templates.Listing); err != nil {
			return nil, err
		}

		seller, ok := env.State.Find(templates.Listing.SellerAddress)
		if !ok {
			return nil, errors.Errorf("The seller %s must sign the NFT transfer; ask them to sell it with `rwa market list --offer`.",
				templates.Listing.SellerAddress)
		}

		payment, err := sign(ctx, &templates.Payment, buyer.Seed)
		if err != nil {
			return nil, err
		}
		transfer, err := sign(ctx, &templates.Transfer, seller.Seed)
		if err != nil {
			return nil, err
		}

		status, raw, err := env.API.Post(ctx, "/api/marketplace/buy/submit/"+c.ID, map[string]interface{}{
			"buyer_address":    buyer.Address,
			"signed_payment":   signedTx{TxBlob: payment.TxBlob, Hash: payment.Hash()},
			"signed_nft_offer": signedTx{TxBlob: transfer.TxBlob, Hash: transfer.Hash()},
		}, buyer.AccessToken)
		if err != nil {
			return nil, err
		}

		var results struct {
			Payment  ledger.SubmitResult
			Transfer ledger.SubmitResult
		}
		if err := raw.Extract("payment_result", &results.Payment); err != nil {
			return nil, err
		}
		if err := raw.Extract("nft_offer_result", &results.Transfer); err != nil {
			return nil, err
		}

		if status == http.StatusAccepted {
			raw, err = pollAPI(ctx, "/api/marketplace/listing/"+c.ID+"/complete", map[string]interface{}{
				"buyer_address":     buyer.Address,
				"payment_tx_hash":   results.Payment.Hash,
				"nft_offer_tx_hash": results.Transfer.Hash,
			}, buyer.AccessToken)
			if err != nil {
				return nil, err
			}
		}

		var bought purchase
		if err := raw.Extract("listing", &bought.Listing); err != nil {
			return nil, err
		}

		// The seller's transfer offer still has to be accepted by the buyer.
		tx, err := env.Ledger.Transaction(ctx, results.Transfer.Hash)
		if err != nil {
			return nil, err
		}
		if tx.OfferID != "" {
			accept := ledger.NFTAcceptOfferTemplate(buyer.Address, tx.OfferID)
			if _, err := signAndSubmit(ctx, accept, buyer.Seed); err != nil {
				return nil, errors.Wrap(err, "purchase completed but accepting the NFT transfer failed")
			}
			bought.TransferOffer = tx.OfferID
		}
		return &bought, nil
	})
	if err != nil {
		return err
	}
	bought := value.(*purchase)

	cli.Succf("Purchase completed\n")
	printListing(bought.Listing)
	if bought.TransferOffer != "" {
		cli.Normf("  Accepted transfer offer %s\n", bought.TransferOffer)
	}
	return nil
}

func (c *Market) acceptOffer(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	buyer, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	value, err := cli.Background(ctx, "Accepting sell offer...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/marketplace/offer/"+c.ID+"/accept-template",
			map[string]interface{}{"buyer_address": buyer.Address}, buyer.AccessToken)
		if err != nil {
			return nil, err
		}
		var template ledger.Template
		if err := raw.Extract("template", &template); err != nil {
			return nil, err
		}

		submitted, err := signAndSubmit(ctx, &template, buyer.Seed)
		if err != nil {
			return nil, err
		}

		raw, err = pollAPI(ctx, "/api/marketplace/offer/"+c.ID+"/complete", map[string]interface{}{
			"buyer_address":    buyer.Address,
			"transaction_hash": submitted.Hash,
		}, buyer.AccessToken)
		if err != nil {
			return nil, errors.Wrapf(err, "accept transaction %s", submitted.Hash)
		}

		var offer listingView
		return &offer, raw.Extract("offer", &offer)
	})
	if err != nil {
		return err
	}

	cli.Succf("Offer accepted\n")
	printListing(*value.(*listingView))
	return nil
}

func (c *Market) cancelListing(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	seller, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	_, raw, err := env.API.Post(ctx, "/api/marketplace/listing/"+c.ID+"/cancel",
		map[string]interface{}{"seller_address": seller.Address}, seller.AccessToken)
	if err != nil {
		return err
	}

	var listing listingView
	if err := raw.Extract("listing", &listing); err != nil {
		return err
	}
	cli.Succf("Listing cancelled\n")
	printListing(listing)
	return nil
}

func (c *Market) cancelOffer(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	seller, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	value, err := cli.Background(ctx, "Cancelling sell offer...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/marketplace/offer/"+c.ID+"/cancel",
			map[string]interface{}{"seller_address": seller.Address}, seller.AccessToken)
		if err != nil {
			return nil, err
		}
		var template ledger.Template
		if err := raw.Extract("cancel_template", &template); err != nil {
			return nil, err
		}
		return signAndSubmit(ctx, &template, seller.Seed)
	})
	if err != nil {
		return err
	}

	cli.Succf("Offer cancelled\n")
	cli.Normf("  Ledger cancellation: %s\n", value.(*ledger.SubmitResult).Hash)
	return nil
}
