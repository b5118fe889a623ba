// internal/cli/command/nft.go
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/javajoker/rwa-backend/internal/cli"
	"github.com/javajoker/rwa-backend/internal/ledger"
)

const (
	// CmdNmNFT is the command name.
	CmdNmNFT cli.CmdName = "nft"

	// nftFlagTransferable marks minted NFTs as transferable.
	nftFlagTransferable = 8
)

func init() {
	cli.Registrar[CmdNmNFT] = NewNFT
}

// NFT mints and lists NFTs.
type NFT struct {
	Action      string
	Address     string
	Metadata    map[string]interface{}
	Flags       uint32
	TransferFee uint32
	Taxon       uint32
}

// NewNFT constructs and initializes the command.
func NewNFT() cli.Command {
	return &NFT{}
}

// Name returns the command name.
func (c *NFT) Name() cli.CmdName {
	return CmdNmNFT
}

// Help prints out the help message for the command.
func (c *NFT) Help(ctx context.Context) {
	cli.Normf("\nUsage: ")
	cli.Boldf("rwa nft <action> [<args>]\n")
	cli.Normf("\n")
	cli.Normf("  Mints NFTs backed by stored metadata and lists an account's NFTs.\n")
	cli.Normf("\n")
	cli.Normf("Actions:\n")
	cli.Boldf("  mint [<key>=<value> ...] [--metadata=<file.json>] [--taxon=<n>] [--transfer-fee=<n>] [--flags=<n>]\n")
	cli.Normf("    Mints an NFT from the current wallet. Metadata comes from a JSON file\n")
	cli.Normf("    or from key=value pairs.\n")
	cli.Boldf("  list [<address>]\n")
	cli.Normf("    Lists NFTs of an account (current wallet by default).\n")
	cli.Normf("\n")
	cli.Normf("Examples:\n")
	cli.Valuf("  rwa nft mint name=\"Gold Deed\" asset_type=REAL_ESTATE\n")
	cli.Valuf("  rwa nft mint --metadata=deed.json --transfer-fee=500\n")
	cli.Normf("\n")
}

// Parse parses the arguments passed to the command.
func (c *NFT) Parse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("Action required (mint, list).")
	}
	c.Action, args = args[0], args[1:]
	flags := cli.GetEnv(ctx).Flags

	switch c.Action {
	case "list":
		if len(args) > 0 {
			c.Address = args[0]
		}
	case "mint":
		metadata, err := parseMetadata(flags["metadata"], args)
		if err != nil {
			return err
		}
		c.Metadata = metadata

		c.Flags = nftFlagTransferable
		for name, dst := range map[string]*uint32{"flags": &c.Flags, "transfer-fee": &c.TransferFee, "taxon": &c.Taxon} {
			v, ok := flags[name]
			if !ok {
				continue
			}
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return errors.Errorf("Invalid --%s: %s.", name, v)
			}
			*dst = uint32(n)
		}
	default:
		return errors.Errorf("Unknown nft action: %s.", c.Action)
	}
	return nil
}

// parseMetadata reads file when set, then applies key=value pairs.
func parseMetadata(file string, pairs []string) (map[string]interface{}, error) {
	metadata := map[string]interface{}{}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "read metadata file %s", file)
		}
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		if err := decoder.Decode(&metadata); err != nil {
			return nil, errors.Wrapf(err, "metadata file %s is not a JSON object", file)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("Invalid metadata pair: %s (expected key=value).", pair)
		}
		metadata[key] = value
	}

	if len(metadata) == 0 {
		metadata = map[string]interface{}{"source": "RWA CLI", "version": "1.0"}
	}
	return metadata, nil
}

// Execute the command or return a human-friendly error.
func (c *NFT) Execute(ctx context.Context) error {
	switch c.Action {
	case "mint":
		return c.mint(ctx)
	case "list":
		return c.list(ctx)
	}
	return nil
}

type mintTemplate struct {
	Template     ledger.Template `json:"template"`
	MetadataHash string          `json:"metadata_hash"`
	URI          string          `json:"uri"`
}

type mintResult struct {
	Hash         string
	EngineResult string
	MetadataHash string
	NFTID        string
}

func (c *NFT) mint(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	wallet, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	value, err := cli.Background(ctx, "Minting NFT...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/transaction/nft/mint/template", map[string]interface{}{
			"account":      wallet.Address,
			"metadata":     c.Metadata,
			"flags":        c.Flags,
			"transfer_fee": c.TransferFee,
			"taxon":        c.Taxon,
		}, wallet.AccessToken)
		if err != nil {
			return nil, err
		}

		var template mintTemplate
		if err := raw.Extract("template", &template.Template); err != nil {
			return nil, err
		}
		if err := raw.Extract("metadata_hash", &template.MetadataHash); err != nil {
			return nil, err
		}
		if err := raw.Extract("uri", &template.URI); err != nil {
			return nil, err
		}

		signed, err := sign(ctx, &template.Template, wallet.Seed)
		if err != nil {
			return nil, err
		}

		_, raw, err = env.API.Post(ctx, "/api/transaction/submit", map[string]interface{}{
			"signed_transaction": signedTx{TxBlob: signed.TxBlob, Hash: signed.Hash()},
			"account":            wallet.Address,
			"uri":                template.URI,
			"metadata":           c.Metadata,
		}, wallet.AccessToken)
		if err != nil {
			return nil, err
		}

		var submitted ledger.SubmitResult
		if err := raw.Extract("result", &submitted); err != nil {
			return nil, err
		}
		result := &mintResult{
			Hash:         submitted.Hash,
			EngineResult: submitted.EngineResult,
			MetadataHash: template.MetadataHash,
		}

		var nft struct {
			NFTID string `json:"nft_id"`
		}
		if _, ok := raw["nft"]; ok && raw.Extract("nft", &nft) == nil {
			result.NFTID = nft.NFTID
		}
		return result, nil
	})
	if err != nil {
		return err
	}
	result := value.(*mintResult)

	cli.Succf("NFT minted\n")
	cli.Normf("  Transaction: %s (%s)\n", result.Hash, result.EngineResult)
	cli.Normf("  Metadata:    ")
	cli.Valuf("%s\n", result.MetadataHash)
	if result.NFTID == "" {
		cli.Warnf("  Minted on the ledger, but the backend did not record its metadata.\n")
	}
	return nil
}

type nftView struct {
	NFTID            string      `json:"nft_id"`
	NFTokenID        string      `json:"nftoken_id"`
	TransactionHash  string      `json:"transaction_hash"`
	Status           string      `json:"status"`
	URI              string      `json:"uri"`
	Metadata         interface{} `json:"metadata"`
	MetadataVerified bool        `json:"metadata_verified"`
}

func (c *NFT) list(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if c.Address == "" {
		w, err := currentWallet(ctx)
		if err != nil {
			return err
		}
		c.Address = w.Address
	}

	value, err := cli.Background(ctx, "Fetching NFTs...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Get(ctx, "/api/transaction/nfts/"+c.Address)
		if err != nil {
			return nil, err
		}
		var nfts []nftView
		if err := raw.Extract("nfts", &nfts); err != nil {
			return nil, err
		}
		return nfts, nil
	})
	if err != nil {
		return err
	}
	nfts := value.([]nftView)

	cli.Boldf("NFTs of %s:\n", c.Address)
	if len(nfts) == 0 {
		cli.Normf("  No NFT.\n")
		return nil
	}
	for _, n := range nfts {
		id := n.NFTokenID
		if id == "" {
			id = "(pending) " + n.TransactionHash
		}
		cli.Boldf("  %s", id)
		cli.Normf("  status=%s\n", n.Status)
		if n.MetadataVerified {
			printJSON(n.Metadata)
		} else {
			cli.Warnf("    metadata unavailable or failed verification\n")
		}
	}
	return nil
}
