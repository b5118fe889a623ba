// internal/cli/command/token.go
package command

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/javajoker/rwa-backend/internal/cli"
)

const (
	// CmdNmToken is the command name.
	CmdNmToken cli.CmdName = "token"
)

func init() {
	cli.Registrar[CmdNmToken] = NewToken
}

// Token issues and lists fungible tokens.
type Token struct {
	Action    string
	TokenName string
	Supply    int64
	Holder    string
}

// NewToken constructs and initializes the command.
func NewToken() cli.Command {
	return &Token{}
}

// Name returns the command name.
func (c *Token) Name() cli.CmdName {
	return CmdNmToken
}

// Help prints out the help message for the command.
func (c *Token) Help(ctx context.Context) {
	cli.Normf("\nUsage: ")
	cli.Boldf("rwa token <action> [<args>]\n")
	cli.Normf("\n")
	cli.Normf("  Issues a token from the current wallet and lists issued tokens.\n")
	cli.Normf("\n")
	cli.Normf("Actions:\n")
	cli.Boldf("  create <name> <supply> [--holder=<address>]\n")
	cli.Normf("    Issues supply units to a holder. The holder must be a local wallet;\n")
	cli.Normf("    without one the backend generates and funds a fresh holder.\n")
	cli.Boldf("  list\n")
	cli.Normf("    Lists tokens issued through the backend.\n")
	cli.Normf("\n")
	cli.Normf("Examples:\n")
	cli.Valuf("  rwa token create GLD 1000\n")
	cli.Valuf("  rwa token create \"Gold Reserve\" 500 --holder=rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh\n")
	cli.Normf("\n")
}

// Parse parses the arguments passed to the command.
func (c *Token) Parse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("Action required (create, list).")
	}
	c.Action, args = args[0], args[1:]

	switch c.Action {
	case "list":
	case "create":
		if len(args) != 2 {
			return errors.New("Token name and supply required.")
		}
		supply, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || supply <= 0 {
			return errors.Errorf("Invalid supply: %s.", args[1])
		}
		c.TokenName, c.Supply = args[0], supply
		c.Holder = cli.GetEnv(ctx).Flags["holder"]
	default:
		return errors.Errorf("Unknown token action: %s.", c.Action)
	}
	return nil
}

// Execute the command or return a human-friendly error.
func (c *Token) Execute(ctx context.Context) error {
	switch c.Action {
	case "create":
		return c.create(ctx)
	case "list":
		return c.list(ctx)
	}
	return nil
}

type walletCredentials struct {
	ClassicAddress string `json:"classic_address"`
	Secret         string `json:"secret"`
}

type tokenIssuance struct {
	CurrencyCode  string `json:"currency_code"`
	HolderAddress string `json:"holder_address"`
	PaymentResult struct {
		Hash         string `json:"hash"`
		EngineResult string `json:"engine_result"`
	} `json:"payment_result"`
	ExplorerURL string `json:"explorer_url"`
}

func (c *Token) create(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	issuer, err := currentWallet(ctx)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"wallet": walletCredentials{ClassicAddress: issuer.Address, Secret: issuer.Seed},
		"name":   c.TokenName,
		"supply": c.Supply,
	}
	if c.Holder != "" {
		holder, ok := env.State.Find(c.Holder)
		if !ok {
			return errors.Errorf("Holder %s is not a local wallet (try `rwa wallet import`).", c.Holder)
		}
		body["holder"] = walletCredentials{ClassicAddress: holder.Address, Secret: holder.Seed}
	}

	value, err := cli.Background(ctx, "Issuing token...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/tokens/create", body, issuer.AccessToken)
		if err != nil {
			return nil, err
		}
		var issuance tokenIssuance
		if err := cli.Envelope(raw, &issuance); err != nil {
			return nil, err
		}
		return &issuance, nil
	})
	if err != nil {
		return err
	}
	issuance := value.(*tokenIssuance)

	cli.Succf("Token issued\n")
	cli.Normf("  Currency: ")
	cli.Valuf("%s\n", issuance.CurrencyCode)
	cli.Normf("  Holder:   %s\n", issuance.HolderAddress)
	cli.Normf("  Payment:  %s (%s)\n", issuance.PaymentResult.Hash, issuance.PaymentResult.EngineResult)
	cli.Normf("  Explorer: %s\n", issuance.ExplorerURL)
	return nil
}

type tokenView struct {
	CurrencyCode  string `json:"currency_code"`
	Name          string `json:"name"`
	TotalSupply   int64  `json:"total_supply"`
	IssuerAddress string `json:"issuer_address"`
	HolderAddress string `json:"holder_address"`
	CreatedAt     string `json:"created_at"`
}

func (c *Token) list(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	_, raw, err := env.API.Get(ctx, "/api/tokens/list")
	if err != nil {
		return err
	}
	var response struct {
		Tokens []tokenView `json:"tokens"`
	}
	if err := cli.Envelope(raw, &response); err != nil {
		return err
	}

	cli.Boldf("Tokens:\n")
	if len(response.Tokens) == 0 {
		cli.Normf("  No token.\n")
		return nil
	}
	for _, t := range response.Tokens {
		cli.Normf("  %s ", t.Name)
		cli.Valuf("%d", t.TotalSupply)
		cli.Normf("  issuer=%s holder=%s  %s\n", t.IssuerAddress, t.HolderAddress, t.CreatedAt)
	}
	return nil
}
