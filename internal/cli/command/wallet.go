// internal/cli/command/wallet.go
package command

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/rwa-backend/internal/cli"
	"github.com/javajoker/rwa-backend/internal/ledger"
)

const (
	// CmdNmWallet is the command name.
	CmdNmWallet cli.CmdName = "wallet"

	balanceRefreshLimit = 4
)

func init() {
	cli.Registrar[CmdNmWallet] = NewWallet
}

// Wallet manages the wallets held by the terminal client.
type Wallet struct {
	Action  string
	Address string
	Seed    string
}

// NewWallet constructs and initializes the command.
func NewWallet() cli.Command {
	return &Wallet{}
}

// Name returns the command name.
func (c *Wallet) Name() cli.CmdName {
	return CmdNmWallet
}

// Help prints out the help message for the command.
func (c *Wallet) Help(ctx context.Context) {
	cli.Normf("\nUsage: ")
	cli.Boldf("rwa wallet <action> [<args>]\n")
	cli.Normf("\n")
	cli.Normf("  Creates, imports and selects the wallets used to sign transactions.\n")
	cli.Normf("\n")
	cli.Normf("Actions:\n")
	cli.Boldf("  create\n")
	cli.Normf("    Creates and funds a testnet wallet through the backend.\n")
	cli.Boldf("  list\n")
	cli.Normf("    Lists local wallets with their current XRP balance.\n")
	cli.Boldf("  select <address>\n")
	cli.Normf("    Makes a wallet the current one.\n")
	cli.Boldf("  info [<address>]\n")
	cli.Normf("    Shows account details for a wallet (current one by default).\n")
	cli.Boldf("  import <address> <seed>\n")
	cli.Normf("    Adds an existing wallet after checking the seed signs for it.\n")
	cli.Boldf("  remove <address>\n")
	cli.Normf("    Forgets a local wallet.\n")
	cli.Normf("\n")
	cli.Normf("Examples:\n")
	cli.Valuf("  rwa wallet create\n")
	cli.Valuf("  rwa wallet select rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY\n")
	cli.Normf("\n")
}

// Parse parses the arguments passed to the command.
func (c *Wallet) Parse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return pkgerrors.New("Action required (create, list, select, info, import, remove).")
	}
	c.Action, args = args[0], args[1:]

	switch c.Action {
	case "create", "list":
	case "select", "remove":
		if len(args) != 1 {
			return pkgerrors.New("Wallet address required.")
		}
		c.Address = args[0]
	case "info":
		if len(args) > 0 {
			c.Address = args[0]
		}
	case "import":
		if len(args) != 2 {
			return pkgerrors.New("Wallet address and seed required.")
		}
		c.Address, c.Seed = args[0], args[1]
	default:
		return pkgerrors.Errorf("Unknown wallet action: %s.", c.Action)
	}
	return nil
}

// Execute the command or return a human-friendly error.
func (c *Wallet) Execute(ctx context.Context) error {
	switch c.Action {
	case "create":
		return c.create(ctx)
	case "list":
		return c.list(ctx)
	case "select":
		return c.selectWallet(ctx)
	case "info":
		return c.info(ctx)
	case "import":
		return c.importWallet(ctx)
	case "remove":
		return c.remove(ctx)
	}
	return nil
}

type createdWallet struct {
	Address     string `json:"address"`
	Seed        string `json:"seed"`
	ExplorerURL string `json:"explorer_url"`
	AccessToken string `json:"access_token"`
}

func (c *Wallet) create(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	value, err := cli.Background(ctx, "Creating and funding wallet...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Post(ctx, "/api/tokens/wallet/create", nil, "")
		if err != nil {
			return nil, err
		}
		var wallet createdWallet
		if err := cli.Envelope(raw, &wallet); err != nil {
			return nil, err
		}
		return &wallet, nil
	})
	if err != nil {
		return err
	}
	wallet := value.(*createdWallet)

	env.State.Add(cli.LocalWallet{
		Address:     wallet.Address,
		Seed:        wallet.Seed,
		AccessToken: wallet.AccessToken,
		CreatedAt:   time.Now().UTC(),
	})
	if err := env.State.Save(); err != nil {
		return err
	}

	cli.Succf("Wallet created\n")
	cli.Normf("  Address: ")
	cli.Valuf("%s\n", wallet.Address)
	cli.Normf("  Seed:    ")
	cli.Valuf("%s\n", wallet.Seed)
	cli.Normf("  Explorer: %s\n", wallet.ExplorerURL)
	cli.Warnf("Keep the seed safe; it is stored unencrypted in the local state file.\n")
	return nil
}

type walletBalance struct {
	wallet cli.LocalWallet
	xrp    string
	err    error
}

// list refreshes every balance concurrently.
func (c *Wallet) list(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	wallets := env.State.Wallets
	if len(wallets) == 0 {
		cli.Normf("No wallet (try `rwa wallet create`).\n")
		return nil
	}

	value, err := cli.Background(ctx, "Refreshing balances...", func(ctx context.Context) (interface{}, error) {
		balances := make([]walletBalance, len(wallets))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(balanceRefreshLimit)
		for i := range wallets {
			i := i
			balances[i].wallet = wallets[i]
			g.Go(func() error {
				xrp, err := fetchBalance(gctx, env.Ledger, wallets[i].Address)
				balances[i].xrp, balances[i].err = xrp, err
				return gctx.Err()
			})
		}
		return balances, g.Wait()
	})
	if err != nil {
		return err
	}

	cli.Boldf("Wallets:\n")
	for _, b := range value.([]walletBalance) {
		marker := " "
		if b.wallet.Address == env.State.Current {
			marker = "*"
		}
		cli.Normf("%s %s  ", marker, b.wallet.Address)
		if b.err != nil {
			logrus.WithError(b.err).WithField("address", b.wallet.Address).Debug("Balance refresh failed")
			cli.Errof("balance unavailable\n")
			continue
		}
		cli.Valuf("%s XRP\n", b.xrp)
	}
	return nil
}

func fetchBalance(ctx context.Context, gateway ledger.Gateway, address string) (string, error) {
	info, err := gateway.AccountInfo(ctx, address)
	if err != nil {
		return "", err
	}
	balance, _ := info["Balance"].(string)
	drops, err := strconv.ParseInt(balance, 10, 64)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "parse balance %q", balance)
	}
	return ledger.DropsToXRP(drops).String(), nil
}

func (c *Wallet) selectWallet(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if err := env.State.Select(c.Address); err != nil {
		return err
	}
	if err := env.State.Save(); err != nil {
		return err
	}
	cli.Succf("Current wallet: %s\n", c.Address)
	return nil
}

type walletInfo struct {
	Wallet struct {
		Address     string `json:"address"`
		CreatedAt   string `json:"created_at"`
		TokensCount int    `json:"tokens_count"`
	} `json:"wallet"`
	AccountInfo  map[string]interface{} `json:"account_info"`
	AccountLines []ledger.TrustLine     `json:"account_lines"`
	ExplorerURL  string                 `json:"explorer_url"`
}

func (c *Wallet) info(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if c.Address == "" {
		w, err := currentWallet(ctx)
		if err != nil {
			return err
		}
		c.Address = w.Address
	}

	value, err := cli.Background(ctx, "Fetching wallet info...", func(ctx context.Context) (interface{}, error) {
		_, raw, err := env.API.Get(ctx, "/api/tokens/wallet/info/"+c.Address)
		var apiErr *cli.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			// Wallets not created through the backend are read from the node.
			accountInfo, err := env.Ledger.AccountInfo(ctx, c.Address)
			if err != nil {
				return nil, err
			}
			info := &walletInfo{AccountInfo: accountInfo, ExplorerURL: env.Ledger.ExplorerURL("accounts", c.Address)}
			info.Wallet.Address = c.Address
			return info, nil
		}
		if err != nil {
			return nil, err
		}
		var info walletInfo
		if err := cli.Envelope(raw, &info); err != nil {
			return nil, err
		}
		return &info, nil
	})
	if err != nil {
		return err
	}
	info := value.(*walletInfo)

	cli.Boldf("Wallet %s\n", info.Wallet.Address)
	if info.Wallet.CreatedAt != "" {
		cli.Normf("  Created: %s  Tokens issued: %d\n", info.Wallet.CreatedAt, info.Wallet.TokensCount)
	}
	if balance, ok := info.AccountInfo["Balance"].(string); ok {
		if drops, err := strconv.ParseInt(balance, 10, 64); err == nil {
			cli.Normf("  Balance: ")
			cli.Valuf("%s XRP\n", ledger.DropsToXRP(drops).String())
		}
	}
	for _, line := range info.AccountLines {
		cli.Normf("  Trust line: %s %s (limit %s) with %s\n", line.Balance, line.Currency, line.Limit, line.Account)
	}
	cli.Normf("  Explorer: %s\n", info.ExplorerURL)
	return nil
}

func (c *Wallet) importWallet(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	_, err := cli.Background(ctx, "Checking wallet...", func(ctx context.Context) (interface{}, error) {
		if _, err := env.Ledger.AccountInfo(ctx, c.Address); err != nil {
			return nil, err
		}
		// The node refuses to sign for an account the seed does not control.
		template := &ledger.Template{TransactionType: ledger.TxAccountSet, Template: ledger.AccountSetTemplate(c.Address)}
		if _, err := sign(ctx, template, c.Seed); err != nil {
			return nil, pkgerrors.Wrap(err, "seed does not sign for this address")
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	env.State.Add(cli.LocalWallet{Address: c.Address, Seed: c.Seed, CreatedAt: time.Now().UTC()})
	if err := env.State.Save(); err != nil {
		return err
	}
	cli.Succf("Wallet imported: %s\n", c.Address)
	return nil
}

func (c *Wallet) remove(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if err := env.State.Remove(c.Address); err != nil {
		return err
	}
	if err := env.State.Save(); err != nil {
		return err
	}
	cli.Succf("Wallet removed: %s\n", c.Address)
	return nil
}
