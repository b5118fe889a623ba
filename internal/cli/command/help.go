// internal/cli/command/help.go
package command

import (
	"context"

	"github.com/javajoker/rwa-backend/internal/cli"
)

const (
	// CmdNmHelp is the command name.
	CmdNmHelp cli.CmdName = "help"
)

func init() {
	cli.Registrar[CmdNmHelp] = NewHelp
}

// Help shows general usage or the help of one command.
type Help struct {
	Command cli.Command
}

// NewHelp constructs and initializes the command.
func NewHelp() cli.Command {
	return &Help{}
}

// Name returns the command name.
func (c *Help) Name() cli.CmdName {
	return CmdNmHelp
}

// Help prints out the help message for the command.
func (c *Help) Help(ctx context.Context) {
	cli.Normf("\nUsage: ")
	cli.Boldf("rwa <command> [<args> ...] [--api=<url>] [--ledger=<url>] [--debug]\n")
	cli.Normf("\n")
	cli.Normf("  Terminal client for tokenized real-world assets on the XRP Ledger.\n")
	cli.Normf("\n")
	cli.Normf("Commands:\n")

	cli.Boldf("  help <command>\n")
	cli.Normf("    Show help for a command.\n")
	cli.Valuf("    rwa help market\n")
	cli.Normf("\n")

	cli.Boldf("  wallet create|list|select|info|import|remove\n")
	cli.Normf("    Manage the local wallets used for signing.\n")
	cli.Valuf("    rwa wallet create\n")
	cli.Normf("\n")

	cli.Boldf("  token create|list\n")
	cli.Normf("    Issue tokens from the current wallet.\n")
	cli.Valuf("    rwa token create GLD 1000\n")
	cli.Normf("\n")

	cli.Boldf("  nft mint|list\n")
	cli.Normf("    Mint NFTs with stored metadata.\n")
	cli.Valuf("    rwa nft mint name=\"Gold Deed\"\n")
	cli.Normf("\n")

	cli.Boldf("  market listings|list|buy|cancel|offers\n")
	cli.Normf("    Sell and buy NFTs.\n")
	cli.Valuf("    rwa market listings\n")
	cli.Normf("\n")

	cli.Normf("Config is read from ~/.rwa/config.toml and wallets are kept in ~/.rwa/state.json.\n")
	cli.Normf("\n")
}

// Parse parses the arguments passed to the command.
func (c *Help) Parse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if r, ok := cli.Registrar[cli.CmdName(args[0])]; ok {
		c.Command = r()
	}
	return nil
}

// Execute the command or return a human-friendly error.
func (c *Help) Execute(ctx context.Context) error {
	if c.Command == nil {
		c.Help(ctx)
	} else {
		c.Command.Help(ctx)
	}
	return nil
}
