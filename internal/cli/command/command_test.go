// internal/cli/command/command_test.go
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/rwa-backend/internal/cli"
	"github.com/javajoker/rwa-backend/internal/config"
	"github.com/javajoker/rwa-backend/internal/database/dbtest"
	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/ledger/ledgertest"
	"github.com/javajoker/rwa-backend/internal/router"
	"github.com/javajoker/rwa-backend/internal/store/memstore"
)

const testNFT = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000001"

type CommandTestSuite struct {
	suite.Suite
	server  *httptest.Server
	gateway *ledgertest.Gateway
	env     *cli.Env
	out     *bytes.Buffer
}

func (s *CommandTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(i18n.Initialize())
	cli.SpinnerInterval = time.Millisecond
}

func (s *CommandTestSuite) SetupTest() {
	s.gateway = ledgertest.New()
	cfg := &config.Config{
		Environment: "test",
		Wallet:      config.WalletConfig{SealingKey: "cli-test-sealing-key"},
		JWT:         config.JWTConfig{SecretKey: "cli-test-secret", AccessTokenTTL: 1},
		Archive:     config.ArchiveConfig{LocalDir: s.T().TempDir()},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	s.server = httptest.NewServer(router.Initialize(dbtest.Open(s.T()), memstore.New(), s.gateway, cfg))

	state, err := cli.LoadState(filepath.Join(s.T().TempDir(), "state.json"))
	s.Require().NoError(err)

	clientConfig := cli.DefaultConfig()
	clientConfig.APIURL = s.server.URL
	clientConfig.PollAttempts = 2
	clientConfig.PollInterval = 0

	s.env = &cli.Env{
		Config: &clientConfig,
		State:  state,
		API:    cli.NewClient(s.server.URL),
		Ledger: s.gateway,
	}
	s.out = &bytes.Buffer{}
	cli.Output = s.out
}

func (s *CommandTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *CommandTestSuite) run(argv ...string) error {
	args, flags := cli.ParseArgs(argv)
	s.env.Flags = flags
	ctx := cli.WithEnv(context.Background(), s.env)

	command := cli.Registrar[cli.CmdName(args[0])]()
	if err := command.Parse(ctx, args[1:]); err != nil {
		return err
	}
	return command.Execute(ctx)
}

func (s *CommandTestSuite) TestWalletCreateAndList() {
	s.Require().NoError(s.run("wallet", "create"))
	s.Require().NoError(s.run("wallet", "create"))

	s.Len(s.env.State.Wallets, 2)
	s.Equal(ledgertest.FakeAddress(1), s.env.State.Current)
	s.NotEmpty(s.env.State.Wallets[0].AccessToken)

	reloaded, err := cli.LoadState(s.env.State.Path())
	s.Require().NoError(err)
	s.Len(reloaded.Wallets, 2)

	s.out.Reset()
	s.Require().NoError(s.run("wallet", "list"))
	s.Contains(s.out.String(), "* "+ledgertest.FakeAddress(1))
	s.Contains(s.out.String(), "1000 XRP")

	s.Require().NoError(s.run("wallet", "select", ledgertest.FakeAddress(2)))
	s.Equal(ledgertest.FakeAddress(2), s.env.State.Current)
	s.Error(s.run("wallet", "select", "rNotAWalletWeKnowAbout"))

	s.out.Reset()
	s.Require().NoError(s.run("wallet", "info"))
	s.Contains(s.out.String(), "Balance: ")
}

func (s *CommandTestSuite) TestWalletImportChecksAccount() {
	s.Error(s.run("wallet", "import", "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", "sSeed"))
	s.Empty(s.env.State.Wallets)

	s.gateway.Accounts["rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"] = map[string]interface{}{"Balance": "25000000"}
	s.Require().NoError(s.run("wallet", "import", "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", "sSeed"))
	s.Equal("rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", s.env.State.Current)

	// Not created through the backend, so info falls back to the node.
	s.out.Reset()
	s.Require().NoError(s.run("wallet", "info"))
	s.Contains(s.out.String(), "25 XRP")
}

func (s *CommandTestSuite) TestTokenCreate() {
	s.Require().NoError(s.run("wallet", "create"))

	s.out.Reset()
	s.Require().NoError(s.run("token", "create", "GLD", "1000"))
	s.Contains(s.out.String(), "Token issued")
	s.Contains(s.out.String(), "GLD")

	s.out.Reset()
	s.Require().NoError(s.run("token", "list"))
	s.Contains(s.out.String(), "issuer="+ledgertest.FakeAddress(1))

	s.Error(s.run("token", "create", "GLD", "0"))
	s.Error(s.run("token", "create", "GLD", "5", "--holder=rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"))
}

func (s *CommandTestSuite) TestNFTMintAndList() {
	s.Require().NoError(s.run("wallet", "create"))

	s.out.Reset()
	s.Require().NoError(s.run("nft", "mint", "name=Gold Deed", "asset_type=REAL_ESTATE", "--taxon=7"))
	s.Contains(s.out.String(), "NFT minted")

	s.Require().Len(s.gateway.Submitted, 1)
	s.Equal("NFTokenMint|sTestSeed0001", s.gateway.Submitted[0])

	s.out.Reset()
	s.Require().NoError(s.run("nft", "list"))
	s.Contains(s.out.String(), "(pending)")
	s.Contains(s.out.String(), "Gold Deed")

	s.Error(s.run("nft", "mint", "not-a-pair"))
	s.Error(s.run("nft", "mint", "--taxon=abc"))
}

func (s *CommandTestSuite) TestOfferSaleBetweenLocalWallets() {
	s.Require().NoError(s.run("wallet", "create"))
	s.Require().NoError(s.run("wallet", "create"))
	seller, buyer := ledgertest.FakeAddress(1), ledgertest.FakeAddress(2)
	s.gateway.Own(seller, testNFT)

	offerID := ledgertest.HashOf("OFFER")
	s.gateway.SetTx(&ledger.TxStatus{
		Hash: ledgertest.HashOf("NFTokenCreateOffer|sTestSeed0001"), Validated: true, Result: ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenCreateOffer, Account: seller,
		Amount: json.RawMessage(`"5000000"`), OfferID: offerID,
		NFTokenID: testNFT, Flags: ledger.TfSellNFToken,
	})

	s.out.Reset()
	s.Require().NoError(s.run("market", "list", testNFT, "5", "--offer"))
	s.Contains(s.out.String(), "Sell offer created")

	s.out.Reset()
	s.Require().NoError(s.run("market", "offers", testNFT))
	s.Contains(s.out.String(), offerID)

	s.Require().NoError(s.run("wallet", "select", buyer))
	s.gateway.SetTx(&ledger.TxStatus{
		Hash: ledgertest.HashOf("NFTokenAcceptOffer|sTestSeed0002"), Validated: true, Result: ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenAcceptOffer, Account: buyer, SellOffer: offerID,
	})

	s.out.Reset()
	s.Require().NoError(s.run("market", "buy", "--offer="+offerID))
	s.Contains(s.out.String(), "Offer accepted")
	s.Contains(s.out.String(), "status=sold")
}

func (s *CommandTestSuite) TestOfferPendingTimesOut() {
	s.Require().NoError(s.run("wallet", "create"))
	s.gateway.Own(ledgertest.FakeAddress(1), testNFT)

	err := s.run("market", "list", testNFT, "5", "--offer")
	s.ErrorIs(err, cli.ErrStillPending)
}

func (s *CommandTestSuite) TestListingLifecycle() {
	s.Require().NoError(s.run("wallet", "create"))

	s.Error(s.run("market", "list", testNFT, "5"))
	s.Error(s.run("market", "list", testNFT, "zero", "--metadata-hash=abc"))

	s.out.Reset()
	s.Require().NoError(s.run("market", "list", testNFT, "5", "--metadata-hash=0123456789abcdef"))
	s.Contains(s.out.String(), "Listed")

	err := s.run("market", "list", testNFT, "6", "--metadata-hash=0123456789abcdef")
	var apiErr *cli.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(409, apiErr.Status)

	s.out.Reset()
	s.Require().NoError(s.run("market", "listings"))
	s.Contains(s.out.String(), "5 XRP")
	s.Contains(s.out.String(), "Metadata not found")
}

func (s *CommandTestSuite) TestHelp() {
	s.Require().NoError(s.run("help"))
	s.Contains(s.out.String(), "Commands:")

	s.out.Reset()
	s.Require().NoError(s.run("help", "market"))
	s.Contains(s.out.String(), "rwa market <action>")
}

func TestCommandTestSuite(t *testing.T) {
	suite.Run(t, new(CommandTestSuite))
}
