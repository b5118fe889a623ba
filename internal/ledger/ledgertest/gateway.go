// internal/ledger/ledgertest/gateway.go

// Package ledgertest provides an in-memory ledger.Gateway for tests.
package ledgertest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/javajoker/rwa-backend/internal/ledger"
)

// Gateway records calls and answers from programmable state. The zero
// value is not usable; call New.
type Gateway struct {
	mu sync.Mutex

	Wallets  []*ledger.Wallet
	Accounts map[string]map[string]interface{}
	Lines    map[string][]ledger.TrustLine
	NFTs     map[string][]ledger.NFToken
	Txs      map[string]*ledger.TxStatus

	// SubmitResults answers Submit by blob; a missing blob succeeds.
	SubmitResults map[string]string
	// FailSignAndSubmit fails the n-th SignAndSubmit call (1-based).
	FailSignAndSubmit int
	// Err, when set, is returned by every network call.
	Err error

	Submitted     []string
	SignSubmitted []map[string]interface{}
	walletSeq     int
}

var _ ledger.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		Accounts:      make(map[string]map[string]interface{}),
		Lines:         make(map[string][]ledger.TrustLine),
		NFTs:          make(map[string][]ledger.NFToken),
		Txs:           make(map[string]*ledger.TxStatus),
		SubmitResults: make(map[string]string),
	}
}

// Own places nftID in address's NFT list.
func (g *Gateway) Own(address, nftID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.NFTs[address] = append(g.NFTs[address], ledger.NFToken{NFTokenID: nftID, Issuer: address})
}

// Disown removes nftID from address.
func (g *Gateway) Disown(address, nftID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.NFTs[address][:0]
	for _, n := range g.NFTs[address] {
		if n.NFTokenID != nftID {
			kept = append(kept, n)
		}
	}
	g.NFTs[address] = kept
}

// SetTx registers a transaction the server can look up.
func (g *Gateway) SetTx(tx *ledger.TxStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx.Found = true
	g.Txs[tx.Hash] = tx
}

func (g *Gateway) GenerateWallet(ctx context.Context) (*ledger.Wallet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.walletSeq++
	w := &ledger.Wallet{
		ClassicAddress: FakeAddress(g.walletSeq),
		Seed:           fmt.Sprintf("sTestSeed%04d", g.walletSeq),
	}
	g.Wallets = append(g.Wallets, w)
	g.Accounts[w.ClassicAddress] = map[string]interface{}{
		"Account": w.ClassicAddress,
		"Balance": "1000000000",
	}
	return w, nil
}

func (g *Gateway) AccountInfo(ctx context.Context, address string) (map[string]interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	info, ok := g.Accounts[address]
	if !ok {
		return nil, &ledger.GatewayError{Method: "account_info", Code: "actNotFound", Message: "Account not found."}
	}
	return info, nil
}

func (g *Gateway) AccountLines(ctx context.Context, address string) ([]ledger.TrustLine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	if _, ok := g.Accounts[address]; !ok {
		return nil, &ledger.GatewayError{Method: "account_lines", Code: "actNotFound", Message: "Account not found."}
	}
	lines := g.Lines[address]
	if lines == nil {
		lines = []ledger.TrustLine{}
	}
	return lines, nil
}

func (g *Gateway) AccountNFTs(ctx context.Context, address string) ([]ledger.NFToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]ledger.NFToken{}, g.NFTs[address]...), nil
}

func (g *Gateway) VerifyNFTOwnership(ctx context.Context, address, nftID string) (bool, error) {
	nfts, err := g.AccountNFTs(ctx, address)
	if err != nil {
		return false, err
	}
	for _, n := range nfts {
		if n.NFTokenID == nftID {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gateway) Submit(ctx context.Context, txBlob string) (*ledger.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Submitted = append(g.Submitted, txBlob)
	if code, ok := g.SubmitResults[txBlob]; ok && code != ledger.ResultSuccess {
		return nil, &ledger.SubmitError{EngineResult: code, Message: code}
	}
	return &ledger.SubmitResult{
		Status:       "success",
		Hash:         HashOf(txBlob),
		EngineResult: ledger.ResultSuccess,
	}, nil
}

func (g *Gateway) SignAndSubmit(ctx context.Context, txJSON map[string]interface{}, secret string) (*ledger.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.SignSubmitted = append(g.SignSubmitted, txJSON)
	if g.FailSignAndSubmit == len(g.SignSubmitted) {
		return nil, &ledger.SubmitError{EngineResult: "tecPATH_DRY", Message: "Path could not send partial amount."}
	}
	return &ledger.SubmitResult{
		Status:       "success",
		Hash:         strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
		EngineResult: ledger.ResultSuccess,
	}, nil
}

func (g *Gateway) Sign(ctx context.Context, txJSON map[string]interface{}, secret string) (*ledger.SignedTx, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	blob := fmt.Sprintf("%v|%s", txJSON["TransactionType"], secret)
	return &ledger.SignedTx{
		TxBlob: blob,
		TxJSON: map[string]interface{}{"hash": HashOf(blob)},
	}, nil
}

func (g *Gateway) Transaction(ctx context.Context, hash string) (*ledger.TxStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	tx, ok := g.Txs[hash]
	if !ok {
		return &ledger.TxStatus{Hash: hash}, nil
	}
	cp := *tx
	return &cp, nil
}

func (g *Gateway) ExplorerURL(kind, id string) string {
	return ledger.BuildExplorerURL("https://testnet.xrpl.org", kind, id)
}

// FakeAddress is the n-th address GenerateWallet hands out. It passes
// classic address format checks.
func FakeAddress(n int) string {
	const digits = "ABCDEFGHJK"
	suffix := []byte(fmt.Sprintf("%04d", n))
	for i, d := range suffix {
		suffix[i] = digits[d-'0']
	}
	return "rGatewayFakeAccountNumber" + string(suffix)
}

// HashOf is the hash Submit reports for blob.
func HashOf(blob string) string {
	sum := sha256.Sum256([]byte(blob))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
