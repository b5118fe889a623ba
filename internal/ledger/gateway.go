// internal/ledger/gateway.go
package ledger

import "context"

// Gateway is the only path from the services to the ledger network.
type Gateway interface {
	GenerateWallet(ctx context.Context) (*Wallet, error)
	AccountInfo(ctx context.Context, address string) (map[string]interface{}, error)
	AccountLines(ctx context.Context, address string) ([]TrustLine, error)
	AccountNFTs(ctx context.Context, address string) ([]NFToken, error)
	VerifyNFTOwnership(ctx context.Context, address, nftID string) (bool, error)
	Submit(ctx context.Context, txBlob string) (*SubmitResult, error)
	SignAndSubmit(ctx context.Context, txJSON map[string]interface{}, secret string) (*SubmitResult, error)
	Sign(ctx context.Context, txJSON map[string]interface{}, secret string) (*SignedTx, error)
	Transaction(ctx context.Context, hash string) (*TxStatus, error)
	ExplorerURL(kind, id string) string
}
