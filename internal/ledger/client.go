// internal/ledger/client.go
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const accountNFTsPageLimit = 400

type Config struct {
	NodeURL     string
	FaucetURL   string
	ExplorerURL string
	Timeout     time.Duration
}

// Client talks to a rippled node over JSON-RPC.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ Gateway = (*Client)(nil)

func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// call posts one JSON-RPC request and decodes result into out. Errors
// reported by the node come back as *GatewayError.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []interface{}{params}})
	if err != nil {
		return errors.Wrapf(err, "encode %s request", method)
	}

	raw, err := c.post(ctx, c.config.NodeURL, body)
	if err != nil {
		return &GatewayError{Method: method, Message: err.Error()}
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &GatewayError{Method: method, Message: errors.Wrap(err, "decode response").Error()}
	}

	var status rpcStatus
	if err := json.Unmarshal(resp.Result, &status); err != nil {
		return &GatewayError{Method: method, Message: errors.Wrap(err, "decode result").Error()}
	}
	if status.Status == "error" || status.Error != "" {
		msg := status.ErrorMessage
		if msg == "" {
			msg = status.Error
		}
		return &GatewayError{Method: method, Code: status.Error, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return &GatewayError{Method: method, Message: errors.Wrap(err, "decode result").Error()}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "post %s", url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	logrus.WithFields(logrus.Fields{
		"url":         url,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Ledger request")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

type faucetResponse struct {
	Account struct {
		ClassicAddress string `json:"classicAddress"`
		Address        string `json:"address"`
		Secret         string `json:"secret"`
	} `json:"account"`
	Seed string `json:"seed"`
}

// GenerateWallet asks the test-network faucet for a funded wallet.
func (c *Client) GenerateWallet(ctx context.Context) (*Wallet, error) {
	raw, err := c.post(ctx, c.config.FaucetURL, []byte("{}"))
	if err != nil {
		return nil, &GatewayError{Method: "faucet", Message: err.Error()}
	}

	var resp faucetResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &GatewayError{Method: "faucet", Message: errors.Wrap(err, "decode faucet response").Error()}
	}

	wallet := &Wallet{ClassicAddress: resp.Account.ClassicAddress, Seed: resp.Seed}
	if wallet.ClassicAddress == "" {
		wallet.ClassicAddress = resp.Account.Address
	}
	if wallet.Seed == "" {
		wallet.Seed = resp.Account.Secret
	}
	if wallet.ClassicAddress == "" || wallet.Seed == "" {
		return nil, &GatewayError{Method: "faucet", Message: "faucet response missing address or seed"}
	}
	return wallet, nil
}

func (c *Client) AccountInfo(ctx context.Context, address string) (map[string]interface{}, error) {
	var out struct {
		AccountData map[string]interface{} `json:"account_data"`
	}
	err := c.call(ctx, "account_info", map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.AccountData, nil
}

func (c *Client) AccountLines(ctx context.Context, address string) ([]TrustLine, error) {
	var out struct {
		Lines []TrustLine `json:"lines"`
	}
	err := c.call(ctx, "account_lines", map[string]interface{}{
		"account":      address,
		"ledger_index": "validated",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Lines == nil {
		out.Lines = []TrustLine{}
	}
	return out.Lines, nil
}

// AccountNFTs returns every NFT held by address, following markers.
func (c *Client) AccountNFTs(ctx context.Context, address string) ([]NFToken, error) {
	nfts := make([]NFToken, 0)
	var marker interface{}

	for {
		params := map[string]interface{}{
			"account":      address,
			"ledger_index": "validated",
			"limit":        accountNFTsPageLimit,
		}
		if marker != nil {
			params["marker"] = marker
		}

		var page struct {
			AccountNFTs []NFToken   `json:"account_nfts"`
			Marker      interface{} `json:"marker"`
		}
		if err := c.call(ctx, "account_nfts", params, &page); err != nil {
			return nil, err
		}

		nfts = append(nfts, page.AccountNFTs...)
		if page.Marker == nil {
			return nfts, nil
		}
		marker = page.Marker
	}
}

func (c *Client) VerifyNFTOwnership(ctx context.Context, address, nftID string) (bool, error) {
	nfts, err := c.AccountNFTs(ctx, address)
	if err != nil {
		return false, err
	}
	for _, nft := range nfts {
		if nft.NFTokenID == nftID {
			return true, nil
		}
	}
	return false, nil
}

type submitResponse struct {
	EngineResult        string                 `json:"engine_result"`
	EngineResultMessage string                 `json:"engine_result_message"`
	TxJSON              map[string]interface{} `json:"tx_json"`
}

func (r *submitResponse) toResult() (*SubmitResult, error) {
	if r.EngineResult != ResultSuccess {
		msg := r.EngineResultMessage
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, &SubmitError{EngineResult: r.EngineResult, Message: msg}
	}
	hash, _ := r.TxJSON["hash"].(string)
	return &SubmitResult{
		Status:              "success",
		Hash:                hash,
		EngineResult:        r.EngineResult,
		EngineResultMessage: r.EngineResultMessage,
	}, nil
}

// Submit sends a signed blob. Anything other than tesSUCCESS is a *SubmitError.
func (c *Client) Submit(ctx context.Context, txBlob string) (*SubmitResult, error) {
	if txBlob == "" {
		return nil, &SubmitError{Message: "missing tx_blob"}
	}
	var out submitResponse
	if err := c.call(ctx, "submit", map[string]interface{}{"tx_blob": txBlob}, &out); err != nil {
		return nil, err
	}
	return out.toResult()
}

// SignAndSubmit has the node sign with secret and submit in one call. The
// node fills Fee and Sequence.
func (c *Client) SignAndSubmit(ctx context.Context, txJSON map[string]interface{}, secret string) (*SubmitResult, error) {
	var out submitResponse
	err := c.call(ctx, "submit", map[string]interface{}{
		"tx_json": txJSON,
		"secret":  secret,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toResult()
}

func (c *Client) Sign(ctx context.Context, txJSON map[string]interface{}, secret string) (*SignedTx, error) {
	var out SignedTx
	err := c.call(ctx, "sign", map[string]interface{}{
		"tx_json": txJSON,
		"secret":  secret,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.TxBlob == "" {
		return nil, &GatewayError{Method: "sign", Message: "node returned no tx_blob"}
	}
	return &out, nil
}

type txResponse struct {
	Hash            string          `json:"hash"`
	Validated       bool            `json:"validated"`
	TransactionType string          `json:"TransactionType"`
	Account         string          `json:"Account"`
	Destination     string          `json:"Destination"`
	Amount          json.RawMessage `json:"Amount"`
	SellOffer       string          `json:"NFTokenSellOffer"`
	NFTokenID       string          `json:"NFTokenID"`
	Flags           uint32          `json:"Flags"`
	Meta            struct {
		TransactionResult string `json:"TransactionResult"`
		NFTokenID         string `json:"nftoken_id"`
		OfferID           string `json:"offer_id"`
	} `json:"meta"`
}

// Transaction looks a hash up. An unknown hash is reported as not found
// rather than as an error, since it may still be in flight.
func (c *Client) Transaction(ctx context.Context, hash string) (*TxStatus, error) {
	var raw json.RawMessage
	err := c.call(ctx, "tx", map[string]interface{}{"transaction": hash, "binary": false}, &raw)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.Code == "txnNotFound" {
			return &TxStatus{Hash: hash}, nil
		}
		return nil, err
	}

	var tx txResponse
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, &GatewayError{Method: "tx", Message: errors.Wrap(err, "decode transaction").Error()}
	}
	// Offers name their token in the transaction body, mints only in meta.
	nftID := tx.Meta.NFTokenID
	if nftID == "" {
		nftID = tx.NFTokenID
	}

	return &TxStatus{
		Hash:            hash,
		Found:           true,
		Validated:       tx.Validated,
		Result:          tx.Meta.TransactionResult,
		TransactionType: tx.TransactionType,
		Account:         tx.Account,
		Destination:     tx.Destination,
		Amount:          tx.Amount,
		NFTokenID:       nftID,
		OfferID:         tx.Meta.OfferID,
		SellOffer:       tx.SellOffer,
		Flags:           tx.Flags,
		Raw:             raw,
	}, nil
}

// ExplorerURL links an account or transaction on the network explorer.
func (c *Client) ExplorerURL(kind, id string) string {
	return BuildExplorerURL(c.config.ExplorerURL, kind, id)
}

func BuildExplorerURL(base, kind, id string) string {
	base = strings.TrimRight(base, "/")
	switch kind {
	case "account":
		return fmt.Sprintf("%s/accounts/%s", base, id)
	case "transaction", "tx":
		return fmt.Sprintf("%s/transactions/%s", base, id)
	default:
		return base
	}
}
