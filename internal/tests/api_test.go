// internal/tests/api_test.go
package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/rwa-backend/internal/config"
	"github.com/javajoker/rwa-backend/internal/database/dbtest"
	"github.com/javajoker/rwa-backend/internal/i18n"
	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/ledger/ledgertest"
	"github.com/javajoker/rwa-backend/internal/router"
	"github.com/javajoker/rwa-backend/internal/store/memstore"
	"github.com/javajoker/rwa-backend/internal/utils"
)

const (
	sellerAddress = "rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY"
	buyerAddress  = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	otherAddress  = "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn"
	nftID         = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000001"
)

type APITestSuite struct {
	suite.Suite
	router  *gin.Engine
	docs    *memstore.Store
	gateway *ledgertest.Gateway
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize())
}

func (suite *APITestSuite) SetupTest() {
	cfg := &config.Config{
		Environment: "test",
		Wallet:      config.WalletConfig{SealingKey: "api-test-sealing-key"},
		JWT:         config.JWTConfig{SecretKey: "api-test-secret", AccessTokenTTL: 1},
		Archive:     config.ArchiveConfig{LocalDir: suite.T().TempDir()},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	suite.docs = memstore.New()
	suite.gateway = ledgertest.New()
	suite.router = router.Initialize(dbtest.Open(suite.T()), suite.docs, suite.gateway, cfg)
	suite.gateway.Own(sellerAddress, nftID)
}

func (suite *APITestSuite) do(method, path string, body interface{}, token string) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w.Code, response
}

func (suite *APITestSuite) metadata() map[string]interface{} {
	return map[string]interface{}{
		"name":       "Gold Deed",
		"asset_type": "REAL_ESTATE",
		"value":      12.5,
		"units":      3,
		"tags":       []string{"a", "é"},
		"nested":     map[string]interface{}{"z": nil, "y": true},
	}
}

// mint goes through the template and submit endpoints and returns the
// metadata hash.
func (suite *APITestSuite) mint() string {
	code, template := suite.do("POST", "/api/transaction/nft/mint/template", gin.H{
		"account":  sellerAddress,
		"metadata": suite.metadata(),
	}, "")
	suite.Require().Equal(http.StatusOK, code, template)
	hash := template["metadata_hash"].(string)
	suite.Len(hash, 16)

	code, submitted := suite.do("POST", "/api/transaction/submit", gin.H{
		"signed_transaction": gin.H{"tx_blob": "MINTBLOB"},
		"account":            sellerAddress,
		"uri":                template["uri"],
		"metadata":           suite.metadata(),
	}, "")
	suite.Require().Equal(http.StatusOK, code, submitted)
	stored := submitted["nft"].(map[string]interface{})["metadata"].(map[string]interface{})
	suite.Equal(hash, stored["metadata_hash"])
	return hash
}

func (suite *APITestSuite) list(hash string, price interface{}) (int, map[string]interface{}) {
	return suite.do("POST", "/api/marketplace/list", gin.H{
		"nft_id":         nftID,
		"seller_address": sellerAddress,
		"price_xrp":      price,
		"metadata_hash":  hash,
	}, "")
}

func (suite *APITestSuite) TestHealth() {
	code, body := suite.do("GET", "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, code)
	assert.Equal(suite.T(), "healthy", body["status"])
}

func (suite *APITestSuite) TestWalletLifecycle() {
	code, body := suite.do("POST", "/api/tokens/wallet/create", nil, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.True(suite.T(), body["success"].(bool))

	wallet := body["response"].(map[string]interface{})
	address := wallet["address"].(string)
	assert.NotEmpty(suite.T(), wallet["seed"])
	assert.NotEmpty(suite.T(), wallet["access_token"])

	code, body = suite.do("GET", "/api/tokens/wallet/info/"+address, nil, "")
	suite.Require().Equal(http.StatusOK, code, body)
	info := body["response"].(map[string]interface{})
	assert.Equal(suite.T(), address, info["wallet"].(map[string]interface{})["address"])

	code, body = suite.do("GET", "/api/tokens/wallet/info/"+buyerAddress, nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)
	assert.Equal(suite.T(), false, body["success"])
	assert.Equal(suite.T(), "Wallet not found", body["error"])
}

func (suite *APITestSuite) TestTokenIssuance() {
	_, body := suite.do("POST", "/api/tokens/wallet/create", nil, "")
	wallet := body["response"].(map[string]interface{})
	address := wallet["address"].(string)
	token := wallet["access_token"].(string)

	request := gin.H{
		"wallet":   gin.H{"classic_address": address, "secret": wallet["seed"]},
		"name":     "GLD",
		"supply":   1000,
		"metadata": gin.H{"asset": "gold"},
	}

	code, body := suite.do("POST", "/api/tokens/create", request, "")
	suite.Require().Equal(http.StatusOK, code, body)
	issuance := body["response"].(map[string]interface{})
	assert.Equal(suite.T(), "GLD", issuance["currency_code"])
	assert.Equal(suite.T(), ledger.ResultSuccess, issuance["payment_result"].(map[string]interface{})["engine_result"])

	code, body = suite.do("GET", "/api/tokens/list", nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.Len(suite.T(), body["response"].(map[string]interface{})["tokens"], 1)

	code, body = suite.do("GET", "/api/tokens/transactions", nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.Len(suite.T(), body["response"].(map[string]interface{})["transactions"], 3)

	// A session for a different wallet may not act for this one.
	otherToken, err := utils.GenerateWalletToken(otherAddress, 1)
	suite.Require().NoError(err)
	code, _ = suite.do("POST", "/api/tokens/create", request, otherToken)
	assert.Equal(suite.T(), http.StatusForbidden, code)

	code, _ = suite.do("POST", "/api/tokens/create", request, token)
	assert.Equal(suite.T(), http.StatusOK, code)
}

func (suite *APITestSuite) TestCreateTokenValidation() {
	code, body := suite.do("POST", "/api/tokens/create", gin.H{
		"wallet": gin.H{"classic_address": "not-an-address", "secret": "s"},
		"name":   "GLD",
		"supply": 10,
	}, "")
	assert.Equal(suite.T(), http.StatusBadRequest, code)
	assert.Equal(suite.T(), false, body["success"])
}

func (suite *APITestSuite) TestMetadataEndpoints() {
	hash := suite.mint()

	code, body := suite.do("GET", "/api/transaction/metadata/hash/"+hash, nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.Equal(suite.T(), true, body["verified"])
	id := body["metadata_id"].(string)

	code, body = suite.do("GET", "/api/transaction/metadata/archive/"+hash, nil, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.Contains(suite.T(), body["url"], hash+".json")

	suite.docs.ReplaceMetadataPayload(hash, map[string]interface{}{"name": "Forged"})

	code, _ = suite.do("GET", "/api/transaction/metadata/hash/"+hash, nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)

	code, body = suite.do("GET", "/api/transaction/metadata/id/"+id, nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.Equal(suite.T(), false, body["verified"])

	code, _ = suite.do("GET", "/api/transaction/metadata/id/missing", nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)

	code, body = suite.do("GET", "/api/transaction/nfts/"+sellerAddress, nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.EqualValues(suite.T(), 1, body["count"])
}

func (suite *APITestSuite) TestListingAndPurchase() {
	hash := suite.mint()

	code, body := suite.list(hash, 12.5)
	suite.Require().Equal(http.StatusOK, code, body)
	listing := body["listing"].(map[string]interface{})
	listingID := listing["listing_id"].(string)
	assert.EqualValues(suite.T(), 12500000, listing["price_drops"])
	assert.Equal(suite.T(), "12.5", listing["price_xrp"])
	assert.Equal(suite.T(), "NFT listed successfully", body["message"])

	code, _ = suite.list(hash, 13)
	assert.Equal(suite.T(), http.StatusConflict, code)

	code, body = suite.do("GET", "/api/marketplace/listings", nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.EqualValues(suite.T(), 1, body["count"])
	first := body["listings"].([]interface{})[0].(map[string]interface{})
	assert.Equal(suite.T(), "Gold Deed", first["metadata"].(map[string]interface{})["name"])

	code, body = suite.do("POST", "/api/marketplace/buy/template/"+listingID, gin.H{"buyer_address": buyerAddress}, "")
	suite.Require().Equal(http.StatusOK, code, body)
	payment := body["payment_template"].(map[string]interface{})["template"].(map[string]interface{})
	assert.Equal(suite.T(), "12500000", payment["Amount"])

	code, body = suite.do("POST", "/api/marketplace/buy/submit/"+listingID, gin.H{
		"buyer_address":    buyerAddress,
		"signed_payment":   "PAYBLOB",
		"signed_nft_offer": gin.H{"tx_blob": "XFERBLOB"},
	}, "")
	suite.Require().Equal(http.StatusAccepted, code, body)
	assert.Equal(suite.T(), true, body["pending"])

	payHash, xferHash := ledgertest.HashOf("PAYBLOB"), ledgertest.HashOf("XFERBLOB")
	suite.gateway.SetTx(&ledger.TxStatus{
		Hash: payHash, Validated: true, Result: ledger.ResultSuccess,
		TransactionType: ledger.TxPayment, Account: buyerAddress, Destination: sellerAddress,
		Amount: json.RawMessage(`"12500000"`),
	})
	suite.gateway.SetTx(&ledger.TxStatus{
		Hash: xferHash, Validated: true, Result: ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenCreateOffer, Account: sellerAddress, Destination: buyerAddress,
		Amount: json.RawMessage(`"0"`), NFTokenID: nftID, Flags: ledger.TfSellNFToken,
	})

	code, body = suite.do("POST", "/api/marketplace/listing/"+listingID+"/complete", gin.H{
		"buyer_address":     buyerAddress,
		"payment_tx_hash":   payHash,
		"nft_offer_tx_hash": xferHash,
	}, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.Equal(suite.T(), "completed", body["listing"].(map[string]interface{})["status"])
	assert.Equal(suite.T(), "Purchase completed successfully", body["message"])

	code, _ = suite.do("POST", "/api/marketplace/listing/"+listingID+"/cancel", gin.H{"seller_address": sellerAddress}, "")
	assert.Equal(suite.T(), http.StatusConflict, code)
}

func (suite *APITestSuite) TestCancelAndRelist() {
	hash := suite.mint()

	_, body := suite.list(hash, "5")
	listingID := body["listing"].(map[string]interface{})["listing_id"].(string)

	code, _ := suite.do("POST", "/api/marketplace/listing/"+listingID+"/cancel", gin.H{"seller_address": buyerAddress}, "")
	assert.Equal(suite.T(), http.StatusForbidden, code)

	code, body = suite.do("POST", "/api/marketplace/listing/"+listingID+"/cancel", gin.H{"seller_address": sellerAddress}, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.Equal(suite.T(), "cancelled", body["listing"].(map[string]interface{})["status"])

	code, _ = suite.list(hash, "6")
	assert.Equal(suite.T(), http.StatusOK, code)
}

func (suite *APITestSuite) TestPurchaseOfMovedNFTInvalidatesListing() {
	hash := suite.mint()
	_, body := suite.list(hash, 1)
	listingID := body["listing"].(map[string]interface{})["listing_id"].(string)

	suite.gateway.Disown(sellerAddress, nftID)

	code, body := suite.do("POST", "/api/marketplace/listing/"+listingID+"/prepare-buy", gin.H{"buyer_address": buyerAddress}, "")
	assert.Equal(suite.T(), http.StatusBadRequest, code)
	assert.Equal(suite.T(), "NFT is no longer owned by the seller", body["error"])

	_, body = suite.do("GET", "/api/marketplace/listing/"+listingID, nil, "")
	assert.Equal(suite.T(), "invalid", body["listing"].(map[string]interface{})["status"])
}

func (suite *APITestSuite) TestUnknownListing() {
	code, body := suite.do("GET", "/api/marketplace/listing/missing", nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)
	assert.Equal(suite.T(), "Listing not found", body["error"])
}

func (suite *APITestSuite) TestOfferLifecycle() {
	hash := suite.mint()

	code, body := suite.do("POST", "/api/marketplace/offer/template", gin.H{
		"seller_address": sellerAddress,
		"nft_id":         nftID,
		"price_xrp":      "5",
	}, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.Equal(suite.T(), ledger.TxNFTokenCreateOffer, body["template"].(map[string]interface{})["transaction_type"])

	offerTx := ledgertest.HashOf("OFFERBLOB")
	offerID := ledgertest.HashOf("OFFER")
	suite.gateway.SetTx(&ledger.TxStatus{
		Hash: offerTx, Validated: true, Result: ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenCreateOffer, Account: sellerAddress,
		Amount: json.RawMessage(`"5000000"`), OfferID: offerID,
		NFTokenID: nftID, Flags: ledger.TfSellNFToken,
	})

	code, body = suite.do("POST", "/api/marketplace/offer/track", gin.H{
		"transaction_hash": offerTx,
		"nft_id":           nftID,
		"seller_address":   sellerAddress,
		"price_xrp":        5,
		"metadata_hash":    hash,
	}, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.Equal(suite.T(), offerID, body["offer"].(map[string]interface{})["offer_id"])

	code, body = suite.do("GET", "/api/marketplace/offers/nft/"+nftID, nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.EqualValues(suite.T(), 1, body["count"])

	code, body = suite.do("POST", "/api/marketplace/offer/"+offerID+"/accept-template", gin.H{"buyer_address": buyerAddress}, "")
	suite.Require().Equal(http.StatusOK, code, body)

	acceptTx := ledgertest.HashOf("ACCEPTBLOB")
	suite.gateway.SetTx(&ledger.TxStatus{
		Hash: acceptTx, Validated: true, Result: ledger.ResultSuccess,
		TransactionType: ledger.TxNFTokenAcceptOffer, Account: buyerAddress, SellOffer: offerID,
	})
	code, body = suite.do("POST", "/api/marketplace/offer/"+offerID+"/complete", gin.H{
		"buyer_address":    buyerAddress,
		"transaction_hash": acceptTx,
	}, "")
	suite.Require().Equal(http.StatusOK, code, body)
	assert.Equal(suite.T(), "sold", body["offer"].(map[string]interface{})["status"])

	code, body = suite.do("GET", "/api/marketplace/offers", nil, "")
	suite.Require().Equal(http.StatusOK, code)
	assert.EqualValues(suite.T(), 0, body["count"])
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
