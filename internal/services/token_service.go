// internal/services/token_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/rwa-backend/internal/config"
	"github.com/javajoker/rwa-backend/internal/database"
	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/utils"
)

// TokenService registers wallets and issues tokens on the ledger.
type TokenService struct {
	db     *gorm.DB
	ledger ledger.Gateway
	sealer *utils.SecretSealer
	config *config.Config
}

func NewTokenService(db *gorm.DB, gateway ledger.Gateway, sealer *utils.SecretSealer, cfg *config.Config) *TokenService {
	return &TokenService{
		db:     db,
		ledger: gateway,
		sealer: sealer,
		config: cfg,
	}
}

type WalletCredentials struct {
	ClassicAddress string `json:"classic_address" binding:"required,xrpl_address"`
	Secret         string `json:"secret" binding:"required"`
}

type CreateTokenRequest struct {
	Wallet   WalletCredentials      `json:"wallet" binding:"required"`
	Name     string                 `json:"name" binding:"required,max=100"`
	Supply   int64                  `json:"supply" binding:"required,gt=0"`
	Metadata map[string]interface{} `json:"metadata"`
	Holder   *WalletCredentials     `json:"holder"`
}

type CreatedWallet struct {
	Address     string `json:"address"`
	Seed        string `json:"seed"`
	ExplorerURL string `json:"explorer_url"`
	AccessToken string `json:"access_token"`
}

type WalletInfo struct {
	Wallet       models.WalletView      `json:"wallet"`
	AccountInfo  map[string]interface{} `json:"account_info"`
	AccountLines []ledger.TrustLine     `json:"account_lines"`
	ExplorerURL  string                 `json:"explorer_url"`
}

type TokenIssuance struct {
	CurrencyCode         string               `json:"currency_code"`
	HolderAddress        string               `json:"holder_address"`
	EnableRipplingResult *ledger.SubmitResult `json:"enable_rippling_result"`
	TrustSetResult       *ledger.SubmitResult `json:"trust_set_result"`
	PaymentResult        *ledger.SubmitResult `json:"payment_result"`
	Token                models.TokenView     `json:"token"`
	ExplorerURL          string               `json:"explorer_url"`
}

// CreateWallet funds a wallet from the faucet and registers it with its
// seed sealed.
func (s *TokenService) CreateWallet(ctx context.Context) (*CreatedWallet, error) {
	generated, err := s.ledger.GenerateWallet(ctx)
	if err != nil {
		return nil, err
	}

	wallet, err := s.newWallet(generated.ClassicAddress, generated.Seed)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	token, err := utils.GenerateWalletToken(wallet.Address, s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue wallet session: %w", err)
	}

	logrus.WithField("address", wallet.Address).Info("Wallet created")

	return &CreatedWallet{
		Address:     wallet.Address,
		Seed:        generated.Seed,
		ExplorerURL: s.ledger.ExplorerURL("account", wallet.Address),
		AccessToken: token,
	}, nil
}

// GetWalletInfo merges the stored wallet with its live ledger state.
func (s *TokenService) GetWalletInfo(ctx context.Context, address string) (*WalletInfo, error) {
	wallet, err := s.findWallet(ctx, address)
	if err != nil {
		return nil, err
	}

	accountInfo, err := s.ledger.AccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	lines, err := s.ledger.AccountLines(ctx, address)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(wallet).Update("last_synced", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}
	wallet.LastSynced = &now

	return &WalletInfo{
		Wallet:       wallet.View(),
		AccountInfo:  accountInfo,
		AccountLines: lines,
		ExplorerURL:  s.ledger.ExplorerURL("account", address),
	}, nil
}

// CreateToken issues an IOU in three signed steps. Nothing is written
// unless all three are accepted.
func (s *TokenService) CreateToken(ctx context.Context, req *CreateTokenRequest) (*TokenIssuance, error) {
	if req.Wallet.Secret == "" {
		return nil, validationError("wallet secret is required")
	}
	if req.Supply <= 0 {
		return nil, validationError("supply must be positive")
	}

	issuer, err := s.findWallet(ctx, req.Wallet.ClassicAddress)
	if err != nil {
		return nil, err
	}
	if err := s.checkSecret(issuer, req.Wallet.Secret); err != nil {
		return nil, err
	}

	currency, err := ledger.CurrencyCode(req.Name)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	holder, generatedHolder, err := s.resolveHolder(ctx, req.Holder)
	if err != nil {
		return nil, err
	}
	if holder.ClassicAddress == issuer.Address {
		return nil, validationError("holder must differ from the issuer")
	}

	// The trust line receipt belongs to the holder who signed it. A holder
	// that is not registered here has its receipt filed under the issuer.
	trustSigner := issuer
	if generatedHolder != nil {
		trustSigner = generatedHolder
	} else if registered, err := s.findWallet(ctx, holder.ClassicAddress); err == nil {
		trustSigner = registered
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"issuer":   issuer.Address,
		"holder":   holder.ClassicAddress,
		"currency": currency,
	})

	enableResult, err := s.ledger.SignAndSubmit(ctx, ledger.AccountSetTemplate(issuer.Address), req.Wallet.Secret)
	if err != nil {
		log.WithError(err).Warn("Enable rippling failed")
		return nil, err
	}
	trustResult, err := s.ledger.SignAndSubmit(ctx,
		ledger.TrustSetTemplate(holder.ClassicAddress, issuer.Address, currency, req.Supply), holder.Seed)
	if err != nil {
		log.WithError(err).Warn("Trust line creation failed")
		return nil, err
	}
	paymentResult, err := s.ledger.SignAndSubmit(ctx,
		ledger.IssuedPaymentTemplate(issuer.Address, holder.ClassicAddress, currency, req.Supply), req.Wallet.Secret)
	if err != nil {
		log.WithError(err).Warn("Token payment failed")
		return nil, err
	}

	metadata, _ := utils.NormalizeJSON(req.Metadata).(map[string]interface{})
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	token := &models.Token{
		CurrencyCode:     currency,
		Name:             req.Name,
		TotalSupply:      req.Supply,
		TokenMetadata:    models.JSONB(metadata),
		IssuerID:         issuer.ID,
		HolderAddress:    holder.ClassicAddress,
		EnableRipplingTx: enableResult.Hash,
		TrustSetTx:       trustResult.Hash,
		PaymentTx:        paymentResult.Hash,
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if generatedHolder != nil {
			if err := tx.Create(generatedHolder).Error; err != nil {
				return fmt.Errorf("failed to save holder wallet: %w", err)
			}
		}
		if err := tx.Omit(clause.Associations).Create(token).Error; err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		steps := []struct {
			txType models.TransactionType
			result *ledger.SubmitResult
			signer *models.Wallet
		}{
			{models.TransactionTypeEnableRippling, enableResult, issuer},
			{models.TransactionTypeTrustSet, trustResult, trustSigner},
			{models.TransactionTypePayment, paymentResult, issuer},
		}
		for _, step := range steps {
			record := &models.Transaction{
				TxHash:   step.result.Hash,
				TxType:   step.txType,
				WalletID: step.signer.ID,
				TokenID:  &token.ID,
				Status:   models.TransactionStatusSuccess,
				RawData:  submitResultJSONB(step.result),
			}
			if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
				return fmt.Errorf("failed to save %s transaction: %w", step.txType, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token.Issuer = *issuer
	log.WithField("token_id", token.ID).Info("Token issued")

	return &TokenIssuance{
		CurrencyCode:         currency,
		HolderAddress:        holder.ClassicAddress,
		EnableRipplingResult: enableResult,
		TrustSetResult:       trustResult,
		PaymentResult:        paymentResult,
		Token:                token.View(),
		ExplorerURL:          s.ledger.ExplorerURL("account", issuer.Address),
	}, nil
}

func (s *TokenService) ListTokens(ctx context.Context) ([]models.TokenView, error) {
	var tokens []models.Token
	if err := s.db.WithContext(ctx).Preload("Issuer").Order("created_at DESC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	views := make([]models.TokenView, 0, len(tokens))
	for i := range tokens {
		views = append(views, tokens[i].View())
	}
	return views, nil
}

// ListTransactions returns every recorded transaction, newest first.
func (s *TokenService) ListTransactions(ctx context.Context) ([]models.TransactionView, error) {
	var transactions []models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Wallet").
		Preload("Token").
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	views := make([]models.TransactionView, 0, len(transactions))
	for i := range transactions {
		views = append(views, transactions[i].View())
	}
	return views, nil
}

func (s *TokenService) findWallet(ctx context.Context, address string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: wallet %s", ErrNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &wallet, nil
}

// checkSecret compares the supplied secret with the sealed seed.
func (s *TokenService) checkSecret(wallet *models.Wallet, secret string) error {
	seed, err := s.sealer.Open(wallet.SealedSeed)
	if err != nil {
		return fmt.Errorf("failed to open wallet seed: %w", err)
	}
	if seed != secret {
		return fmt.Errorf("%w: secret does not match wallet %s", ErrForbidden, wallet.Address)
	}
	return nil
}

// resolveHolder returns the trust-line holder. Without one in the request
// a faucet wallet is generated; it is returned unsaved so it is only
// written with the token.
func (s *TokenService) resolveHolder(ctx context.Context, requested *WalletCredentials) (*ledger.Wallet, *models.Wallet, error) {
	if requested != nil && requested.ClassicAddress != "" {
		if requested.Secret == "" {
			return nil, nil, validationError("holder secret is required")
		}
		return &ledger.Wallet{ClassicAddress: requested.ClassicAddress, Seed: requested.Secret}, nil, nil
	}

	generated, err := s.ledger.GenerateWallet(ctx)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.newWallet(generated.ClassicAddress, generated.Seed)
	if err != nil {
		return nil, nil, err
	}
	return generated, record, nil
}

func (s *TokenService) newWallet(address, seed string) (*models.Wallet, error) {
	sealed, err := s.sealer.Seal(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to seal wallet seed: %w", err)
	}
	now := time.Now().UTC()
	return &models.Wallet{
		Address:    address,
		SealedSeed: sealed,
		LastSynced: &now,
	}, nil
}

func submitResultJSONB(result *ledger.SubmitResult) models.JSONB {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	var out models.JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
