// internal/services/nft_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/ledger"
	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
)

const (
	nftURIPrefix     = "RWA-XRPL_REAL_WORLD"
	maxNFTURIBytes   = 256
	maxTransferFee   = 50000
	unknownAssetType = "UNKNOWN"
)

// NFTService prepares mint transactions and tracks NFTs minted through
// the platform.
type NFTService struct {
	nfts     store.NFTRepository
	metadata *MetadataService
	ledger   ledger.Gateway
}

func NewNFTService(nfts store.NFTRepository, metadata *MetadataService, gateway ledger.Gateway) *NFTService {
	return &NFTService{nfts: nfts, metadata: metadata, ledger: gateway}
}

type MintTemplateInput struct {
	Account     string
	Metadata    map[string]interface{}
	Flags       uint32
	TransferFee uint32
	Taxon       uint32
}

type MintTemplate struct {
	Template     *ledger.Template `json:"template"`
	MetadataHash string           `json:"metadata_hash"`
	URI          string           `json:"uri"`
}

type SubmitInput struct {
	// SignedTransaction is a hex blob or an object carrying tx_blob.
	SignedTransaction interface{}
	Account           string
	URI               string
	Metadata          map[string]interface{}
}

type NFTSubmission struct {
	Result *ledger.SubmitResult `json:"result"`
	NFT    *models.NFTRecord    `json:"nft,omitempty"`
}

type NFTView struct {
	NFTID            string           `json:"nft_id"`
	NFTokenID        string           `json:"nftoken_id,omitempty"`
	Account          string           `json:"account"`
	TransactionHash  string           `json:"transaction_hash"`
	CreatedAt        time.Time        `json:"created_at"`
	Status           models.NFTStatus `json:"status"`
	URI              string           `json:"uri"`
	Metadata         interface{}      `json:"metadata"`
	MetadataVerified bool             `json:"metadata_verified"`
}

// MintURI builds the on-ledger pointer to a metadata document.
func MintURI(metadata map[string]interface{}, hash string) string {
	assetType := unknownAssetType
	if v, ok := metadata["asset_type"]; ok && v != nil && fmt.Sprint(v) != "" {
		assetType = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s-%s-%s", nftURIPrefix, assetType, hash)
}

func (s *NFTService) MintTemplate(ctx context.Context, in MintTemplateInput) (*MintTemplate, error) {
	if in.Account == "" {
		return nil, validationError("account is required")
	}
	if len(in.Metadata) == 0 {
		return nil, validationError("metadata is required")
	}
	if in.TransferFee > maxTransferFee {
		return nil, validationError("transfer_fee must not exceed %d", maxTransferFee)
	}

	hash, err := ComputeMetadataHash(in.Metadata)
	if err != nil {
		return nil, err
	}
	uri := MintURI(in.Metadata, hash)
	if len(uri) > maxNFTURIBytes {
		return nil, validationError("NFT URI is longer than %d bytes", maxNFTURIBytes)
	}

	logrus.WithFields(logrus.Fields{
		"account":       in.Account,
		"metadata_hash": hash,
		"uri":           uri,
	}).Debug("Mint template generated")

	return &MintTemplate{
		Template:     ledger.NFTMintTemplate(in.Account, uri, in.Flags, in.TransferFee, in.Taxon),
		MetadataHash: hash,
		URI:          uri,
	}, nil
}

// Submit relays a signed transaction. A successful mint carrying uri and
// metadata is tracked along with its metadata.
func (s *NFTService) Submit(ctx context.Context, in SubmitInput) (*NFTSubmission, error) {
	if in.Account == "" {
		return nil, validationError("account is required")
	}
	if in.URI == "" {
		return nil, validationError("uri is required")
	}
	blob, err := SignedBlob(in.SignedTransaction)
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.Submit(ctx, blob)
	if err != nil {
		return nil, err
	}

	submission := &NFTSubmission{Result: result}
	if len(in.Metadata) == 0 {
		return submission, nil
	}

	record, err := s.trackMint(ctx, in.Account, in.URI, result.Hash, in.Metadata)
	if err != nil {
		// The ledger already accepted the transaction; resubmitting would fail.
		logrus.WithError(err).WithField("transaction_hash", result.Hash).Error("Failed to track minted NFT")
		return submission, nil
	}
	submission.NFT = record
	return submission, nil
}

func (s *NFTService) trackMint(ctx context.Context, account, uri, txHash string, metadata map[string]interface{}) (*models.NFTRecord, error) {
	hash, id, err := s.metadata.Store(ctx, metadata)
	if err != nil {
		return nil, err
	}

	nftID := uuid.NewString()
	record := &models.NFTRecord{
		NFTID:           nftID,
		Account:         account,
		URI:             uri,
		TransactionHash: txHash,
		Metadata: models.PlatformMetadata{
			PlatformMinted: true,
			NFTID:          nftID,
			MetadataID:     id,
			MetadataHash:   hash,
		},
		Status:    models.NFTStatusMinted,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.nfts.InsertNFT(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to track NFT in database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"nft_id":           nftID,
		"account":          account,
		"transaction_hash": txHash,
	}).Info("NFT mint tracked")
	return record, nil
}

// GetAccountNFTs lists platform-minted NFTs with their metadata. Records
// still missing the ledger token id are reconciled from the mint
// transaction.
func (s *NFTService) GetAccountNFTs(ctx context.Context, address string) ([]NFTView, error) {
	records, err := s.nfts.FindNFTsByAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve NFTs from database: %w", err)
	}

	views := make([]NFTView, 0, len(records))
	for i := range records {
		record := &records[i]
		if record.NFTokenID == "" && record.Status == models.NFTStatusMinted {
			s.reconcile(ctx, record)
		}

		view := NFTView{
			NFTID:           record.NFTID,
			NFTokenID:       record.NFTokenID,
			Account:         record.Account,
			TransactionHash: record.TransactionHash,
			CreatedAt:       record.CreatedAt,
			Status:          record.Status,
			URI:             record.URI,
			Metadata:        map[string]interface{}{"error": "Metadata not found"},
		}
		if record.Metadata.MetadataID != "" {
			if meta, err := s.metadata.GetByID(ctx, record.Metadata.MetadataID); err == nil {
				view.Metadata = meta.Metadata
				view.MetadataVerified = meta.Verified
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *NFTService) reconcile(ctx context.Context, record *models.NFTRecord) {
	log := logrus.WithFields(logrus.Fields{
		"nft_id":           record.NFTID,
		"transaction_hash": record.TransactionHash,
	})

	tx, err := s.ledger.Transaction(ctx, record.TransactionHash)
	if err != nil {
		log.WithError(err).Debug("Mint transaction lookup failed")
		return
	}
	switch {
	case tx.Pending():
		return
	case tx.Result != ledger.ResultSuccess:
		if err := s.nfts.UpdateNFTStatus(ctx, record.TransactionHash, models.NFTStatusFailed); err != nil {
			log.WithError(err).Warn("Failed to mark NFT mint as failed")
			return
		}
		record.Status = models.NFTStatusFailed
	case tx.NFTokenID != "":
		if err := s.nfts.SetNFTokenID(ctx, record.NFTID, tx.NFTokenID); err != nil {
			log.WithError(err).Warn("Failed to record NFTokenID")
			return
		}
		record.NFTokenID = tx.NFTokenID
	}
}

// SignedBlob accepts a hex blob or an object carrying tx_blob.
func SignedBlob(signed interface{}) (string, error) {
	switch v := signed.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	case map[string]interface{}:
		if blob, ok := v["tx_blob"].(string); ok && blob != "" {
			return blob, nil
		}
		return "", validationError("signed_transaction must carry a tx_blob")
	}
	return "", validationError("signed_transaction is required")
}
