// internal/models/document.go
package models

import (
	"time"
)

// MetadataDocument is immutable once stored. Hash and ID are both unique.
type MetadataDocument struct {
	ID        string                 `json:"metadata_id" bson:"metadata_id"`
	Hash      string                 `json:"metadata_hash" bson:"metadata_hash"`
	Metadata  map[string]interface{} `json:"metadata" bson:"metadata"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
}

type NFTStatus string

const (
	NFTStatusMinted NFTStatus = "minted"
	NFTStatusFailed NFTStatus = "failed"
)

// PlatformMetadata is the minimal pointer kept on an NFT record.
type PlatformMetadata struct {
	PlatformMinted bool   `json:"platform_minted" bson:"platform_minted"`
	NFTID          string `json:"nft_id" bson:"nft_id"`
	MetadataID     string `json:"metadata_id" bson:"metadata_id"`
	MetadataHash   string `json:"metadata_hash" bson:"metadata_hash"`
}

type NFTRecord struct {
	NFTID           string           `json:"nft_id" bson:"nft_id"`
	NFTokenID       string           `json:"nftoken_id,omitempty" bson:"nftoken_id,omitempty"`
	Account         string           `json:"account" bson:"account"`
	URI             string           `json:"uri" bson:"uri"`
	TransactionHash string           `json:"transaction_hash" bson:"transaction_hash"`
	Metadata        PlatformMetadata `json:"metadata" bson:"metadata"`
	Status          NFTStatus        `json:"status" bson:"status"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}
