// internal/store/memstore/memstore.go

// Package memstore is an in-process document store. It enforces the same
// uniqueness rules as the MongoDB indexes and is used for development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
	"github.com/javajoker/rwa-backend/internal/utils"
)

type Store struct {
	mu       sync.RWMutex
	metadata map[string]*models.MetadataDocument // by hash
	metaIDs  map[string]string                   // id -> hash
	sales    map[string]*models.Sale              // by listing id
	nfts     []*models.NFTRecord
}

var _ store.Documents = (*Store)(nil)

func New() *Store {
	return &Store{
		metadata: make(map[string]*models.MetadataDocument),
		metaIDs:  make(map[string]string),
		sales:    make(map[string]*models.Sale),
	}
}

func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) InsertMetadata(ctx context.Context, doc *models.MetadataDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.metadata[doc.Hash]; ok {
		return store.ErrDuplicate
	}
	if _, ok := s.metaIDs[doc.ID]; ok {
		return store.ErrDuplicate
	}
	s.metadata[doc.Hash] = cloneMetadata(doc)
	s.metaIDs[doc.ID] = doc.Hash
	return nil
}

func (s *Store) FindMetadataByHash(ctx context.Context, hash string) (*models.MetadataDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.metadata[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMetadata(doc), nil
}

func (s *Store) FindMetadataByID(ctx context.Context, id string) (*models.MetadataDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hash, ok := s.metaIDs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMetadata(s.metadata[hash]), nil
}

// ReplaceMetadataPayload overwrites a stored payload without touching its
// hash. It stands in for out-of-band edits to the collection.
func (s *Store) ReplaceMetadataPayload(hash string, payload map[string]interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.metadata[hash]
	if !ok {
		return false
	}
	doc.Metadata = copyMap(payload)
	return true
}

func (s *Store) InsertSale(ctx context.Context, sale *models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[sale.ListingID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range s.sales {
		if sale.OfferID != "" && existing.OfferID == sale.OfferID {
			return store.ErrDuplicate
		}
		if sale.Mechanism == models.SaleMechanismLegacyPaymentTransfer &&
			existing.Mechanism == models.SaleMechanismLegacyPaymentTransfer &&
			sale.Status == models.SaleStatusActive &&
			existing.Status == models.SaleStatusActive &&
			existing.NFTID == sale.NFTID {
			return store.ErrDuplicate
		}
	}
	s.sales[sale.ListingID] = cloneSale(sale)
	return nil
}

func (s *Store) FindSale(ctx context.Context, listingID string) (*models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[listingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) FindSaleByOfferID(ctx context.Context, offerID string) (*models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.OfferID == offerID {
			return cloneSale(sale), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Sale, 0)
	for _, sale := range s.sales {
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if filter.Mechanism != "" && sale.Mechanism != filter.Mechanism {
			continue
		}
		if filter.NFTID != "" && sale.NFTID != filter.NFTID {
			continue
		}
		out = append(out, *cloneSale(sale))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TransitionSale(ctx context.Context, listingID string, from, to models.SaleStatus, update models.SaleUpdate, at time.Time) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[listingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != from {
		return nil, store.ErrStatusChanged
	}
	store.ApplySaleUpdate(sale, to, update, at)
	return cloneSale(sale), nil
}

func (s *Store) RecordSettlement(ctx context.Context, listingID, buyer string, txHashes []string, at time.Time) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[listingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != models.SaleStatusActive {
		return nil, store.ErrStatusChanged
	}
	sale.BuyerAddress = buyer
	sale.SettlementTxHash = append([]string(nil), txHashes...)
	sale.UpdatedAt = at
	return cloneSale(sale), nil
}

func (s *Store) InsertNFT(ctx context.Context, nft *models.NFTRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.nfts {
		if existing.NFTID == nft.NFTID {
			return store.ErrDuplicate
		}
	}
	cp := *nft
	s.nfts = append(s.nfts, &cp)
	return nil
}

func (s *Store) FindNFTsByAccount(ctx context.Context, account string) ([]models.NFTRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NFTRecord, 0)
	for _, nft := range s.nfts {
		if nft.Account == account {
			out = append(out, *nft)
		}
	}
	return out, nil
}

func (s *Store) SetNFTokenID(ctx context.Context, nftID, nftokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, nft := range s.nfts {
		if nft.NFTID == nftID {
			now := time.Now().UTC()
			nft.NFTokenID = nftokenID
			nft.UpdatedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) UpdateNFTStatus(ctx context.Context, txHash string, status models.NFTStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, nft := range s.nfts {
		if nft.TransactionHash == txHash {
			now := time.Now().UTC()
			nft.Status = status
			nft.UpdatedAt = &now
			found = true
		}
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

func cloneSale(sale *models.Sale) *models.Sale {
	cp := *sale
	if sale.SettlementTxHash != nil {
		cp.SettlementTxHash = append([]string(nil), sale.SettlementTxHash...)
	}
	cp.Extra = copyMap(sale.Extra)
	return &cp
}

func cloneMetadata(doc *models.MetadataDocument) *models.MetadataDocument {
	cp := *doc
	cp.Metadata = copyMap(doc.Metadata)
	return &cp
}

// copyMap deep-copies a decoded JSON object so callers never share nested
// maps or slices with the store.
func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out, _ := utils.NormalizeJSON(m).(map[string]interface{})
	return out
}
