// internal/store/mongostore/mongostore.go

// Package mongostore implements the document store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
)

const (
	metadataCollection = "metadata"
	salesCollection    = "sales"
	nftsCollection     = "nfts"
)

type Store struct {
	client   *mongo.Client
	metadata *mongo.Collection
	sales    *mongo.Collection
	nfts     *mongo.Collection
}

var _ store.Documents = (*Store)(nil)

// Connect dials MongoDB, pings it and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		metadata: db.Collection(metadataCollection),
		sales:    db.Collection(salesCollection),
		nfts:     db.Collection(nftsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logrus.WithField("database", database).Info("Connected to MongoDB")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	var result error

	_, err := s.metadata.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "metadata_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "metadata_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("metadata indexes: %w", err))
	}

	_, err = s.sales.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "nft_id", Value: 1}},
			Options: options.Index().
				SetName("one_active_listing_per_nft").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "status", Value: string(models.SaleStatusActive)},
					{Key: "mechanism", Value: string(models.SaleMechanismLegacyPaymentTransfer)},
				}),
		},
		{
			Keys: bson.D{{Key: "offer_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "offer_id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("sales indexes: %w", err))
	}

	_, err = s.nfts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "nft_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "account", Value: 1}}},
		{Keys: bson.D{{Key: "transaction_hash", Value: 1}}},
	})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("nfts indexes: %w", err))
	}

	return result
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) InsertMetadata(ctx context.Context, doc *models.MetadataDocument) error {
	_, err := s.metadata.InsertOne(ctx, doc)
	return translate(err)
}

func (s *Store) FindMetadataByHash(ctx context.Context, hash string) (*models.MetadataDocument, error) {
	return s.findMetadata(ctx, bson.M{"metadata_hash": hash})
}

func (s *Store) FindMetadataByID(ctx context.Context, id string) (*models.MetadataDocument, error) {
	return s.findMetadata(ctx, bson.M{"metadata_id": id})
}

func (s *Store) findMetadata(ctx context.Context, filter bson.M) (*models.MetadataDocument, error) {
	var doc models.MetadataDocument
	if err := s.metadata.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *Store) InsertSale(ctx context.Context, sale *models.Sale) error {
	_, err := s.sales.InsertOne(ctx, sale)
	return translate(err)
}

func (s *Store) FindSale(ctx context.Context, listingID string) (*models.Sale, error) {
	return s.findSale(ctx, bson.M{"listing_id": listingID})
}

func (s *Store) FindSaleByOfferID(ctx context.Context, offerID string) (*models.Sale, error) {
	return s.findSale(ctx, bson.M{"offer_id": offerID})
}

func (s *Store) findSale(ctx context.Context, filter bson.M) (*models.Sale, error) {
	var sale models.Sale
	if err := s.sales.FindOne(ctx, filter).Decode(&sale); err != nil {
		return nil, translate(err)
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]models.Sale, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Mechanism != "" {
		query["mechanism"] = filter.Mechanism
	}
	if filter.NFTID != "" {
		query["nft_id"] = filter.NFTID
	}

	cursor, err := s.sales.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}

	sales := make([]models.Sale, 0)
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}
	return sales, nil
}

func (s *Store) TransitionSale(ctx context.Context, listingID string, from, to models.SaleStatus, update models.SaleUpdate, at time.Time) (*models.Sale, error) {
	set := bson.M{"status": to, "updated_at": at}
	if update.BuyerAddress != "" {
		set["buyer_address"] = update.BuyerAddress
	}
	if len(update.SettlementTxHash) > 0 {
		set["settlement_tx_hashes"] = update.SettlementTxHash
	}
	if update.Reason != "" {
		set["reason"] = update.Reason
	}
	for k, v := range update.Extra {
		set["extra."+k] = v
	}

	return s.compareAndSet(ctx, listingID, from, set)
}

func (s *Store) RecordSettlement(ctx context.Context, listingID, buyer string, txHashes []string, at time.Time) (*models.Sale, error) {
	return s.compareAndSet(ctx, listingID, models.SaleStatusActive, bson.M{
		"buyer_address":        buyer,
		"settlement_tx_hashes": txHashes,
		"updated_at":           at,
	})
}

func (s *Store) compareAndSet(ctx context.Context, listingID string, from models.SaleStatus, set bson.M) (*models.Sale, error) {
	var sale models.Sale
	err := s.sales.FindOneAndUpdate(ctx,
		bson.M{"listing_id": listingID, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sale)
	if err == nil {
		return &sale, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	// Nothing matched: either the sale is gone or its status moved.
	if _, findErr := s.FindSale(ctx, listingID); findErr != nil {
		return nil, findErr
	}
	return nil, store.ErrStatusChanged
}

func (s *Store) InsertNFT(ctx context.Context, nft *models.NFTRecord) error {
	_, err := s.nfts.InsertOne(ctx, nft)
	return translate(err)
}

func (s *Store) FindNFTsByAccount(ctx context.Context, account string) ([]models.NFTRecord, error) {
	cursor, err := s.nfts.Find(ctx, bson.M{"account": account}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query nfts: %w", err)
	}

	nfts := make([]models.NFTRecord, 0)
	if err := cursor.All(ctx, &nfts); err != nil {
		return nil, fmt.Errorf("failed to decode nfts: %w", err)
	}
	return nfts, nil
}

func (s *Store) SetNFTokenID(ctx context.Context, nftID, nftokenID string) error {
	res, err := s.nfts.UpdateOne(ctx,
		bson.M{"nft_id": nftID},
		bson.M{"$set": bson.M{"nftoken_id": nftokenID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update nft: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateNFTStatus(ctx context.Context, txHash string, status models.NFTStatus) error {
	res, err := s.nfts.UpdateMany(ctx,
		bson.M{"transaction_hash": txHash},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update nft status: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}
