// internal/store/memstore/memstore_test.go
package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/rwa-backend/internal/models"
	"github.com/javajoker/rwa-backend/internal/store"
	"github.com/javajoker/rwa-backend/internal/store/storetest"
)

func TestMemstore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Documents { return New() })
}

func TestConcurrentListingsOnlyOneWins(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.InsertSale(ctx, &models.Sale{
				ListingID: uuid.NewString(),
				Mechanism: models.SaleMechanismLegacyPaymentTransfer,
				NFTID:     "NFT-RACE",
				Status:    models.SaleStatusActive,
				CreatedAt: time.Now().UTC(),
			})
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, store.ErrDuplicate)
	}
	assert.Equal(t, 1, ok)
}

func TestReturnedSalesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	sale := &models.Sale{ListingID: "L1", NFTID: "N1", Status: models.SaleStatusActive, Extra: map[string]interface{}{"a": 1}}
	assert.NoError(t, s.InsertSale(ctx, sale))

	got, err := s.FindSale(ctx, "L1")
	assert.NoError(t, err)
	got.Extra["a"] = 2
	got.Status = models.SaleStatusSold

	again, _ := s.FindSale(ctx, "L1")
	assert.Equal(t, 1, again.Extra["a"])
	assert.Equal(t, models.SaleStatusActive, again.Status)
}

func TestMetadataIsNotSharedWithCallers(t *testing.T) {
	s := New()
	ctx := context.Background()
	payload := map[string]interface{}{
		"name":       "Gold Deed",
		"attributes": map[string]interface{}{"weight": "1kg"},
		"tags":       []interface{}{"gold"},
	}
	assert.NoError(t, s.InsertMetadata(ctx, &models.MetadataDocument{ID: "M1", Hash: "H1", Metadata: payload}))

	payload["name"] = "changed after insert"

	got, err := s.FindMetadataByHash(ctx, "H1")
	assert.NoError(t, err)
	assert.Equal(t, "Gold Deed", got.Metadata["name"])

	got.Metadata["attributes"].(map[string]interface{})["weight"] = "2kg"
	got.Metadata["tags"].([]interface{})[0] = "lead"

	again, err := s.FindMetadataByID(ctx, "M1")
	assert.NoError(t, err)
	assert.Equal(t, "1kg", again.Metadata["attributes"].(map[string]interface{})["weight"])
	assert.Equal(t, []interface{}{"gold"}, again.Metadata["tags"])
}
