// internal/database/connection_test.go
package database_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/rwa-backend/internal/database"
	"github.com/javajoker/rwa-backend/internal/database/dbtest"
	"github.com/javajoker/rwa-backend/internal/models"
)

func TestWithTransactionRollsBack(t *testing.T) {
	db := dbtest.Open(t)

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&models.Wallet{Address: "rRollback", SealedSeed: "x"}).Error)
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	var count int64
	db.Model(&models.Wallet{}).Count(&count)
	assert.Zero(t, count)
}

func TestWithTransactionCommits(t *testing.T) {
	db := dbtest.Open(t)

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		return tx.Create(&models.Wallet{Address: "rCommit", SealedSeed: "x"}).Error
	})
	require.NoError(t, err)

	var wallet models.Wallet
	require.NoError(t, db.Where("address = ?", "rCommit").First(&wallet).Error)
	assert.NotEqual(t, "", wallet.ID.String())
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db := dbtest.Open(t)

	assert.Panics(t, func() {
		_ = database.WithTransaction(db, func(tx *gorm.DB) error {
			tx.Create(&models.Wallet{Address: "rPanic", SealedSeed: "x"})
			panic("boom")
		})
	})

	var count int64
	db.Model(&models.Wallet{}).Count(&count)
	assert.Zero(t, count)
}
