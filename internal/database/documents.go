// internal/database/documents.go
package database

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/config"
	"github.com/javajoker/rwa-backend/internal/store"
	"github.com/javajoker/rwa-backend/internal/store/memstore"
	"github.com/javajoker/rwa-backend/internal/store/mongostore"
)

// OpenDocuments connects the document store. Without a MongoDB URI the
// in-process store is used and nothing survives a restart.
func OpenDocuments(ctx context.Context, cfg config.MongoConfig) (store.Documents, error) {
	if !cfg.Enabled() {
		logrus.Warn("MONGODB_URI not set, using in-memory document store")
		return memstore.New(), nil
	}
	return mongostore.Connect(ctx, cfg.URI, cfg.Database, cfg.Timeout)
}
