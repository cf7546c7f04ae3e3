package repository

import (
	"context"
	"time"

	"github.com/deppfellow/shortlink-edge/internal/kv"
)

// AssetRepository stores static files keyed by their URL path, e.g.
// "/index.html".
type AssetRepository struct {
	store kv.Store
}

func NewAssetRepository(store kv.Store) *AssetRepository {
	return &AssetRepository{store: store}
}

func (r *AssetRepository) Get(ctx context.Context, path string) ([]byte, error) {
	return r.store.Get(ctx, path)
}

func (r *AssetRepository) Put(ctx context.Context, path string, body []byte) error {
	return r.store.Put(ctx, path, body, time.Time{})
}
