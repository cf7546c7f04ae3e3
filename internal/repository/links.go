package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/model"
)

// LinkRepository stores short URL records keyed by short id.
type LinkRepository struct {
	store kv.Store
}

func NewLinkRepository(store kv.Store) *LinkRepository {
	return &LinkRepository{store: store}
}

// Get returns the record for id. A miss is kv.ErrNotFound and an
// undecodable value is ErrCorruptRecord.
func (r *LinkRepository) Get(ctx context.Context, id string) (*model.ShortURL, error) {
	raw, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var link model.ShortURL
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("%w: link %q: %v", ErrCorruptRecord, id, err)
	}
	return &link, nil
}

func (r *LinkRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.store.Exists(ctx, id)
}

// Create writes the record. The store drops it once link.ExpiresAt passes.
func (r *LinkRepository) Create(ctx context.Context, id string, link *model.ShortURL) error {
	raw, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encoding link %q: %w", id, err)
	}
	return r.store.Put(ctx, id, raw, link.ExpiresAt())
}
