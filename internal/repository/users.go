package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/model"
)

// UserRepository stores users keyed by API key.
type UserRepository struct {
	store kv.Store
}

func NewUserRepository(store kv.Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	raw, err := r.store.Get(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrCorruptRecord, err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user %q: %w", user.Username, err)
	}
	return r.store.Put(ctx, user.APIKey, raw, time.Time{})
}
