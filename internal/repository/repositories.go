// Package repository handles all interactions with the key/value store.
//
// Each repository owns one namespace of the store and the JSON encoding
// of its records, keeping key layout and serialisation away from the
// service layer.
package repository

import (
	"errors"

	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/server"
)

// ErrCorruptRecord is returned when a stored value cannot be decoded.
var ErrCorruptRecord = errors.New("repository: stored record cannot be decoded")

// Repositories is a container for all repository instances.
type Repositories struct {
	Links  *LinkRepository
	Users  *UserRepository
	Assets *AssetRepository
}

// NewRepositories builds every repository on top of the server's store.
func NewRepositories(s *server.Server) *Repositories {
	return NewRepositoriesWithStore(s.Store)
}

// NewRepositoriesWithStore builds the repositories over an explicit store.
// The CLI uses it when no HTTP server is running.
func NewRepositoriesWithStore(store kv.Store) *Repositories {
	return &Repositories{
		Links:  NewLinkRepository(kv.Namespaced(store, kv.NamespaceLinks)),
		Users:  NewUserRepository(kv.Namespaced(store, kv.NamespaceUsers)),
		Assets: NewAssetRepository(kv.Namespaced(store, kv.NamespaceAssets)),
	}
}
