package kv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Namespace prefixes used by the application.
const (
	NamespaceLinks  = "links:"
	NamespaceUsers  = "users:"
	NamespaceAssets = "assets:"
	NamespaceCache  = "cache:"
)

// Keys under these namespaces are credentials.
var secretNamespaces = []string{NamespaceUsers}

// LogKey returns key in a form fit for logs and error text. A key in a
// secret namespace is reduced to its namespace and a short digest.
func LogKey(key string) string {
	for _, ns := range secretNamespaces {
		if rest, ok := strings.CutPrefix(key, ns); ok {
			sum := sha256.Sum256([]byte(rest))
			return ns + "sha256:" + hex.EncodeToString(sum[:6])
		}
	}
	return key
}

// namespaced scopes a Store to keys carrying a prefix.
type namespaced struct {
	store  Store
	prefix string
}

// Namespaced returns a Store whose keys are transparently prefixed, so several
// logical stores can share one backend.
func Namespaced(store Store, prefix string) Store {
	return &namespaced{store: store, prefix: prefix}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Put(ctx context.Context, key string, value []byte, expireAt time.Time) error {
	return n.store.Put(ctx, n.prefix+key, value, expireAt)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Exists(ctx context.Context, key string) (bool, error) {
	return n.store.Exists(ctx, n.prefix+key)
}

func (n *namespaced) PurgeExpired(ctx context.Context) (int64, error) {
	return n.store.PurgeExpired(ctx)
}

func (n *namespaced) Ping(ctx context.Context) error {
	return n.store.Ping(ctx)
}
