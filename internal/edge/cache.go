package edge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/deppfellow/shortlink-edge/internal/kv"
)

// CachedResponse is a response captured for replay.
type CachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// ResponseCache stores responses keyed by absolute request URL.
type ResponseCache interface {
	// Match returns the cached response for key. Lookup failures are
	// reported as misses.
	Match(ctx context.Context, key string) (*CachedResponse, bool)

	Put(ctx context.Context, key string, res *CachedResponse, ttl time.Duration) error
}

// matchTimeout bounds a shared store read. The read is detached from the
// callers' contexts because any one of them may go away first.
const matchTimeout = 5 * time.Second

// KVResponseCache keeps responses in a kv.Store as JSON documents.
type KVResponseCache struct {
	store kv.Store
	group singleflight.Group
}

// NewKVResponseCache scopes store to the cache namespace.
func NewKVResponseCache(store kv.Store) *KVResponseCache {
	return &KVResponseCache{store: kv.Namespaced(store, kv.NamespaceCache)}
}

func (c *KVResponseCache) Match(ctx context.Context, key string) (*CachedResponse, bool) {
	// Concurrent lookups for one key share a single store read.
	ch := c.group.DoChan(key, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), matchTimeout)
		defer cancel()

		raw, err := c.store.Get(readCtx, key)
		if err != nil {
			return nil, err
		}

		var res CachedResponse
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decoding cached response: %w", err)
		}
		return &res, nil
	})

	var result singleflight.Result
	select {
	case result = <-ch:
	case <-ctx.Done():
		return nil, false
	}
	if result.Err != nil {
		return nil, false
	}

	// Callers may mutate the headers while replaying.
	shared := result.Val.(*CachedResponse)
	res := *shared
	res.Header = shared.Header.Clone()
	return &res, true
}

func (c *KVResponseCache) Put(ctx context.Context, key string, res *CachedResponse, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("edge: cache ttl must be positive")
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding cached response: %w", err)
	}
	return c.store.Put(ctx, key, raw, res.StoredAt.Add(ttl))
}

// maxAgeSeconds keeps max-age values inside time.Duration's range.
const maxAgeSeconds = int64(math.MaxInt64 / time.Second)

// cacheDirectives holds the Cache-Control directives relevant to storage.
type cacheDirectives struct {
	noStore bool
	private bool
	maxAge  time.Duration
	hasAge  bool
}

// parseCacheControl reads the directives of a response Cache-Control
// header. s-maxage wins over max-age.
func parseCacheControl(h http.Header) cacheDirectives {
	var d cacheDirectives
	var sMaxAge time.Duration
	hasSMaxAge := false

	for _, value := range h.Values("Cache-Control") {
		for _, part := range strings.Split(value, ",") {
			name, arg, _ := strings.Cut(strings.TrimSpace(part), "=")
			name = strings.ToLower(strings.TrimSpace(name))
			arg = strings.Trim(strings.TrimSpace(arg), `"`)

			switch name {
			case "no-store":
				d.noStore = true
			case "private":
				d.private = true
			case "max-age", "s-maxage":
				secs, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || secs < 0 {
					continue
				}
				secs = min(secs, maxAgeSeconds)
				if name == "s-maxage" {
					sMaxAge, hasSMaxAge = time.Duration(secs)*time.Second, true
				} else {
					d.maxAge, d.hasAge = time.Duration(secs)*time.Second, true
				}
			}
		}
	}

	if hasSMaxAge {
		d.maxAge, d.hasAge = sMaxAge, true
	}
	return d
}
