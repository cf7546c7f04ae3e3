package edge

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/config"
)

const (
	// HeaderCacheStatus reports whether a response came from the cache.
	HeaderCacheStatus = "X-Cache"

	defaultWriteTimeout = 5 * time.Second
)

// Headers that describe one particular exchange and must not be replayed.
var unstorableHeaders = []string{
	"Age",
	"Connection",
	"Keep-Alive",
	"Set-Cookie",
	"Transfer-Encoding",
	"Upgrade",
	"X-Request-Id",
	HeaderCacheStatus,
}

// Dispatcher routes every request to a Module through the response cache.
type Dispatcher struct {
	module Module
	cache  ResponseCache
	cfg    config.CacheConfig
	logger *zerolog.Logger

	pending sync.WaitGroup
	now     func() time.Time
}

// NewDispatcher builds a dispatcher for module. A nil cache, or a config
// with Disabled set, sends every request straight to the module.
func NewDispatcher(module Module, cache ResponseCache, cfg config.CacheConfig, logger *zerolog.Logger) *Dispatcher {
	if cfg.Disabled {
		cache = nil
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	return &Dispatcher{
		module: module,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Serve is the echo handler for every dispatched route.
func (d *Dispatcher) Serve(c echo.Context) error {
	req := c.Request()
	u := RequestURL(c)

	cacheable := d.cache != nil &&
		(req.Method == http.MethodGet || req.Method == http.MethodHead) &&
		d.module.Cacheable(u)
	if !cacheable {
		return d.module.Handle(c)
	}

	key := u.String()
	txn := newrelic.FromContext(req.Context())

	if res, ok := d.cache.Match(req.Context(), key); ok {
		if txn != nil {
			txn.AddAttribute("cache.status", "hit")
		}
		return d.replay(c, res)
	}

	if txn != nil {
		txn.AddAttribute("cache.status", "miss")
	}

	res := c.Response()
	res.Header().Set(HeaderCacheStatus, "MISS")
	// Headers already set here belong to the middleware chain of this
	// request (CORS, security headers) and are not part of the entry.
	before := res.Header().Clone()

	rec := newRecorder(res.Writer, d.cfg.MaxBodyBytes)
	res.Writer = rec
	err := d.module.Handle(c)
	res.Writer = rec.ResponseWriter

	if err != nil {
		return err
	}

	// HEAD responses carry no body and would poison the GET entry.
	if req.Method == http.MethodGet {
		d.store(req.Context(), key, rec, res.Header(), before)
	}
	return nil
}

// replay writes a cached response. Headers the current middleware chain
// already set win over cached ones.
func (d *Dispatcher) replay(c echo.Context, cached *CachedResponse) error {
	h := c.Response().Header()
	for name, values := range cached.Header {
		if _, set := h[name]; set {
			continue
		}
		h[name] = slices.Clone(values)
	}

	age := int64(d.now().Sub(cached.StoredAt) / time.Second)
	h.Set("Age", strconv.FormatInt(max(age, 0), 10))
	h.Set(HeaderCacheStatus, "HIT")

	if c.Request().Method == http.MethodHead {
		return c.NoContent(cached.Status)
	}

	c.Response().WriteHeader(cached.Status)
	_, err := c.Response().Write(cached.Body)
	return err
}

// store writes a recorded response to the cache in the background when
// it qualifies for caching. Only the headers the module added on top of
// before are kept.
func (d *Dispatcher) store(ctx context.Context, key string, rec *recorder, header, before http.Header) {
	logger := requestLogger(ctx, d.logger)

	if rec.Status() != http.StatusOK || rec.oversized || header.Get("Set-Cookie") != "" {
		return
	}

	cc := parseCacheControl(header)
	if cc.noStore || cc.private {
		return
	}

	ttl := d.cfg.DefaultTTL
	if cc.hasAge {
		ttl = cc.maxAge
	}
	if ttl <= 0 {
		return
	}

	stored := addedHeaders(before, header)
	for _, name := range unstorableHeaders {
		stored.Del(name)
	}

	res := &CachedResponse{
		Status:   rec.Status(),
		Header:   stored,
		Body:     rec.Body(),
		StoredAt: d.now(),
	}

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
		defer cancel()

		if err := d.cache.Put(ctx, key, res, ttl); err != nil {
			logger.Warn().Err(err).Str("cache_key", key).Msg("failed to store response in cache")
			return
		}
		logger.Debug().Str("cache_key", key).Dur("ttl", ttl).Msg("response cached")
	}()
}

// addedHeaders returns the values in after that are not in before. Values
// appended to a header that was already set keep only the appended tail.
func addedHeaders(before, after http.Header) http.Header {
	added := make(http.Header, len(after))
	for name, values := range after {
		prev := before[name]
		switch {
		case len(prev) == 0:
			added[name] = slices.Clone(values)
		case len(values) > len(prev) && slices.Equal(values[:len(prev)], prev):
			added[name] = slices.Clone(values[len(prev):])
		case !slices.Equal(values, prev):
			added[name] = slices.Clone(values)
		}
	}
	return added
}

// Wait blocks until background cache writes finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestURL rebuilds the absolute URL of the request.
func RequestURL(c echo.Context) *url.URL {
	req := c.Request()
	return &url.URL{
		Scheme:   c.Scheme(),
		Host:     req.Host,
		Path:     req.URL.Path,
		RawPath:  req.URL.RawPath,
		RawQuery: req.URL.RawQuery,
	}
}

// requestLogger prefers the request-scoped logger carried by ctx.
func requestLogger(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if fallback == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return fallback
}
