package handler

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/shortlink-edge/internal/edge"
	"github.com/deppfellow/shortlink-edge/internal/errs"
	"github.com/deppfellow/shortlink-edge/internal/middleware"
	"github.com/deppfellow/shortlink-edge/internal/model"
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/service"
)

const (
	createPath = "/new"
	indexFile  = "index.html"
	htmlType   = "text/html"
)

// ShortenerHandler is the module behind the edge dispatcher. It serves
// static assets, creates short links on POST /new and redirects every
// other GET to the link's target.
type ShortenerHandler struct {
	Handler
	shortener *service.ShortenerService
	assets    *service.AssetService

	create   echo.HandlerFunc
	redirect echo.HandlerFunc
}

var _ edge.Module = (*ShortenerHandler)(nil)

// webAssetTypes pins the types of the files a site ships so that asset
// detection does not depend on the host's mime.types.
var webAssetTypes = map[string]string{
	".avif":        "image/avif",
	".css":         "text/css; charset=utf-8",
	".csv":         "text/csv; charset=utf-8",
	".gif":         "image/gif",
	".htm":         "text/html; charset=utf-8",
	".html":        "text/html; charset=utf-8",
	".ico":         "image/x-icon",
	".jpeg":        "image/jpeg",
	".jpg":         "image/jpeg",
	".js":          "text/javascript; charset=utf-8",
	".json":        "application/json",
	".map":         "application/json",
	".mjs":         "text/javascript; charset=utf-8",
	".mp3":         "audio/mpeg",
	".mp4":         "video/mp4",
	".otf":         "font/otf",
	".pdf":         "application/pdf",
	".png":         "image/png",
	".svg":         "image/svg+xml",
	".ttf":         "font/ttf",
	".txt":         "text/plain; charset=utf-8",
	".wasm":        "application/wasm",
	".webm":        "video/webm",
	".webmanifest": "application/manifest+json",
	".webp":        "image/webp",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".xml":         "text/xml; charset=utf-8",
}

func init() {
	for ext, typ := range webAssetTypes {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			panic(err)
		}
	}
}

func NewShortenerHandler(s *server.Server, shortener *service.ShortenerService, assets *service.AssetService) *ShortenerHandler {
	h := &ShortenerHandler{
		Handler:   NewHandler(s),
		shortener: shortener,
		assets:    assets,
	}

	h.create = Handle(h.createShortURL, http.StatusOK, func() *model.NewShortURLRequest {
		return &model.NewShortURLRequest{}
	})
	h.redirect = HandleRedirect(h.resolve, http.StatusFound, func(c echo.Context) string {
		return strings.TrimLeft(c.Request().URL.Path, "/")
	})

	return h
}

// Cacheable reports whether u names a static asset other than an HTML page.
func (h *ShortenerHandler) Cacheable(u *url.URL) bool {
	contentType, ok := assetType(u.Path)
	return ok && contentType != htmlType
}

// Handle routes a request to the asset, create or redirect path.
func (h *ShortenerHandler) Handle(c echo.Context) error {
	p := c.Request().URL.Path
	if strings.HasSuffix(p, "/") {
		p += indexFile
	}

	if contentType, ok := assetType(p); ok {
		return h.serveAsset(c, p, contentType)
	}

	method := strings.ToUpper(c.Request().Method)
	if p == createPath {
		if method != http.MethodPost {
			return errs.NewMethodNotAllowedError()
		}
		return h.create(c)
	}

	if method == http.MethodGet {
		return h.redirect(c)
	}

	return errs.NewNotFoundError("Not Found", nil)
}

func (h *ShortenerHandler) serveAsset(c echo.Context, p, contentType string) error {
	body, err := h.assets.Get(c.Request().Context(), p)
	if err != nil {
		return err
	}

	if contentType != htmlType {
		maxAge := int64(h.server.Config.Shortener.AssetMaxAge / time.Second)
		c.Response().Header().Set(echo.HeaderCacheControl, "max-age="+strconv.FormatInt(maxAge, 10))
	}

	middleware.GetLogger(c).Debug().
		Str("asset", p).
		Str("content_type", contentType).
		Int("bytes", len(body)).
		Msg("serving asset")

	return c.Blob(http.StatusOK, contentType, body)
}

func (h *ShortenerHandler) createShortURL(c echo.Context, req *model.NewShortURLRequest) (*model.NewShortURLResponse, error) {
	host := edge.RequestURL(c).Hostname()
	return h.shortener.Create(c.Request().Context(), req, middleware.GetUser(c), host)
}

func (h *ShortenerHandler) resolve(c echo.Context, id string) (string, error) {
	return h.shortener.Resolve(c.Request().Context(), id)
}

// assetType returns the media type, without parameters, registered for
// the extension of p.
func assetType(p string) (string, bool) {
	ext := path.Ext(p)
	if ext == "" {
		return "", false
	}

	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return "", false
	}

	essence, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return "", false
	}
	return essence, true
}
