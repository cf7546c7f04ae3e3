package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/config"
	"github.com/deppfellow/shortlink-edge/internal/errs"
	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/middleware"
	"github.com/deppfellow/shortlink-edge/internal/model"
	"github.com/deppfellow/shortlink-edge/internal/repository"
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/service"
)

type testApp struct {
	server   *server.Server
	repos    *repository.Repositories
	handlers *Handlers
	errors   echo.HTTPErrorHandler
}

func newTestApp(t *testing.T, store kv.Store) *testApp {
	t.Helper()

	logger := zerolog.Nop()
	s := &server.Server{
		Config: &config.Config{
			Primary:       config.Primary{Env: "test"},
			Store:         config.StoreConfig{Driver: config.DriverMemory},
			Shortener:     config.DefaultShortenerConfig(),
			Observability: config.DefaultObservabilityConfig(),
		},
		Logger: &logger,
		Store:  store,
	}

	repos := repository.NewRepositoriesWithStore(store)
	services, err := service.NewService(s, repos)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return &testApp{
		server:   s,
		repos:    repos,
		handlers: NewHandlers(s, services),
		errors:   middleware.NewGlobalMiddlewares(s).GlobalErrorHandler,
	}
}

// do runs req through the shortener module. user, when set, is attached
// the way IdentifyUser would.
func (a *testApp) do(req *http.Request, user *model.User) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.UserKey, user)
		c.Set(middleware.UserIDKey, user.Username)
	}

	if err := a.handlers.Shortener.Handle(c); err != nil {
		a.errors(err, c)
	}
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()

	var body errs.HTTPError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func newLinkRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "http://sho.rt:8080/new", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestShortenerHandler_Cacheable(t *testing.T) {
	h := newTestApp(t, kv.NewMemoryStore()).handlers.Shortener

	tests := []struct {
		path string
		want bool
	}{
		{"/app.css", true},
		{"/static/logo.png", true},
		{"/main.js", true},
		{"/index.html", false},
		{"/", false},
		{"/10wBU", false},
		{"/new", false},
		{"/archive.notatype", false},
		{"/favicon.ico", true},
		{"/robots.txt", true},
		{"/fonts/inter.woff2", true},
		{"/site.webmanifest", true},
	}

	for _, tt := range tests {
		u := &url.URL{Scheme: "https", Host: "sho.rt", Path: tt.path}
		if got := h.Cacheable(u); got != tt.want {
			t.Errorf("Cacheable(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestShortenerHandler_CreateAndRedirect(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())

	rec := app.do(newLinkRequest(`{"url":"https://example.com/a?b=c","ttl":3600}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var res model.NewShortURLResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.RawURL != "https://example.com/a?b=c" {
		t.Errorf("raw_url = %q", res.RawURL)
	}
	id, ok := strings.CutPrefix(res.ShortURL, "sho.rt/")
	if !ok || id == "" {
		t.Fatalf("short_url = %q, want host without port and an id", res.ShortURL)
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "http://sho.rt/"+id, nil), nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("redirect status = %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderLocation); got != "https://example.com/a?b=c" {
		t.Errorf("Location = %q", got)
	}
}

func TestShortenerHandler_CreateRules(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())
	user := &model.User{Username: "ada", APIKey: "k"}

	tests := []struct {
		name       string
		body       string
		user       *model.User
		wantStatus int
		wantCode   int
	}{
		{"anonymous permanent", `{"url":"https://example.com"}`, nil, http.StatusUnauthorized, errs.CodeNeedAuth},
		{"anonymous beyond guest max", `{"url":"https://example.com","ttl":604801}`, nil, http.StatusUnauthorized, errs.CodeNeedAuth},
		{"ttl too short", `{"url":"https://example.com","ttl":59}`, nil, http.StatusBadRequest, errs.CodeTTLTooShort},
		{"relative url", `{"url":"/just/a/path","ttl":3600}`, nil, http.StatusBadRequest, errs.CodeInvalidTargetURL},
		{"missing url", `{"ttl":3600}`, nil, http.StatusBadRequest, errs.CodeInvalidBody},
		{"malformed json", `{"url":`, nil, http.StatusBadRequest, errs.CodeInvalidBody},
		{"trailing bytes", `{"url":"https://example.com","ttl":3600}xyz`, nil, http.StatusBadRequest, errs.CodeInvalidBody},
		{"authenticated permanent", `{"url":"https://example.com"}`, user, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newLinkRequest(tt.body), tt.user)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != 0 {
				if got := decodeError(t, rec).ErrorCode; got != tt.wantCode {
					t.Errorf("error_code = %d, want %d", got, tt.wantCode)
				}
			}
		})
	}
}

func TestShortenerHandler_CreateStoresUsername(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())

	rec := app.do(newLinkRequest(`{"url":"https://example.com"}`), &model.User{Username: "ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var res model.NewShortURLResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	id := strings.TrimPrefix(res.ShortURL, "sho.rt/")

	link, err := app.repos.Links.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Links.Get: %v", err)
	}
	if link.Username != "ada" || !link.Permanent() {
		t.Errorf("stored link = %+v", link)
	}
}

func TestShortenerHandler_Routing(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantCode   int
	}{
		{"get on create path", http.MethodGet, "/new", http.StatusUnsupportedMediaType, errs.CodeMethodNotAllowed},
		{"put on create path", http.MethodPut, "/new", http.StatusUnsupportedMediaType, errs.CodeMethodNotAllowed},
		{"unknown id", http.MethodGet, "/zzzzzz", http.StatusNotFound, errs.CodeNotFound},
		{"delete on id", http.MethodDelete, "/zzzzzz", http.StatusNotFound, errs.CodeNotFound},
		{"missing asset", http.MethodGet, "/missing.js", http.StatusNotFound, errs.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httptest.NewRequest(tt.method, "http://sho.rt"+tt.target, nil), nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec).ErrorCode; got != tt.wantCode {
				t.Errorf("error_code = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestShortenerHandler_Assets(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())
	ctx := context.Background()

	_ = app.repos.Assets.Put(ctx, "/index.html", []byte("<h1>hi</h1>"))
	_ = app.repos.Assets.Put(ctx, "/css/site.css", []byte("body{}"))

	rec := app.do(httptest.NewRequest(http.MethodGet, "http://sho.rt/css/site.css", nil), nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Fatalf("css response = %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "text/css" {
		t.Errorf("Content-Type = %q, want text/css", got)
	}
	if got := rec.Header().Get(echo.HeaderCacheControl); got != "max-age=14400" {
		t.Errorf("Cache-Control = %q, want max-age=14400", got)
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "http://sho.rt/", nil), nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>hi</h1>" {
		t.Fatalf("index response = %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", got)
	}
	if got := rec.Header().Get(echo.HeaderCacheControl); got != "" {
		t.Errorf("html should not carry Cache-Control, got %q", got)
	}
}

type unhealthyStore struct {
	*kv.MemoryStore
}

func (unhealthyStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func checkHealth(t *testing.T, app *testApp) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/_health", nil), rec)
	if err := app.handlers.Health.CheckHealth(c); err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}

	var body map[string]any
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, body
}

func TestHealthHandler(t *testing.T) {
	rec, body := checkHealth(t, newTestApp(t, kv.NewMemoryStore()))
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("healthy store: %d %v", rec.Code, body)
	}
	checks := body["checks"].(map[string]any)
	if store, ok := checks["store"].(map[string]any); !ok || store["status"] != "healthy" {
		t.Errorf("store check = %v", checks["store"])
	}

	rec, body = checkHealth(t, newTestApp(t, unhealthyStore{kv.NewMemoryStore()}))
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Fatalf("failing store: %d %v", rec.Code, body)
	}
}

func TestHealthHandler_ChecksDisabled(t *testing.T) {
	app := newTestApp(t, unhealthyStore{kv.NewMemoryStore()})
	app.server.Config.Observability.HealthChecks.Enabled = false

	rec, body := checkHealth(t, app)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if checks := body["checks"].(map[string]any); len(checks) != 0 {
		t.Errorf("checks = %v, want none", checks)
	}
}

func TestAssetType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/favicon.ico", "image/x-icon"},
		{"/robots.txt", "text/plain"},
		{"/fonts/inter.woff2", "font/woff2"},
		{"/fonts/inter.woff", "font/woff"},
		{"/app.JS", "text/javascript"},
		{"/index.html", htmlType},
	}

	for _, tt := range tests {
		got, ok := assetType(tt.path)
		if !ok || got != tt.want {
			t.Errorf("assetType(%q) = %q, %v; want %q", tt.path, got, ok, tt.want)
		}
	}
}

func TestShortenerHandler_FaviconAndRobots(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())
	ctx := context.Background()

	_ = app.repos.Assets.Put(ctx, "/favicon.ico", []byte{0, 0, 1, 0})
	_ = app.repos.Assets.Put(ctx, "/robots.txt", []byte("User-agent: *"))

	rec := app.do(httptest.NewRequest(http.MethodGet, "http://sho.rt/favicon.ico", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("favicon status = %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "image/x-icon" {
		t.Errorf("favicon Content-Type = %q", got)
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "http://sho.rt/robots.txt", nil), nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "User-agent: *" {
		t.Fatalf("robots response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestShortenerHandler_OverlongAssetPathIsNotFound(t *testing.T) {
	app := newTestApp(t, kv.NewMemoryStore())

	target := "http://sho.rt/" + strings.Repeat("a", kv.MaxKeyLength) + ".css"
	rec := app.do(httptest.NewRequest(http.MethodGet, target, nil), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", rec.Code, rec.Body.String())
	}
	if got := decodeError(t, rec).ErrorCode; got != errs.CodeNotFound {
		t.Errorf("error_code = %d", got)
	}
}
