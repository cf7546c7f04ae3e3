package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/config"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"assets", "sync"},
		{"user", "create"},
		{"purge"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("command %v not registered (err %v)", path, err)
		}
	}
}

func TestRootCommand_RejectsBadArgs(t *testing.T) {
	tests := [][]string{
		{"user", "create"},
		{"assets", "sync"},
		{"assets", "sync", "a", "b"},
		{"serve", "extra"},
	}

	for _, args := range tests {
		root := newRootCommand()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)

		if err := root.Execute(); err == nil {
			t.Errorf("Execute(%v) should fail argument validation", args)
		}
	}
}

func TestRequireSharedStore(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{config.DriverMemory, true},
		{config.DriverRedis, false},
		{config.DriverPostgres, false},
	}

	for _, tt := range tests {
		cfg := &config.Config{Store: config.StoreConfig{Driver: tt.driver}}
		err := requireSharedStore(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("requireSharedStore(%s) = %v, wantErr %v", tt.driver, err, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, errProcessLocalStore) {
			t.Errorf("requireSharedStore(%s) = %v, want errProcessLocalStore", tt.driver, err)
		}
	}
}

func TestWriteCommands_RejectMemoryStore(t *testing.T) {
	t.Setenv("SHORTLINK_PRIMARY__ENV", "test")
	t.Setenv("SHORTLINK_SERVER__PORT", "0")
	t.Setenv("SHORTLINK_STORE__DRIVER", config.DriverMemory)

	for _, args := range [][]string{
		{"user", "create", "ada"},
		{"assets", "sync", t.TempDir()},
		{"purge"},
	} {
		var out bytes.Buffer
		root := newRootCommand()
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetArgs(args)

		err := root.Execute()
		if !errors.Is(err, errProcessLocalStore) {
			t.Errorf("Execute(%v) = %v, want errProcessLocalStore", args, err)
		}
		if out.Len() != 0 {
			t.Errorf("Execute(%v) printed %q", args, out.String())
		}
	}
}

func TestPrepareServer_SeedsAssets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	rt := &deps{
		cfg: &config.Config{
			Primary:       config.Primary{Env: "test"},
			Server:        config.ServerConfig{Port: "0", ReadTimeout: 1, WriteTimeout: 1, IdleTimeout: 1},
			Store:         config.StoreConfig{Driver: config.DriverMemory},
			Cache:         config.DefaultCacheConfig(),
			Shortener:     config.DefaultShortenerConfig(),
			Observability: config.DefaultObservabilityConfig(),
		},
		logger: &logger,
	}

	srv, r, err := prepareServer(context.Background(), rt, dir)
	if err != nil {
		t.Fatalf("prepareServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://sho.rt/site.css", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Errorf("seeded asset = %d %q", rec.Code, rec.Body.String())
	}
	if err := srv.Dispatcher.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestPrepareServer_MissingAssetsDir(t *testing.T) {
	logger := zerolog.Nop()
	rt := &deps{
		cfg: &config.Config{
			Primary:       config.Primary{Env: "test"},
			Server:        config.ServerConfig{Port: "0", ReadTimeout: 1, WriteTimeout: 1, IdleTimeout: 1},
			Store:         config.StoreConfig{Driver: config.DriverMemory},
			Cache:         config.DefaultCacheConfig(),
			Shortener:     config.DefaultShortenerConfig(),
			Observability: config.DefaultObservabilityConfig(),
		},
		logger: &logger,
	}

	missing := filepath.Join(t.TempDir(), "nope")
	if _, _, err := prepareServer(context.Background(), rt, missing); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("prepareServer = %v, want an error naming the directory", err)
	}
}
