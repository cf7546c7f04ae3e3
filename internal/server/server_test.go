package server

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/config"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Primary:       config.Primary{Env: "test"},
		Server:        config.ServerConfig{Port: "0", ReadTimeout: 1, WriteTimeout: 1, IdleTimeout: 1},
		Store:         config.StoreConfig{Driver: driver},
		Cache:         config.DefaultCacheConfig(),
		Shortener:     config.DefaultShortenerConfig(),
		Observability: config.DefaultObservabilityConfig(),
	}
}

func TestNew_MemoryStore(t *testing.T) {
	logger := zerolog.Nop()
	s, err := New(testConfig(config.DriverMemory), &logger, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if s.Store == nil {
		t.Fatal("store should be opened")
	}
	if s.Redis != nil || s.DB != nil || s.Job != nil {
		t.Error("memory driver should not open Redis, PostgreSQL or jobs")
	}

	ctx := context.Background()
	if err := s.Store.Put(ctx, "k", []byte("v"), time.Time{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Store.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	logger := zerolog.Nop()
	if _, err := New(testConfig("cassandra"), &logger, nil); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestStart_WithoutHTTPServer(t *testing.T) {
	logger := zerolog.Nop()
	s, err := New(testConfig(config.DriverMemory), &logger, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if err := s.Start(); err == nil {
		t.Error("Start before SetupHTTPServer should fail")
	}
}
