package kv

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.Now
	return s, clock
}

func TestMemoryStore_PutGet(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "a", []byte("1"), time.Time{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "1" {
		t.Errorf("Get = %q, want 1", got)
	}

	// Returned slices must not alias internal storage.
	got[0] = 'x'
	again, _ := s.Get(ctx, "a")
	if string(again) != "1" {
		t.Errorf("stored value was mutated through returned slice: %q", again)
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	s, _ := newTestMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "ttl", []byte("v"), clock.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if ok, _ := s.Exists(ctx, "ttl"); !ok {
		t.Fatal("key should exist before expiry")
	}

	clock.Advance(time.Minute)

	if _, err := s.Get(ctx, "ttl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after expiry", err)
	}
	if ok, _ := s.Exists(ctx, "ttl"); ok {
		t.Error("expired key should not exist")
	}
}

func TestMemoryStore_PutAlreadyExpired(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, "k", []byte("old"), time.Time{})
	if err := s.Put(ctx, "k", []byte("new"), clock.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("writing an already expired value should remove the key, err = %v", err)
	}
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, "keep", []byte("1"), time.Time{})
	_ = s.Put(ctx, "soon", []byte("2"), clock.Now().Add(time.Second))
	_ = s.Put(ctx, "later", []byte("3"), clock.Now().Add(time.Hour))

	clock.Advance(time.Minute)

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d keys, want 1", n)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, "k", []byte("v"), time.Time{})
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete should be idempotent: %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("key should be gone")
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"abc", false},
		{"links:3xYz", false},
		{"", true},
		{"a\nb", true},
		{strings.Repeat("k", MaxKeyLength+1), true},
	}

	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) should wrap ErrInvalidKey", tt.key)
		}
	}
}

func TestNamespaced(t *testing.T) {
	base, _ := newTestMemoryStore()
	ctx := context.Background()

	links := Namespaced(base, NamespaceLinks)
	users := Namespaced(base, NamespaceUsers)

	_ = links.Put(ctx, "abc", []byte("link"), time.Time{})
	_ = users.Put(ctx, "abc", []byte("user"), time.Time{})

	got, err := links.Get(ctx, "abc")
	if err != nil || string(got) != "link" {
		t.Errorf("links.Get = %q, %v", got, err)
	}
	got, err = users.Get(ctx, "abc")
	if err != nil || string(got) != "user" {
		t.Errorf("users.Get = %q, %v", got, err)
	}

	raw, err := base.Get(ctx, "links:abc")
	if err != nil || string(raw) != "link" {
		t.Errorf("base key should carry prefix, got %q, %v", raw, err)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = s.Put(ctx, key, []byte{byte(i)}, time.Now().Add(time.Minute))
			_, _ = s.Get(ctx, key)
			_, _ = s.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	if s.Len() != 26 {
		t.Errorf("Len = %d, want 26", s.Len())
	}
}
