package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/model"
)

func TestLinkRepository(t *testing.T) {
	store := kv.NewMemoryStore()
	repos := NewRepositoriesWithStore(store)
	ctx := context.Background()

	link := &model.ShortURL{
		RawURL:     "https://example.com",
		Username:   "ada",
		InsertTime: time.Now().UnixMilli(),
		ExpireTime: time.Now().Add(time.Hour).UnixMilli(),
	}
	if err := repos.Links.Create(ctx, "10wBU", link); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repos.Links.Exists(ctx, "10wBU")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	got, err := repos.Links.Get(ctx, "10wBU")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != *link {
		t.Errorf("Get = %+v, want %+v", got, link)
	}

	raw, err := store.Get(ctx, kv.NamespaceLinks+"10wBU")
	if err != nil {
		t.Fatalf("raw Get: %v", err)
	}
	want := `{"raw_url":"https://example.com","username":"ada","insert_time":` +
		itoa(link.InsertTime) + `,"expire_time":` + itoa(link.ExpireTime) + `}`
	if string(raw) != want {
		t.Errorf("stored document = %s, want %s", raw, want)
	}
}

func TestLinkRepository_ExpiredLinkIsGone(t *testing.T) {
	repos := NewRepositoriesWithStore(kv.NewMemoryStore())
	ctx := context.Background()

	link := &model.ShortURL{RawURL: "https://example.com", ExpireTime: time.Now().Add(-time.Second).UnixMilli()}
	if err := repos.Links.Create(ctx, "old", link); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repos.Links.Get(ctx, "old"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLinkRepository_Corrupt(t *testing.T) {
	store := kv.NewMemoryStore()
	repos := NewRepositoriesWithStore(store)
	ctx := context.Background()

	_ = store.Put(ctx, kv.NamespaceLinks+"bad", []byte("not json"), time.Time{})

	if _, err := repos.Links.Get(ctx, "bad"); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestUserRepository(t *testing.T) {
	repos := NewRepositoriesWithStore(kv.NewMemoryStore())
	ctx := context.Background()

	user := &model.User{Username: "ada", APIKey: "secret"}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repos.Users.GetByAPIKey(ctx, "secret")
	if err != nil {
		t.Fatalf("GetByAPIKey: %v", err)
	}
	if *got != *user {
		t.Errorf("GetByAPIKey = %+v", got)
	}

	if _, err := repos.Users.GetByAPIKey(ctx, "other"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("unknown key err = %v", err)
	}
}

func TestAssetRepository(t *testing.T) {
	repos := NewRepositoriesWithStore(kv.NewMemoryStore())
	ctx := context.Background()

	if err := repos.Assets.Put(ctx, "/index.html", []byte("<p>")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	body, err := repos.Assets.Get(ctx, "/index.html")
	if err != nil || string(body) != "<p>" {
		t.Errorf("Get = %q, %v", body, err)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
