package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxConn is the subset of *pgxpool.Pool the Postgres store needs.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore keeps values in the kv_entries table.
//
// Postgres has no native TTL, so reads filter expired rows and
// PurgeExpired deletes them.
type PostgresStore struct {
	conn PgxConn
}

// NewPostgresStore wraps a pool whose schema was migrated by database.Migrate.
func NewPostgresStore(conn PgxConn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

const (
	pgGet = `SELECT value FROM kv_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	pgPut = `INSERT INTO kv_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`

	pgDelete = `DELETE FROM kv_entries WHERE key = $1`

	pgExists = `SELECT EXISTS (SELECT 1 FROM kv_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now()))`

	pgPurge = `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= now()`
)

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := p.conn.QueryRow(ctx, pgGet, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: postgres get %q: %w", LogKey(key), err)
	}
	return value, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, value []byte, expireAt time.Time) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	var expires *time.Time
	if !expireAt.IsZero() {
		t := expireAt.UTC()
		expires = &t
	}

	if _, err := p.conn.Exec(ctx, pgPut, key, value, expires); err != nil {
		return fmt.Errorf("kv: postgres put %q: %w", LogKey(key), err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.conn.Exec(ctx, pgDelete, key); err != nil {
		return fmt.Errorf("kv: postgres delete %q: %w", LogKey(key), err)
	}
	return nil
}

func (p *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	if err := p.conn.QueryRow(ctx, pgExists, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("kv: postgres exists %q: %w", LogKey(key), err)
	}
	return exists, nil
}

func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := p.conn.Exec(ctx, pgPurge)
	if err != nil {
		return 0, fmt.Errorf("kv: postgres purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.conn.Ping(ctx)
}
