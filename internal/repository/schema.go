package repository

import (
	"context"

	"terminusa/internal/model"
)

// postgresSchema creates the ledger tables on PostgreSQL.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		handle TEXT PRIMARY KEY,
		credential_digest TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		balance BIGINT NOT NULL DEFAULT 100 CHECK (balance >= 0),
		health INTEGER NOT NULL DEFAULT 100 CHECK (health BETWEEN 0 AND 100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		handle TEXT NOT NULL REFERENCES accounts(handle),
		item_name TEXT NOT NULL,
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (handle, item_name)
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		listing_id BIGSERIAL PRIMARY KEY,
		seller TEXT NOT NULL REFERENCES accounts(handle),
		item_name TEXT NOT NULL,
		unit_price BIGINT NOT NULL CHECK (unit_price > 0),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		listed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		achievement_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS achievement_unlocks (
		handle TEXT NOT NULL REFERENCES accounts(handle),
		achievement_id INTEGER NOT NULL REFERENCES achievements(achievement_id),
		unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (handle, achievement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_id BIGSERIAL PRIMARY KEY,
		handle TEXT NOT NULL REFERENCES accounts(handle),
		amount BIGINT NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_handle ON ledger_entries(handle, entry_id DESC)`,
}

// sqliteSchema mirrors postgresSchema. Timestamps are stored as unix microseconds.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		handle TEXT PRIMARY KEY,
		credential_digest TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		balance INTEGER NOT NULL DEFAULT 100 CHECK (balance >= 0),
		health INTEGER NOT NULL DEFAULT 100 CHECK (health BETWEEN 0 AND 100),
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		handle TEXT NOT NULL REFERENCES accounts(handle),
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (handle, item_name)
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		listing_id INTEGER PRIMARY KEY AUTOINCREMENT,
		seller TEXT NOT NULL REFERENCES accounts(handle),
		item_name TEXT NOT NULL,
		unit_price INTEGER NOT NULL CHECK (unit_price > 0),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		listed_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		achievement_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS achievement_unlocks (
		handle TEXT NOT NULL REFERENCES accounts(handle),
		achievement_id INTEGER NOT NULL REFERENCES achievements(achievement_id),
		unlocked_at INTEGER NOT NULL,
		PRIMARY KEY (handle, achievement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT NOT NULL REFERENCES accounts(handle),
		amount INTEGER NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_handle ON ledger_entries(handle, entry_id DESC)`,
}

// execer is the subset of a driver transaction migrate needs.
type execer func(ctx context.Context, query string, args ...any) error

// migrate applies schema and the achievement seed through exec.
// The seed uses insert-or-ignore semantics so reruns neither fail nor duplicate.
func migrate(ctx context.Context, exec execer, schema []string, seed string) error {
	for _, stmt := range schema {
		if err := exec(ctx, stmt); err != nil {
			return err
		}
	}
	for _, a := range model.AchievementCatalog() {
		if err := exec(ctx, seed, a.ID, a.Name, a.Description); err != nil {
			return err
		}
	}
	return nil
}
