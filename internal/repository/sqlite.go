package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"terminusa/internal/model"
)

const sqliteSeed = `
	INSERT INTO achievements (achievement_id, name, description)
	VALUES (?, ?, ?)
	ON CONFLICT DO NOTHING
`

// SQLiteStore is the ledger store on an embedded SQLite file. The handle it
// wraps must be limited to a single connection (see db.OpenSQLite), which
// serializes all transactions.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open database handle. The store
// takes ownership of the handle and closes it in Close.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Begin opens a transaction on the single connection.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.NewStorageError("begin transaction", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// Migrate creates the schema and seeds the achievement catalog in one transaction.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	err := WithTx(ctx, s, func(tx Tx) error {
		stx := tx.(*sqliteTx)
		return migrate(ctx, func(ctx context.Context, query string, args ...any) error {
			if _, err := stx.tx.ExecContext(ctx, query, args...); err != nil {
				return model.NewStorageError("migrate", err)
			}
			return nil
		}, sqliteSchema, sqliteSeed)
	})
	if err != nil {
		return err
	}
	log.Info().Msg("SQLite schema is up to date")
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return model.NewStorageError("close", err)
	}
	log.Info().Msg("SQLite database closed")
	return nil
}

// sqliteTx implements Tx over database/sql.
type sqliteTx struct {
	tx *sql.Tx
	txState
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	if err := t.finish(); err != nil {
		return err
	}
	if err := t.tx.Commit(); err != nil {
		return model.NewStorageError("commit", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	if err := t.finish(); err != nil {
		return err
	}
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return model.NewStorageError("rollback", err)
	}
	return nil
}

func sqlNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}
