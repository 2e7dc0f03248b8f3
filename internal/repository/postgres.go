package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"terminusa/internal/model"
)

const postgresSeed = `
	INSERT INTO achievements (achievement_id, name, description)
	VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING
`

// PostgresStore is the ledger store on PostgreSQL. Transactions run at
// READ COMMITTED; row-locking reads use SELECT ... FOR UPDATE so concurrent
// writers to the same account or listing serialize.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing pool. The store takes
// ownership of the pool and closes it in Close.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Begin opens a READ COMMITTED transaction.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, model.NewStorageError("begin transaction", err)
	}
	return &pgTx{tx: tx}, nil
}

// Migrate creates the schema and seeds the achievement catalog in one transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := WithTx(ctx, s, func(tx Tx) error {
		ptx := tx.(*pgTx)
		return migrate(ctx, func(ctx context.Context, query string, args ...any) error {
			if _, err := ptx.tx.Exec(ctx, query, args...); err != nil {
				return model.NewStorageError("migrate", err)
			}
			return nil
		}, postgresSchema, postgresSeed)
	})
	if err != nil {
		return err
	}
	log.Info().Msg("PostgreSQL schema is up to date")
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
	return nil
}

// pgTx implements Tx over pgx.Tx.
type pgTx struct {
	tx pgx.Tx
	txState
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.finish(); err != nil {
		return err
	}
	if err := t.tx.Commit(ctx); err != nil {
		return model.NewStorageError("commit", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.finish(); err != nil {
		return err
	}
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return model.NewStorageError("rollback", err)
	}
	return nil
}

func pgNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
