// Package repository implements the ledger store: durable, transaction-scoped
// storage for accounts, inventories, listings, achievements and the balance ledger.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"terminusa/internal/model"
)

// Store is the process-wide ledger store. Every read and write goes through a Tx.
type Store interface {
	// Begin opens a transaction.
	Begin(ctx context.Context) (Tx, error)
	// Migrate creates the schema and seeds the achievement catalog. Safe to rerun.
	Migrate(ctx context.Context) error
	// Close releases the underlying connection(s).
	Close() error
}

// Tx is an open transaction with typed accessors. Once Commit or Rollback has
// been called every accessor fails with model.ErrNoActiveTransaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// InsertAccount stores a new account. Returns model.ErrDuplicateHandle if the handle is taken.
	InsertAccount(ctx context.Context, account *model.Account) error
	// GetAccount reads an account and locks its row until the transaction ends.
	GetAccount(ctx context.Context, handle string) (*model.Account, error)
	// UpdateAccount writes level, balance and health.
	UpdateAccount(ctx context.Context, account *model.Account) error

	GetInventory(ctx context.Context, handle string) (model.Inventory, error)
	// SetItemQuantity upserts one entry; a quantity of zero deletes it.
	SetItemQuantity(ctx context.Context, handle, item string, quantity int64) error
	// ReplaceInventory deletes every entry of handle and reinserts inventory.
	ReplaceInventory(ctx context.Context, handle string, inventory model.Inventory) error

	InsertListing(ctx context.Context, listing *model.Listing) (int64, error)
	// GetListing reads a listing and locks its row until the transaction ends.
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	DeleteListing(ctx context.Context, id int64) error
	// ListListings returns every listing ordered by id, skipping excludeSeller's own when non-empty.
	ListListings(ctx context.Context, excludeSeller string) ([]model.Listing, error)
	ListListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error)

	ListAchievements(ctx context.Context) ([]model.Achievement, error)
	GetAchievement(ctx context.Context, id int) (*model.Achievement, error)
	// InsertUnlock records an unlock unless one exists. Reports whether a row was written.
	InsertUnlock(ctx context.Context, handle string, achievementID int, at time.Time) (bool, error)
	// ListUnlocks returns unlocked achievements ordered by unlock time, then id.
	ListUnlocks(ctx context.Context, handle string) ([]model.UnlockedAchievement, error)

	AppendEntry(ctx context.Context, entry *model.LedgerEntry) error
	// ListEntries returns the newest limit entries of handle, newest first.
	ListEntries(ctx context.Context, handle string, limit int) ([]model.LedgerEntry, error)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back when fn returns an error or panics; the rollback
// always happens before the error (or panic) reaches the caller.
func WithTx(ctx context.Context, store Store, fn func(tx Tx) error) (err error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			SafeRollback(ctx, tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		SafeRollback(ctx, tx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		SafeRollback(ctx, tx)
		if errors.Is(err, model.ErrStorageFailure) || errors.Is(err, model.ErrNoActiveTransaction) {
			return err
		}
		return model.NewStorageError("commit", err)
	}
	return nil
}

// SafeRollback rolls back a transaction and logs any error.
func SafeRollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, model.ErrNoActiveTransaction) {
		log.Error().Err(err).Msg("Failed to rollback transaction")
	}
}

// txState guards a transaction against use after Commit or Rollback.
type txState struct {
	done bool
}

func (s *txState) check() error {
	if s.done {
		return model.ErrNoActiveTransaction
	}
	return nil
}

// finish marks the transaction closed, returning ErrNoActiveTransaction if it already was.
func (s *txState) finish() error {
	if s.done {
		return model.ErrNoActiveTransaction
	}
	s.done = true
	return nil
}

// scanErr maps "no rows" to model.ErrNotFound and wraps anything else as a storage failure.
func scanErr(op string, err error, isNoRows func(error) bool) error {
	if isNoRows(err) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	return model.NewStorageError(op, err)
}
