package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"terminusa/internal/model"
	"terminusa/internal/pkg/lock"
	"terminusa/internal/repository"
)

// DefaultHistoryLimit bounds History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 20

// AccountService handles registration, authentication, balances and inventory.
type AccountService struct {
	base
	hasher         CredentialHasher
	initialBalance int64
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(store repository.Store, hasher CredentialHasher, initialBalance int64, opts ...Option) *AccountService {
	return &AccountService{
		base:           newBase(store, opts),
		hasher:         hasher,
		initialBalance: initialBalance,
	}
}

// Register creates an account with the default level and health, the initial
// balance and an empty inventory.
func (s *AccountService) Register(ctx context.Context, handle, credential string) (*model.Account, error) {
	if err := validateStruct(registration{Handle: handle, Credential: credential}); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(credential)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &model.Account{
		Handle:           handle,
		CredentialDigest: digest,
		Level:            model.DefaultLevel,
		Health:           model.MaxHealth,
		CreatedAt:        now,
		UpdatedAt:        now,
		Inventory:        model.Inventory{},
	}

	err = repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if err := tx.InsertAccount(ctx, account); err != nil {
			return err
		}
		if s.initialBalance > 0 {
			return adjustBalance(ctx, tx, account, s.initialBalance, model.EntryInitial, "initial grant", now)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register %q: %w", handle, err)
	}

	log.Info().Str("handle", handle).Int64("balance", account.Balance).Msg("Account registered")
	return account, nil
}

// Authenticate loads an account and checks its credential.
func (s *AccountService) Authenticate(ctx context.Context, handle, credential string) (*model.Account, error) {
	account, err := s.Load(ctx, handle)
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(account.CredentialDigest, credential); err != nil {
		log.Debug().Str("handle", handle).Msg("Credential rejected")
		return nil, err
	}
	return account, nil
}

// Load returns an account together with its inventory.
func (s *AccountService) Load(ctx context.Context, handle string) (*model.Account, error) {
	var account *model.Account
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		var err error
		account, err = loadAccount(ctx, tx, handle)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Credit adds amount to the balance.
func (s *AccountService) Credit(ctx context.Context, handle string, amount int64) (*model.Account, error) {
	return s.adjust(ctx, handle, amount, model.EntryCredit)
}

// Debit removes amount from the balance, failing with model.ErrInsufficientFunds
// rather than going negative.
func (s *AccountService) Debit(ctx context.Context, handle string, amount int64) (*model.Account, error) {
	return s.adjust(ctx, handle, amount, model.EntryDebit)
}

func (s *AccountService) adjust(ctx context.Context, handle string, amount int64, kind string) (*model.Account, error) {
	if err := validatePositive("amount", amount); err != nil {
		return nil, err
	}
	delta := amount
	if kind == model.EntryDebit {
		delta = -amount
	}

	var account *model.Account
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		a, err := tx.GetAccount(ctx, handle)
		if err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, a, delta, kind, kind, s.now()); err != nil {
			return err
		}
		account, err = loadAccount(ctx, tx, handle)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", kind, handle, err)
	}

	log.Debug().Str("handle", handle).Int64("amount", delta).Str("kind", kind).Msg("Balance adjusted")
	return account, nil
}

// AddItem increases the quantity of item held by handle.
func (s *AccountService) AddItem(ctx context.Context, handle, item string, qty int64) (*model.Account, error) {
	return s.changeItem(ctx, handle, item, qty, addItem)
}

// RemoveItem decreases the quantity of item held by handle. It fails with
// model.ErrInsufficientQuantity rather than going below zero; an entry that
// reaches zero is removed.
func (s *AccountService) RemoveItem(ctx context.Context, handle, item string, qty int64) (*model.Account, error) {
	return s.changeItem(ctx, handle, item, qty, removeItem)
}

type itemOp func(ctx context.Context, tx repository.Tx, handle, item string, qty int64) (int64, error)

func (s *AccountService) changeItem(ctx context.Context, handle, item string, qty int64, op itemOp) (*model.Account, error) {
	if err := validateStruct(itemRequest{Item: item, Quantity: qty}); err != nil {
		return nil, err
	}

	var account *model.Account
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		a, err := tx.GetAccount(ctx, handle)
		if err != nil {
			return err
		}
		if _, err := op(ctx, tx, handle, item, qty); err != nil {
			return err
		}
		a.UpdatedAt = s.now()
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		account, err = loadAccount(ctx, tx, handle)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change %s of %s: %w", item, handle, err)
	}
	return account, nil
}

// Save persists level, health and the full inventory of account in one
// transaction. The inventory is written as a snapshot: entries absent from
// account.Inventory are deleted. Balance is not written; it only moves
// through ledgered operations. Saving is refused with
// model.ErrEncounterInProgress while an encounter of the same handle runs,
// since the encounter settles health when it ends.
func (s *AccountService) Save(ctx context.Context, account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", model.ErrInvalidArgument)
	}
	if account.Level < 1 {
		return fmt.Errorf("%w: level %d", model.ErrInvalidArgument, account.Level)
	}
	if account.Health < 0 || account.Health > model.MaxHealth {
		return fmt.Errorf("%w: health %d", model.ErrInvalidArgument, account.Health)
	}
	for item, qty := range account.Inventory {
		if err := validateStruct(inventoryEntry{Item: item, Quantity: qty}); err != nil {
			return fmt.Errorf("inventory entry %q: %w", item, err)
		}
	}

	err := s.locks.TryWithLock(account.Handle, func() error {
		return repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
			stored, err := tx.GetAccount(ctx, account.Handle)
			if err != nil {
				return err
			}
			stored.Level = account.Level
			stored.Health = account.Health
			stored.UpdatedAt = s.now()
			if err := tx.UpdateAccount(ctx, stored); err != nil {
				return err
			}
			if err := tx.ReplaceInventory(ctx, account.Handle, account.Inventory); err != nil {
				return err
			}
			account.Balance = stored.Balance
			account.UpdatedAt = stored.UpdatedAt
			account.Inventory = account.Inventory.Clone()
			return nil
		})
	})
	if errors.Is(err, lock.ErrBusy) {
		return fmt.Errorf("failed to save %s: %w", account.Handle, model.ErrEncounterInProgress)
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", account.Handle, err)
	}
	return nil
}

// History returns the newest ledger entries of handle, newest first.
func (s *AccountService) History(ctx context.Context, handle string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var entries []model.LedgerEntry
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, handle); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListEntries(ctx, handle, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// loadAccount reads an account and attaches its inventory.
func loadAccount(ctx context.Context, tx repository.Tx, handle string) (*model.Account, error) {
	a, err := tx.GetAccount(ctx, handle)
	if err != nil {
		return nil, err
	}
	inv, err := tx.GetInventory(ctx, handle)
	if err != nil {
		return nil, err
	}
	a.Inventory = inv
	return a, nil
}
