// Package service implements the economy operations. Every exported
// operation runs as exactly one ledger store transaction.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"terminusa/internal/model"
	"terminusa/internal/pkg/lock"
	"terminusa/internal/repository"
)

// Clock returns the current time. Values are truncated to microseconds so
// they survive a round trip through either backend unchanged.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Option configures a service.
type Option func(*base)

// WithClock overrides the service clock.
func WithClock(c Clock) Option {
	return func(b *base) { b.now = c }
}

// WithHandleLock shares the per-handle lock that keeps an encounter and a
// Save of the same account apart. Services built without it get a private lock.
func WithHandleLock(l *lock.HandleLock) Option {
	return func(b *base) { b.locks = l }
}

// base holds what every service shares.
type base struct {
	store repository.Store
	now   Clock
	locks *lock.HandleLock
}

func newBase(store repository.Store, opts []Option) base {
	b := base{store: store, now: SystemClock}
	for _, opt := range opts {
		opt(&b)
	}
	if b.locks == nil {
		b.locks = lock.NewHandleLock()
	}
	return b
}

// lockAccounts reads and row-locks the given accounts in handle order so
// concurrent multi-account transactions cannot deadlock.
func lockAccounts(ctx context.Context, tx repository.Tx, handles ...string) (map[string]*model.Account, error) {
	sorted := append([]string(nil), handles...)
	sort.Strings(sorted)

	out := make(map[string]*model.Account, len(sorted))
	for _, h := range sorted {
		if _, ok := out[h]; ok {
			continue
		}
		a, err := tx.GetAccount(ctx, h)
		if err != nil {
			return nil, err
		}
		out[h] = a
	}
	return out, nil
}

// adjustBalance applies delta to account, persists it and appends the matching
// ledger entry. A debit past zero fails with model.ErrInsufficientFunds.
func adjustBalance(ctx context.Context, tx repository.Tx, a *model.Account, delta int64, kind, desc string, at time.Time) error {
	if delta < 0 && a.Balance < -delta {
		return fmt.Errorf("%s needs %d, has %d: %w", a.Handle, -delta, a.Balance, model.ErrInsufficientFunds)
	}
	if delta > 0 && a.Balance > math.MaxInt64-delta {
		return fmt.Errorf("%w: balance overflow for %s", model.ErrInvalidArgument, a.Handle)
	}

	a.Balance += delta
	a.UpdatedAt = at
	if err := tx.UpdateAccount(ctx, a); err != nil {
		return err
	}
	return tx.AppendEntry(ctx, &model.LedgerEntry{
		Handle:      a.Handle,
		Amount:      delta,
		Kind:        kind,
		Description: desc,
		CreatedAt:   at,
	})
}

// addItem increments one inventory entry.
func addItem(ctx context.Context, tx repository.Tx, handle, item string, qty int64) (int64, error) {
	inv, err := tx.GetInventory(ctx, handle)
	if err != nil {
		return 0, err
	}
	held := inv.Quantity(item)
	if held > math.MaxInt64-qty {
		return 0, fmt.Errorf("%w: quantity overflow for %s", model.ErrInvalidArgument, item)
	}
	if err := tx.SetItemQuantity(ctx, handle, item, held+qty); err != nil {
		return 0, err
	}
	return held + qty, nil
}

// removeItem decrements one inventory entry, deleting it at zero.
func removeItem(ctx context.Context, tx repository.Tx, handle, item string, qty int64) (int64, error) {
	inv, err := tx.GetInventory(ctx, handle)
	if err != nil {
		return 0, err
	}
	held := inv.Quantity(item)
	if held < qty {
		return 0, fmt.Errorf("%s holds %d %s, needs %d: %w", handle, held, item, qty, model.ErrInsufficientQuantity)
	}
	if err := tx.SetItemQuantity(ctx, handle, item, held-qty); err != nil {
		return 0, err
	}
	return held - qty, nil
}
