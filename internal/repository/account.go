package repository

import (
	"context"
	"fmt"

	"terminusa/internal/model"
)

// ========== PostgreSQL ==========

// InsertAccount stores a new account. The handle's uniqueness is enforced by
// the primary key; a conflicting insert writes nothing.
func (t *pgTx) InsertAccount(ctx context.Context, a *model.Account) error {
	if err := t.check(); err != nil {
		return err
	}
	const query = `
		INSERT INTO accounts (handle, credential_digest, level, balance, health, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (handle) DO NOTHING
	`
	tag, err := t.tx.Exec(ctx, query, a.Handle, a.CredentialDigest, a.Level, a.Balance, a.Health, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return model.NewStorageError("insert account", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%q: %w", a.Handle, model.ErrDuplicateHandle)
	}
	return nil
}

// GetAccount reads an account and holds its row lock until the transaction ends.
func (t *pgTx) GetAccount(ctx context.Context, handle string) (*model.Account, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT handle, credential_digest, level, balance, health, created_at, updated_at
		FROM accounts
		WHERE handle = $1
		FOR UPDATE
	`
	var a model.Account
	err := t.tx.QueryRow(ctx, query, handle).Scan(
		&a.Handle,
		&a.CredentialDigest,
		&a.Level,
		&a.Balance,
		&a.Health,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, scanErr("get account "+handle, err, pgNoRows)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (t *pgTx) UpdateAccount(ctx context.Context, a *model.Account) error {
	if err := t.check(); err != nil {
		return err
	}
	const query = `
		UPDATE accounts
		SET level = $2, balance = $3, health = $4, updated_at = $5
		WHERE handle = $1
	`
	tag, err := t.tx.Exec(ctx, query, a.Handle, a.Level, a.Balance, a.Health, a.UpdatedAt)
	if err != nil {
		return model.NewStorageError("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %q: %w", a.Handle, model.ErrNotFound)
	}
	return nil
}

// ========== SQLite ==========

func (t *sqliteTx) InsertAccount(ctx context.Context, a *model.Account) error {
	if err := t.check(); err != nil {
		return err
	}
	const query = `
		INSERT INTO accounts (handle, credential_digest, level, balance, health, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (handle) DO NOTHING
	`
	res, err := t.tx.ExecContext(ctx, query, a.Handle, a.CredentialDigest, a.Level, a.Balance, a.Health,
		toMicros(a.CreatedAt), toMicros(a.UpdatedAt))
	if err != nil {
		return model.NewStorageError("insert account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.NewStorageError("insert account", err)
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", a.Handle, model.ErrDuplicateHandle)
	}
	return nil
}

// GetAccount reads an account. The single connection already excludes other
// writers, so no explicit row lock is taken.
func (t *sqliteTx) GetAccount(ctx context.Context, handle string) (*model.Account, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT handle, credential_digest, level, balance, health, created_at, updated_at
		FROM accounts
		WHERE handle = ?
	`
	var (
		a                model.Account
		created, updated int64
	)
	err := t.tx.QueryRowContext(ctx, query, handle).Scan(
		&a.Handle,
		&a.CredentialDigest,
		&a.Level,
		&a.Balance,
		&a.Health,
		&created,
		&updated,
	)
	if err != nil {
		return nil, scanErr("get account "+handle, err, sqlNoRows)
	}
	a.CreatedAt = fromMicros(created)
	a.UpdatedAt = fromMicros(updated)
	return &a, nil
}

func (t *sqliteTx) UpdateAccount(ctx context.Context, a *model.Account) error {
	if err := t.check(); err != nil {
		return err
	}
	const query = `
		UPDATE accounts
		SET level = ?, balance = ?, health = ?, updated_at = ?
		WHERE handle = ?
	`
	res, err := t.tx.ExecContext(ctx, query, a.Level, a.Balance, a.Health, toMicros(a.UpdatedAt), a.Handle)
	if err != nil {
		return model.NewStorageError("update account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.NewStorageError("update account", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", a.Handle, model.ErrNotFound)
	}
	return nil
}
