package repository

import (
	"context"

	"terminusa/internal/model"
)

// ========== PostgreSQL ==========

// AppendEntry records a balance change and fills in the generated entry id.
func (t *pgTx) AppendEntry(ctx context.Context, e *model.LedgerEntry) error {
	if err := t.check(); err != nil {
		return err
	}
	const query = `
		INSERT INTO ledger_entries (handle, amount, kind, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING entry_id
	`
	if err := t.tx.QueryRow(ctx, query, e.Handle, e.Amount, e.Kind, e.Description, e.CreatedAt).Scan(&e.ID); err != nil {
		return model.NewStorageError("append ledger entry", err)
	}
	return nil
}

// ListEntries retrieves the newest entries of a handle, newest first.
func (t *pgTx) ListEntries(ctx context.Context, handle string, limit int) ([]model.LedgerEntry, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT entry_id, handle, amount, kind, description, created_at
		FROM ledger_entries
		WHERE handle = $1
		ORDER BY entry_id DESC
		LIMIT $2
	`
	rows, err := t.tx.Query(ctx, query, handle, limit)
	if err != nil {
		return nil, model.NewStorageError("list ledger entries", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Handle, &e.Amount, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, model.NewStorageError("scan ledger entry", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate ledger entries", err)
	}
	return entries, nil
}

// ========== SQLite ==========

func (t *sqliteTx) AppendEntry(ctx context.Context, e *model.LedgerEntry) error {
	if err := t.check(); err != nil {
		return err
	}
	const query = `
		INSERT INTO ledger_entries (handle, amount, kind, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := t.tx.ExecContext(ctx, query, e.Handle, e.Amount, e.Kind, e.Description, toMicros(e.CreatedAt))
	if err != nil {
		return model.NewStorageError("append ledger entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.NewStorageError("append ledger entry", err)
	}
	e.ID = id
	return nil
}

func (t *sqliteTx) ListEntries(ctx context.Context, handle string, limit int) ([]model.LedgerEntry, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT entry_id, handle, amount, kind, description, created_at
		FROM ledger_entries
		WHERE handle = ?
		ORDER BY entry_id DESC
		LIMIT ?
	`
	rows, err := t.tx.QueryContext(ctx, query, handle, limit)
	if err != nil {
		return nil, model.NewStorageError("list ledger entries", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var (
			e  model.LedgerEntry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Handle, &e.Amount, &e.Kind, &e.Description, &at); err != nil {
			return nil, model.NewStorageError("scan ledger entry", err)
		}
		e.CreatedAt = fromMicros(at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate ledger entries", err)
	}
	return entries, nil
}
