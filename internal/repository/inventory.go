package repository

import (
	"context"
	"fmt"

	"terminusa/internal/model"
)

// ========== PostgreSQL ==========

func (t *pgTx) GetInventory(ctx context.Context, handle string) (model.Inventory, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT item_name, quantity
		FROM inventory_items
		WHERE handle = $1 AND quantity > 0
	`
	rows, err := t.tx.Query(ctx, query, handle)
	if err != nil {
		return nil, model.NewStorageError("get inventory", err)
	}
	defer rows.Close()

	inv := model.Inventory{}
	for rows.Next() {
		var (
			name string
			qty  int64
		)
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, model.NewStorageError("scan inventory item", err)
		}
		inv[name] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate inventory", err)
	}
	return inv, nil
}

// SetItemQuantity upserts one inventory entry; zero deletes it.
func (t *pgTx) SetItemQuantity(ctx context.Context, handle, item string, quantity int64) error {
	if err := t.check(); err != nil {
		return err
	}
	if quantity < 0 {
		return fmt.Errorf("negative quantity %d for %q: %w", quantity, item, model.ErrInvalidArgument)
	}
	if quantity == 0 {
		const del = `DELETE FROM inventory_items WHERE handle = $1 AND item_name = $2`
		if _, err := t.tx.Exec(ctx, del, handle, item); err != nil {
			return model.NewStorageError("delete inventory item", err)
		}
		return nil
	}
	const upsert = `
		INSERT INTO inventory_items (handle, item_name, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (handle, item_name)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`
	if _, err := t.tx.Exec(ctx, upsert, handle, item, quantity); err != nil {
		return model.NewStorageError("set inventory item", err)
	}
	return nil
}

// ReplaceInventory writes inventory as the complete set of entries for handle.
func (t *pgTx) ReplaceInventory(ctx context.Context, handle string, inventory model.Inventory) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM inventory_items WHERE handle = $1`, handle); err != nil {
		return model.NewStorageError("clear inventory", err)
	}
	const insert = `INSERT INTO inventory_items (handle, item_name, quantity) VALUES ($1, $2, $3)`
	for _, name := range inventory.Items() {
		qty := inventory[name]
		if qty < 0 {
			return fmt.Errorf("negative quantity %d for %q: %w", qty, name, model.ErrInvalidArgument)
		}
		if qty == 0 {
			continue
		}
		if _, err := t.tx.Exec(ctx, insert, handle, name, qty); err != nil {
			return model.NewStorageError("insert inventory item", err)
		}
	}
	return nil
}

// ========== SQLite ==========

func (t *sqliteTx) GetInventory(ctx context.Context, handle string) (model.Inventory, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT item_name, quantity
		FROM inventory_items
		WHERE handle = ? AND quantity > 0
	`
	rows, err := t.tx.QueryContext(ctx, query, handle)
	if err != nil {
		return nil, model.NewStorageError("get inventory", err)
	}
	defer rows.Close()

	inv := model.Inventory{}
	for rows.Next() {
		var (
			name string
			qty  int64
		)
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, model.NewStorageError("scan inventory item", err)
		}
		inv[name] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate inventory", err)
	}
	return inv, nil
}

func (t *sqliteTx) SetItemQuantity(ctx context.Context, handle, item string, quantity int64) error {
	if err := t.check(); err != nil {
		return err
	}
	if quantity < 0 {
		return fmt.Errorf("negative quantity %d for %q: %w", quantity, item, model.ErrInvalidArgument)
	}
	if quantity == 0 {
		const del = `DELETE FROM inventory_items WHERE handle = ? AND item_name = ?`
		if _, err := t.tx.ExecContext(ctx, del, handle, item); err != nil {
			return model.NewStorageError("delete inventory item", err)
		}
		return nil
	}
	const upsert = `
		INSERT INTO inventory_items (handle, item_name, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT (handle, item_name)
		DO UPDATE SET quantity = excluded.quantity
	`
	if _, err := t.tx.ExecContext(ctx, upsert, handle, item, quantity); err != nil {
		return model.NewStorageError("set inventory item", err)
	}
	return nil
}

func (t *sqliteTx) ReplaceInventory(ctx context.Context, handle string, inventory model.Inventory) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE handle = ?`, handle); err != nil {
		return model.NewStorageError("clear inventory", err)
	}
	const insert = `INSERT INTO inventory_items (handle, item_name, quantity) VALUES (?, ?, ?)`
	for _, name := range inventory.Items() {
		qty := inventory[name]
		if qty < 0 {
			return fmt.Errorf("negative quantity %d for %q: %w", qty, name, model.ErrInvalidArgument)
		}
		if qty == 0 {
			continue
		}
		if _, err := t.tx.ExecContext(ctx, insert, handle, name, qty); err != nil {
			return model.NewStorageError("insert inventory item", err)
		}
	}
	return nil
}
