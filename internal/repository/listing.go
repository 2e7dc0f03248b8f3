package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"terminusa/internal/model"
)

// ========== PostgreSQL ==========

func (t *pgTx) InsertListing(ctx context.Context, l *model.Listing) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	const query = `
		INSERT INTO listings (seller, item_name, unit_price, quantity, listed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING listing_id
	`
	var id int64
	if err := t.tx.QueryRow(ctx, query, l.Seller, l.Item, l.UnitPrice, l.Quantity, l.ListedAt).Scan(&id); err != nil {
		return 0, model.NewStorageError("insert listing", err)
	}
	return id, nil
}

// GetListing reads a listing and holds its row lock, so two buyers of the
// same listing are serialized and the loser sees it deleted.
func (t *pgTx) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT listing_id, seller, item_name, unit_price, quantity, listed_at
		FROM listings
		WHERE listing_id = $1
		FOR UPDATE
	`
	var l model.Listing
	err := t.tx.QueryRow(ctx, query, id).Scan(&l.ID, &l.Seller, &l.Item, &l.UnitPrice, &l.Quantity, &l.ListedAt)
	if err != nil {
		return nil, scanErr(fmt.Sprintf("get listing %d", id), err, pgNoRows)
	}
	l.ListedAt = l.ListedAt.UTC()
	return &l, nil
}

func (t *pgTx) DeleteListing(ctx context.Context, id int64) error {
	if err := t.check(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM listings WHERE listing_id = $1`, id)
	if err != nil {
		return model.NewStorageError("delete listing", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func (t *pgTx) ListListings(ctx context.Context, excludeSeller string) ([]model.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT listing_id, seller, item_name, unit_price, quantity, listed_at
		FROM listings
		WHERE $1::text = '' OR seller <> $1
		ORDER BY listing_id
	`
	rows, err := t.tx.Query(ctx, query, excludeSeller)
	if err != nil {
		return nil, model.NewStorageError("list listings", err)
	}
	return collectPgListings(rows)
}

func (t *pgTx) ListListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT listing_id, seller, item_name, unit_price, quantity, listed_at
		FROM listings
		WHERE seller = $1
		ORDER BY listing_id
	`
	rows, err := t.tx.Query(ctx, query, seller)
	if err != nil {
		return nil, model.NewStorageError("list seller listings", err)
	}
	return collectPgListings(rows)
}

func collectPgListings(rows pgx.Rows) ([]model.Listing, error) {
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.Seller, &l.Item, &l.UnitPrice, &l.Quantity, &l.ListedAt); err != nil {
			return nil, model.NewStorageError("scan listing", err)
		}
		l.ListedAt = l.ListedAt.UTC()
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate listings", err)
	}
	return listings, nil
}

// ========== SQLite ==========

func (t *sqliteTx) InsertListing(ctx context.Context, l *model.Listing) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	const query = `
		INSERT INTO listings (seller, item_name, unit_price, quantity, listed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := t.tx.ExecContext(ctx, query, l.Seller, l.Item, l.UnitPrice, l.Quantity, toMicros(l.ListedAt))
	if err != nil {
		return 0, model.NewStorageError("insert listing", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, model.NewStorageError("insert listing", err)
	}
	return id, nil
}

func (t *sqliteTx) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT listing_id, seller, item_name, unit_price, quantity, listed_at
		FROM listings
		WHERE listing_id = ?
	`
	var (
		l        model.Listing
		listedAt int64
	)
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Seller, &l.Item, &l.UnitPrice, &l.Quantity, &listedAt)
	if err != nil {
		return nil, scanErr(fmt.Sprintf("get listing %d", id), err, sqlNoRows)
	}
	l.ListedAt = fromMicros(listedAt)
	return &l, nil
}

func (t *sqliteTx) DeleteListing(ctx context.Context, id int64) error {
	if err := t.check(); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM listings WHERE listing_id = ?`, id)
	if err != nil {
		return model.NewStorageError("delete listing", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.NewStorageError("delete listing", err)
	}
	if n == 0 {
		return fmt.Errorf("listing %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func (t *sqliteTx) ListListings(ctx context.Context, excludeSeller string) ([]model.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT listing_id, seller, item_name, unit_price, quantity, listed_at
		FROM listings
		WHERE ?1 = '' OR seller <> ?1
		ORDER BY listing_id
	`
	rows, err := t.tx.QueryContext(ctx, query, excludeSeller)
	if err != nil {
		return nil, model.NewStorageError("list listings", err)
	}
	return collectSQLiteListings(rows)
}

func (t *sqliteTx) ListListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT listing_id, seller, item_name, unit_price, quantity, listed_at
		FROM listings
		WHERE seller = ?
		ORDER BY listing_id
	`
	rows, err := t.tx.QueryContext(ctx, query, seller)
	if err != nil {
		return nil, model.NewStorageError("list seller listings", err)
	}
	return collectSQLiteListings(rows)
}

func collectSQLiteListings(rows *sql.Rows) ([]model.Listing, error) {
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		var (
			l        model.Listing
			listedAt int64
		)
		if err := rows.Scan(&l.ID, &l.Seller, &l.Item, &l.UnitPrice, &l.Quantity, &listedAt); err != nil {
			return nil, model.NewStorageError("scan listing", err)
		}
		l.ListedAt = fromMicros(listedAt)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate listings", err)
	}
	return listings, nil
}
