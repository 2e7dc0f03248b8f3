package repository

import (
	"context"
	"fmt"
	"time"

	"terminusa/internal/model"
)

// ========== PostgreSQL ==========

func (t *pgTx) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx, `SELECT achievement_id, name, description FROM achievements ORDER BY achievement_id`)
	if err != nil {
		return nil, model.NewStorageError("list achievements", err)
	}
	defer rows.Close()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, model.NewStorageError("scan achievement", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate achievements", err)
	}
	return out, nil
}

func (t *pgTx) GetAchievement(ctx context.Context, id int) (*model.Achievement, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	var a model.Achievement
	err := t.tx.QueryRow(ctx, `SELECT achievement_id, name, description FROM achievements WHERE achievement_id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Description)
	if err != nil {
		return nil, scanErr(fmt.Sprintf("get achievement %d", id), err, pgNoRows)
	}
	return &a, nil
}

// InsertUnlock records (handle, id) unless it is already present.
func (t *pgTx) InsertUnlock(ctx context.Context, handle string, id int, at time.Time) (bool, error) {
	if err := t.check(); err != nil {
		return false, err
	}
	const query = `
		INSERT INTO achievement_unlocks (handle, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (handle, achievement_id) DO NOTHING
	`
	tag, err := t.tx.Exec(ctx, query, handle, id, at)
	if err != nil {
		return false, model.NewStorageError("insert unlock", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) ListUnlocks(ctx context.Context, handle string) ([]model.UnlockedAchievement, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT a.achievement_id, a.name, a.description, u.unlocked_at
		FROM achievement_unlocks u
		JOIN achievements a ON a.achievement_id = u.achievement_id
		WHERE u.handle = $1
		ORDER BY u.unlocked_at, a.achievement_id
	`
	rows, err := t.tx.Query(ctx, query, handle)
	if err != nil {
		return nil, model.NewStorageError("list unlocks", err)
	}
	defer rows.Close()

	out := []model.UnlockedAchievement{}
	for rows.Next() {
		var u model.UnlockedAchievement
		if err := rows.Scan(&u.AchievementID, &u.Name, &u.Description, &u.UnlockedAt); err != nil {
			return nil, model.NewStorageError("scan unlock", err)
		}
		u.UnlockedAt = u.UnlockedAt.UTC()
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate unlocks", err)
	}
	return out, nil
}

// ========== SQLite ==========

func (t *sqliteTx) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, `SELECT achievement_id, name, description FROM achievements ORDER BY achievement_id`)
	if err != nil {
		return nil, model.NewStorageError("list achievements", err)
	}
	defer rows.Close()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, model.NewStorageError("scan achievement", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate achievements", err)
	}
	return out, nil
}

func (t *sqliteTx) GetAchievement(ctx context.Context, id int) (*model.Achievement, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	var a model.Achievement
	err := t.tx.QueryRowContext(ctx, `SELECT achievement_id, name, description FROM achievements WHERE achievement_id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Description)
	if err != nil {
		return nil, scanErr(fmt.Sprintf("get achievement %d", id), err, sqlNoRows)
	}
	return &a, nil
}

func (t *sqliteTx) InsertUnlock(ctx context.Context, handle string, id int, at time.Time) (bool, error) {
	if err := t.check(); err != nil {
		return false, err
	}
	const query = `
		INSERT INTO achievement_unlocks (handle, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (handle, achievement_id) DO NOTHING
	`
	res, err := t.tx.ExecContext(ctx, query, handle, id, toMicros(at))
	if err != nil {
		return false, model.NewStorageError("insert unlock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.NewStorageError("insert unlock", err)
	}
	return n == 1, nil
}

func (t *sqliteTx) ListUnlocks(ctx context.Context, handle string) ([]model.UnlockedAchievement, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	const query = `
		SELECT a.achievement_id, a.name, a.description, u.unlocked_at
		FROM achievement_unlocks u
		JOIN achievements a ON a.achievement_id = u.achievement_id
		WHERE u.handle = ?
		ORDER BY u.unlocked_at, a.achievement_id
	`
	rows, err := t.tx.QueryContext(ctx, query, handle)
	if err != nil {
		return nil, model.NewStorageError("list unlocks", err)
	}
	defer rows.Close()

	out := []model.UnlockedAchievement{}
	for rows.Next() {
		var (
			u  model.UnlockedAchievement
			at int64
		)
		if err := rows.Scan(&u.AchievementID, &u.Name, &u.Description, &at); err != nil {
			return nil, model.NewStorageError("scan unlock", err)
		}
		u.UnlockedAt = fromMicros(at)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate unlocks", err)
	}
	return out, nil
}
