package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"terminusa/internal/model"
	"terminusa/internal/repository"
)

// AchievementService records and lists milestone unlocks.
type AchievementService struct {
	base
}

// NewAchievementService creates a new AchievementService instance.
func NewAchievementService(store repository.Store, opts ...Option) *AchievementService {
	return &AchievementService{base: newBase(store, opts)}
}

// Unlock records that handle reached achievement id. Unlocking twice is a
// no-op that keeps the first timestamp; the result reports whether this call
// wrote the unlock.
func (s *AchievementService) Unlock(ctx context.Context, handle string, id int) (bool, error) {
	var unlocked bool
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, handle); err != nil {
			return err
		}
		if _, err := tx.GetAchievement(ctx, id); err != nil {
			return err
		}
		var err error
		unlocked, err = unlockMilestone(ctx, tx, handle, id, s.now())
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement %d for %s: %w", id, handle, err)
	}
	return unlocked, nil
}

// ListUnlocked returns the achievements of handle in unlock order.
func (s *AchievementService) ListUnlocked(ctx context.Context, handle string) ([]model.UnlockedAchievement, error) {
	var list []model.UnlockedAchievement
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, handle); err != nil {
			return err
		}
		var err error
		list, err = tx.ListUnlocks(ctx, handle)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Catalog returns every achievement.
func (s *AchievementService) Catalog(ctx context.Context) ([]model.Achievement, error) {
	var list []model.Achievement
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		var err error
		list, err = tx.ListAchievements(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// unlockMilestone records an unlock inside the caller's transaction.
func unlockMilestone(ctx context.Context, tx repository.Tx, handle string, id int, at time.Time) (bool, error) {
	unlocked, err := tx.InsertUnlock(ctx, handle, id, at)
	if err != nil {
		return false, err
	}
	if unlocked {
		log.Debug().Str("handle", handle).Int("achievement_id", id).Msg("Achievement unlock recorded")
	}
	return unlocked, nil
}
