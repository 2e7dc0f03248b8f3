package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"terminusa/internal/game/dice"
	"terminusa/internal/model"
	"terminusa/internal/repository"
)

// MineResult describes one mining run.
type MineResult struct {
	Reward         int64
	Balance        int64
	Cores          int64 // total held after the run
	NewAchievement bool  // first mine unlocked the First Core milestone
}

// MiningService grants currency and cores for mining.
type MiningService struct {
	base
	rewardMin int
	rewardMax int
}

// NewMiningService creates a MiningService paying a reward in [rewardMin, rewardMax].
func NewMiningService(store repository.Store, rewardMin, rewardMax int, opts ...Option) *MiningService {
	return &MiningService{base: newBase(store, opts), rewardMin: rewardMin, rewardMax: rewardMax}
}

// Mine rolls a reward, credits it, adds as many cores to the inventory and
// unlocks the first-mine milestone, all in one transaction.
func (s *MiningService) Mine(ctx context.Context, handle string, d dice.Dice) (*MineResult, error) {
	reward := int64(d.Roll(s.rewardMin, s.rewardMax))
	if reward <= 0 {
		return nil, fmt.Errorf("%w: mining reward %d", model.ErrInvalidArgument, reward)
	}

	result := &MineResult{Reward: reward}
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		now := s.now()
		a, err := tx.GetAccount(ctx, handle)
		if err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, a, reward, model.EntryMine, "mined cores", now); err != nil {
			return err
		}
		if result.Cores, err = addItem(ctx, tx, handle, model.ItemCore, reward); err != nil {
			return err
		}
		if result.NewAchievement, err = unlockMilestone(ctx, tx, handle, model.AchievementFirstCore, now); err != nil {
			return err
		}
		result.Balance = a.Balance
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mine for %s: %w", handle, err)
	}

	log.Info().Str("handle", handle).Int64("reward", reward).Msg("Mined cores")
	return result, nil
}
