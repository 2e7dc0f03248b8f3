package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"terminusa/internal/game/combat"
	"terminusa/internal/game/dice"
	"terminusa/internal/model"
	"terminusa/internal/pkg/lock"
	"terminusa/internal/repository"
)

// CombatRules extends the encounter rules with its economic effects.
type CombatRules struct {
	combat.Rules
	Reward        int64 // currency and cores granted for a win
	DefeatPenalty int64 // at most this much is taken on defeat
}

// DefaultCombatRules returns the standard encounter with a 50 reward and a
// penalty of up to 50.
func DefaultCombatRules() CombatRules {
	return CombatRules{
		Rules:         combat.DefaultRules(),
		Reward:        50,
		DefeatPenalty: 50,
	}
}

// CombatOutcome is the result of one encounter after it was persisted.
type CombatOutcome struct {
	EncounterID    uuid.UUID
	State          combat.State
	Turns          []combat.Turn
	Reward         int64
	Penalty        int64
	Balance        int64
	Health         int
	NewAchievement bool // first win unlocked the Corruption Purge milestone
}

// CombatService runs encounters and persists their terminal effects.
type CombatService struct {
	base
	rules CombatRules
}

// NewCombatService creates a new CombatService instance. Pass WithHandleLock
// to share the encounter lock with AccountService.
func NewCombatService(store repository.Store, rules CombatRules, opts ...Option) *CombatService {
	return &CombatService{base: newBase(store, opts), rules: rules}
}

// ResolveCombat runs a full encounter for handle, asking tactic for every
// action, then persists health and the win or defeat effects in one
// transaction. A nil tactic always engages. Only one encounter per handle may
// run at a time, and the account cannot be saved while it runs.
func (s *CombatService) ResolveCombat(ctx context.Context, handle string, d dice.Dice, tactic combat.Tactic) (*CombatOutcome, error) {
	if tactic == nil {
		tactic = combat.AlwaysEngage
	}
	var outcome *CombatOutcome
	err := s.locks.TryWithLock(handle, func() error {
		var err error
		outcome, err = s.resolve(ctx, handle, d, tactic)
		return err
	})
	if errors.Is(err, lock.ErrBusy) {
		return nil, fmt.Errorf("%s: %w", handle, model.ErrEncounterInProgress)
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// resolve reads health, runs the encounter outside any transaction and
// settles it. The caller holds the handle lock.
func (s *CombatService) resolve(ctx context.Context, handle string, d dice.Dice, tactic combat.Tactic) (*CombatOutcome, error) {
	var health int
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		a, err := tx.GetAccount(ctx, handle)
		if err != nil {
			return err
		}
		health = a.Health
		return nil
	})
	if err != nil {
		return nil, err
	}

	enc, err := combat.New(s.rules.Rules, d, health)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	state, err := enc.Run(tactic)
	if err != nil {
		if errors.Is(err, combat.ErrUnknownAction) {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
		}
		return nil, err
	}

	outcome := &CombatOutcome{
		EncounterID: uuid.New(),
		State:       state,
		Turns:       enc.Turns(),
	}
	err = repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		return s.settle(ctx, tx, handle, enc, outcome)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to settle encounter for %s: %w", handle, err)
	}

	log.Info().Str("handle", handle).Str("encounter_id", outcome.EncounterID.String()).
		Str("state", state.String()).Int("turns", len(outcome.Turns)).
		Int64("reward", outcome.Reward).Int64("penalty", outcome.Penalty).Msg("Encounter resolved")
	return outcome, nil
}

// settle writes the terminal effects of enc.
func (s *CombatService) settle(ctx context.Context, tx repository.Tx, handle string, enc *combat.Encounter, out *CombatOutcome) error {
	a, err := tx.GetAccount(ctx, handle)
	if err != nil {
		return err
	}
	now := s.now()
	a.Health = enc.PlayerHealth()
	a.UpdatedAt = now
	desc := "encounter " + out.EncounterID.String()

	switch enc.State() {
	case combat.EnemyDefeated:
		out.Reward = s.rules.Reward
		if out.Reward > 0 {
			if err := adjustBalance(ctx, tx, a, out.Reward, model.EntryCombatReward, desc, now); err != nil {
				return err
			}
			if _, err := addItem(ctx, tx, handle, model.ItemCore, out.Reward); err != nil {
				return err
			}
		}
		if out.NewAchievement, err = unlockMilestone(ctx, tx, handle, model.AchievementCorruptionPurge, now); err != nil {
			return err
		}
	case combat.PlayerDefeated:
		out.Penalty = min(s.rules.DefeatPenalty, a.Balance)
		a.Health = model.MaxHealth
		if out.Penalty > 0 {
			if err := adjustBalance(ctx, tx, a, -out.Penalty, model.EntryDefeatPenalty, desc, now); err != nil {
				return err
			}
		}
	case combat.Retreated:
	default:
		return fmt.Errorf("encounter for %s not finished: %s", handle, enc.State())
	}

	if err := tx.UpdateAccount(ctx, a); err != nil {
		return err
	}
	out.Balance = a.Balance
	out.Health = a.Health
	return nil
}
