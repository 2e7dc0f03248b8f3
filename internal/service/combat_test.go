package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminusa/internal/game/combat"
	"terminusa/internal/game/dice"
	"terminusa/internal/model"
)

func TestCombat_WinRewardsAndUnlocksOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "nova")

	// player 20, enemy 15, player 15, enemy 15, player 15: 50 -> 30 -> 15 -> 0
	out, err := env.combat.ResolveCombat(ctx, "nova", dice.NewScripted(20, 15, 15, 15, 15), combat.AlwaysEngage)
	require.NoError(t, err)
	assert.Equal(t, combat.EnemyDefeated, out.State)
	require.Len(t, out.Turns, 3)
	assert.Equal(t, 0, out.Turns[2].EnemyHealth)
	assert.Equal(t, int64(50), out.Reward)
	assert.Equal(t, int64(150), out.Balance)
	assert.Equal(t, 70, out.Health)
	assert.True(t, out.NewAchievement)
	assert.NotEqual(t, [16]byte{}, [16]byte(out.EncounterID))

	a := env.load(t, "nova")
	assert.Equal(t, int64(150), a.Balance)
	assert.Equal(t, 70, a.Health)
	assert.Equal(t, int64(50), a.Inventory.Quantity(model.ItemCore))

	second, err := env.combat.ResolveCombat(ctx, "nova", dice.NewScripted(20, 5, 20, 5, 20), nil)
	require.NoError(t, err)
	assert.Equal(t, combat.EnemyDefeated, second.State)
	assert.False(t, second.NewAchievement)
	assert.NotEqual(t, out.EncounterID, second.EncounterID)

	unlocked, err := env.achievements.ListUnlocked(ctx, "nova")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, model.AchievementCorruptionPurge, unlocked[0].AchievementID)

	assert.Equal(t, int64(200), env.load(t, "nova").Balance)
	assert.Equal(t, int64(200), env.ledgerSum(t, "nova"))
}

func TestCombat_DefeatTakesPenaltyAndRestoresHealth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "nova")
	env.setBalance(t, "nova", 30)

	a := env.load(t, "nova")
	a.Health = 10
	require.NoError(t, env.accounts.Save(ctx, a))

	out, err := env.combat.ResolveCombat(ctx, "nova", dice.NewScripted(5, 15), nil)
	require.NoError(t, err)
	assert.Equal(t, combat.PlayerDefeated, out.State)
	assert.Equal(t, int64(30), out.Penalty, "penalty capped at balance")
	assert.Equal(t, int64(0), out.Balance)
	assert.Equal(t, model.MaxHealth, out.Health)

	a = env.load(t, "nova")
	assert.Equal(t, int64(0), a.Balance)
	assert.Equal(t, model.MaxHealth, a.Health)
	assert.Equal(t, int64(0), env.ledgerSum(t, "nova"))

	// a broke player loses nothing more
	out, err = env.combat.ResolveCombat(ctx, "nova", dice.NewScripted(5, 15, 5, 15, 5, 15, 5, 15, 5, 15, 5, 15, 5, 15), nil)
	require.NoError(t, err)
	assert.Equal(t, combat.PlayerDefeated, out.State)
	assert.Zero(t, out.Penalty)

	unlocked, err := env.achievements.ListUnlocked(ctx, "nova")
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestCombat_RetreatPersistsHealthOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "nova")

	out, err := env.combat.ResolveCombat(ctx, "nova", dice.NewScripted(5, 15, 5, 15), combat.RetreatBelow(80))
	require.NoError(t, err)
	assert.Equal(t, combat.Retreated, out.State)
	require.Len(t, out.Turns, 3)
	assert.Equal(t, 70, out.Health)
	assert.Zero(t, out.Reward)
	assert.Zero(t, out.Penalty)

	a := env.load(t, "nova")
	assert.Equal(t, 70, a.Health)
	assert.Equal(t, int64(100), a.Balance)
}

func TestCombat_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.combat.ResolveCombat(ctx, "ghost", dice.NewSeeded(1), nil)
	assert.ErrorIs(t, err, model.ErrNotFound)

	env.register(t, "nova")
	_, err = env.combat.ResolveCombat(ctx, "nova", dice.NewSeeded(1), func(combat.Snapshot) combat.Action {
		return combat.Action(99)
	})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, 100, env.load(t, "nova").Health)

	a := env.load(t, "nova")
	a.Health = 0
	require.NoError(t, env.accounts.Save(ctx, a))
	_, err = env.combat.ResolveCombat(ctx, "nova", dice.NewSeeded(1), nil)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestCombat_OneEncounterPerAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "nova")
	env.register(t, "orion")

	inner := make(chan error, 2)
	_, err := env.combat.ResolveCombat(ctx, "nova", dice.NewSeeded(3), func(s combat.Snapshot) combat.Action {
		if s.Round == 1 {
			_, err := env.combat.ResolveCombat(ctx, "nova", dice.NewSeeded(4), nil)
			inner <- err
			_, err = env.combat.ResolveCombat(ctx, "orion", dice.NewSeeded(4), combat.RetreatBelow(101))
			inner <- err
		}
		return combat.Retreat
	})
	require.NoError(t, err)

	assert.ErrorIs(t, <-inner, model.ErrEncounterInProgress)
	assert.NoError(t, <-inner, "other accounts are not blocked")

	_, err = env.combat.ResolveCombat(ctx, "nova", dice.NewSeeded(5), combat.RetreatBelow(101))
	assert.NoError(t, err, "lock released after the encounter")
}

func TestCombat_SaveRefusedWhileEncounterRuns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "nova")
	env.register(t, "orion")

	var saveErr, otherErr error
	// enemy hits 10 on round 1, then the player retreats
	out, err := env.combat.ResolveCombat(ctx, "nova", dice.NewScripted(5, 10), func(s combat.Snapshot) combat.Action {
		if s.Round == 1 {
			return combat.Engage
		}
		a := env.load(t, "nova")
		a.Health = 100
		saveErr = env.accounts.Save(ctx, a)

		o := env.load(t, "orion")
		o.Level = 2
		otherErr = env.accounts.Save(ctx, o)
		return combat.Retreat
	})
	require.NoError(t, err)
	assert.Equal(t, combat.Retreated, out.State)

	assert.ErrorIs(t, saveErr, model.ErrEncounterInProgress)
	assert.NoError(t, otherErr, "other accounts are not blocked")
	assert.Equal(t, 90, env.load(t, "nova").Health)

	a := env.load(t, "nova")
	a.Health = 100
	require.NoError(t, env.accounts.Save(ctx, a), "saving works again once the encounter settled")
	assert.Equal(t, 100, env.load(t, "nova").Health)
}
