package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"terminusa/internal/game/dice"
)

func TestEncounter_ThreeEngagesDefeatEnemy(t *testing.T) {
	// player hits 20, 15, 15; enemy counters 15, 15
	d := dice.NewScripted(20, 15, 15, 15, 15)
	enc, err := New(DefaultRules(), d, 100)
	require.NoError(t, err)

	state, err := enc.Run(AlwaysEngage)
	require.NoError(t, err)
	assert.Equal(t, EnemyDefeated, state)

	turns := enc.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, []int{30, 15, 0}, []int{turns[0].EnemyHealth, turns[1].EnemyHealth, turns[2].EnemyHealth})
	assert.Equal(t, 15, turns[0].DamageTaken)
	assert.Equal(t, 15, turns[1].DamageTaken)
	assert.Equal(t, 0, turns[2].DamageTaken, "no counterattack once the enemy falls")
	assert.Equal(t, 70, enc.PlayerHealth())
	assert.Equal(t, 0, d.Remaining())
}

func TestEncounter_PlayerDefeated(t *testing.T) {
	d := dice.NewScripted(5, 15, 5, 15)
	enc, err := New(DefaultRules(), d, 20)
	require.NoError(t, err)

	turn, err := enc.Step(Engage)
	require.NoError(t, err)
	assert.Equal(t, Engaged, turn.State)
	assert.Equal(t, 5, turn.PlayerHealth)

	turn, err = enc.Step(Engage)
	require.NoError(t, err)
	assert.Equal(t, PlayerDefeated, turn.State)
	assert.Equal(t, 0, turn.PlayerHealth, "health floors at zero")
	assert.Equal(t, 40, turn.EnemyHealth)
}

func TestEncounter_RetreatChangesNothing(t *testing.T) {
	d := dice.NewScripted()
	enc, err := New(DefaultRules(), d, 64)
	require.NoError(t, err)

	turn, err := enc.Step(Retreat)
	require.NoError(t, err)
	assert.Equal(t, Retreated, turn.State)
	assert.Equal(t, 64, turn.PlayerHealth)
	assert.Equal(t, 50, turn.EnemyHealth)
	assert.Zero(t, turn.DamageDealt)
	assert.Zero(t, turn.DamageTaken)
}

func TestEncounter_StepAfterEnd(t *testing.T) {
	enc, err := New(DefaultRules(), dice.NewScripted(), 10)
	require.NoError(t, err)
	_, err = enc.Step(Retreat)
	require.NoError(t, err)

	_, err = enc.Step(Engage)
	assert.ErrorIs(t, err, ErrEncounterOver)
	assert.Len(t, enc.Turns(), 1)
}

func TestEncounter_UnknownAction(t *testing.T) {
	enc, err := New(DefaultRules(), dice.NewScripted(), 10)
	require.NoError(t, err)

	_, err = enc.Step(Action(42))
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, Engaged, enc.State())
	assert.Empty(t, enc.Turns())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(DefaultRules(), dice.NewScripted(), 0)
	assert.ErrorIs(t, err, ErrNoHealth)

	bad := DefaultRules()
	bad.PlayerDamageMin = 0
	_, err = New(bad, dice.NewScripted(), 10)
	assert.ErrorIs(t, err, ErrInvalidRules)

	bad = DefaultRules()
	bad.EnemyHealth = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRules)

	bad = DefaultRules()
	bad.EnemyDamageMax = 1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRules)
}

func TestRetreatBelow(t *testing.T) {
	// enemy counters hard enough to push health under the threshold after one round
	d := dice.NewScripted(5, 15)
	enc, err := New(DefaultRules(), d, 40)
	require.NoError(t, err)

	var seen []Snapshot
	state, err := enc.Run(func(s Snapshot) Action {
		seen = append(seen, s)
		return RetreatBelow(30)(s)
	})
	require.NoError(t, err)
	assert.Equal(t, Retreated, state)
	assert.Equal(t, 25, enc.PlayerHealth())

	require.Len(t, seen, 2)
	assert.Nil(t, seen[0].Last)
	require.NotNil(t, seen[1].Last)
	assert.Equal(t, 1, seen[1].Last.Round)
	assert.Equal(t, 2, seen[1].Round)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "engaged", Engaged.String())
	assert.Equal(t, "enemy_defeated", EnemyDefeated.String())
	assert.Equal(t, "retreat", Retreat.String())
	assert.False(t, Engaged.Terminal())
	assert.True(t, PlayerDefeated.Terminal())
}

// TestEncounterInvariantsProperty checks, for any seed and starting health,
// that an always-engage encounter terminates, health stays in range and the
// turn log replays to the final state.
func TestEncounterInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		start := rapid.IntRange(1, 100).Draw(t, "health")

		enc, err := New(DefaultRules(), dice.NewSeeded(seed), start)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		state, err := enc.Run(AlwaysEngage)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if state != EnemyDefeated && state != PlayerDefeated {
			t.Fatalf("Unexpected terminal state %v", state)
		}

		player, enemy := start, DefaultRules().EnemyHealth
		for _, turn := range enc.Turns() {
			if turn.DamageDealt < 5 || turn.DamageDealt > 20 {
				t.Fatalf("Player damage %d out of range", turn.DamageDealt)
			}
			if turn.DamageTaken != 0 && (turn.DamageTaken < 5 || turn.DamageTaken > 15) {
				t.Fatalf("Enemy damage %d out of range", turn.DamageTaken)
			}
			enemy = max(0, enemy-turn.DamageDealt)
			player = max(0, player-turn.DamageTaken)
			if turn.EnemyHealth != enemy || turn.PlayerHealth != player {
				t.Fatalf("Turn %d does not replay: got (%d,%d) want (%d,%d)",
					turn.Round, turn.PlayerHealth, turn.EnemyHealth, player, enemy)
			}
		}
		if (state == EnemyDefeated) != (enemy == 0) {
			t.Fatalf("State %v with enemy health %d", state, enemy)
		}
		if (state == PlayerDefeated) != (player == 0) {
			t.Fatalf("State %v with player health %d", state, player)
		}
	})
}
