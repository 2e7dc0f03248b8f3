// Package combat implements the encounter state machine. It performs no I/O:
// each step returns a Turn describing what happened so callers can render it.
package combat

import (
	"errors"
	"fmt"

	"terminusa/internal/game/dice"
)

// Errors returned by the state machine.
var (
	ErrEncounterOver = errors.New("encounter is over")
	ErrUnknownAction = errors.New("unknown combat action")
	ErrNoHealth      = errors.New("player has no health left")
	ErrInvalidRules  = errors.New("invalid combat rules")
)

// State is the encounter state.
type State int

const (
	Engaged State = iota
	PlayerDefeated
	EnemyDefeated
	Retreated
)

func (s State) String() string {
	switch s {
	case Engaged:
		return "engaged"
	case PlayerDefeated:
		return "player_defeated"
	case EnemyDefeated:
		return "enemy_defeated"
	case Retreated:
		return "retreated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further action is accepted.
func (s State) Terminal() bool {
	return s != Engaged
}

// Action is what the player chooses each round.
type Action int

const (
	Engage Action = iota + 1
	Retreat
)

func (a Action) String() string {
	switch a {
	case Engage:
		return "engage"
	case Retreat:
		return "retreat"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Rules are the tunable numbers of an encounter. Damage ranges are inclusive.
type Rules struct {
	EnemyHealth     int
	PlayerDamageMin int
	PlayerDamageMax int
	EnemyDamageMin  int
	EnemyDamageMax  int
}

// DefaultRules returns the standard goblin encounter: enemy at 50, player
// hits for 5-20, enemy counterattacks for 5-15.
func DefaultRules() Rules {
	return Rules{
		EnemyHealth:     50,
		PlayerDamageMin: 5,
		PlayerDamageMax: 20,
		EnemyDamageMin:  5,
		EnemyDamageMax:  15,
	}
}

// Validate checks the rules can terminate: every engage must hurt the enemy.
func (r Rules) Validate() error {
	switch {
	case r.EnemyHealth <= 0:
		return fmt.Errorf("%w: enemy health %d", ErrInvalidRules, r.EnemyHealth)
	case r.PlayerDamageMin <= 0 || r.PlayerDamageMax < r.PlayerDamageMin:
		return fmt.Errorf("%w: player damage [%d,%d]", ErrInvalidRules, r.PlayerDamageMin, r.PlayerDamageMax)
	case r.EnemyDamageMin < 0 || r.EnemyDamageMax < r.EnemyDamageMin:
		return fmt.Errorf("%w: enemy damage [%d,%d]", ErrInvalidRules, r.EnemyDamageMin, r.EnemyDamageMax)
	}
	return nil
}

// Turn is the delta produced by one action.
type Turn struct {
	Round        int
	Action       Action
	DamageDealt  int // to the enemy
	DamageTaken  int // to the player; 0 when the enemy fell or on retreat
	PlayerHealth int // after the turn
	EnemyHealth  int // after the turn
	State        State
}

// Snapshot is what a Tactic sees before choosing an action.
type Snapshot struct {
	Round        int
	PlayerHealth int
	EnemyHealth  int
	Last         *Turn
}

// Tactic chooses the next action.
type Tactic func(Snapshot) Action

// AlwaysEngage fights until someone falls.
func AlwaysEngage(Snapshot) Action { return Engage }

// RetreatBelow engages until player health drops under threshold.
func RetreatBelow(threshold int) Tactic {
	return func(s Snapshot) Action {
		if s.PlayerHealth < threshold {
			return Retreat
		}
		return Engage
	}
}

// Encounter is a single fight. It is not safe for concurrent use.
type Encounter struct {
	rules        Rules
	dice         dice.Dice
	playerHealth int
	enemyHealth  int
	state        State
	turns        []Turn
}

// New starts an encounter in the Engaged state.
func New(rules Rules, d dice.Dice, playerHealth int) (*Encounter, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if playerHealth <= 0 {
		return nil, ErrNoHealth
	}
	return &Encounter{
		rules:        rules,
		dice:         d,
		playerHealth: playerHealth,
		enemyHealth:  rules.EnemyHealth,
		state:        Engaged,
	}, nil
}

// Step applies one action and returns the resulting turn.
func (e *Encounter) Step(a Action) (Turn, error) {
	if e.state.Terminal() {
		return Turn{}, ErrEncounterOver
	}

	turn := Turn{Round: len(e.turns) + 1, Action: a}
	switch a {
	case Retreat:
		e.state = Retreated
	case Engage:
		turn.DamageDealt = e.dice.Roll(e.rules.PlayerDamageMin, e.rules.PlayerDamageMax)
		e.enemyHealth = max(0, e.enemyHealth-turn.DamageDealt)
		if e.enemyHealth == 0 {
			e.state = EnemyDefeated
			break
		}
		turn.DamageTaken = e.dice.Roll(e.rules.EnemyDamageMin, e.rules.EnemyDamageMax)
		e.playerHealth = max(0, e.playerHealth-turn.DamageTaken)
		if e.playerHealth == 0 {
			e.state = PlayerDefeated
		}
	default:
		return Turn{}, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}

	turn.PlayerHealth = e.playerHealth
	turn.EnemyHealth = e.enemyHealth
	turn.State = e.state
	e.turns = append(e.turns, turn)
	return turn, nil
}

// Run asks tactic for actions until the encounter ends.
func (e *Encounter) Run(tactic Tactic) (State, error) {
	for !e.state.Terminal() {
		if _, err := e.Step(tactic(e.Snapshot())); err != nil {
			return e.state, err
		}
	}
	return e.state, nil
}

// Snapshot returns the current view for a Tactic.
func (e *Encounter) Snapshot() Snapshot {
	s := Snapshot{
		Round:        len(e.turns) + 1,
		PlayerHealth: e.playerHealth,
		EnemyHealth:  e.enemyHealth,
	}
	if n := len(e.turns); n > 0 {
		last := e.turns[n-1]
		s.Last = &last
	}
	return s
}

func (e *Encounter) State() State      { return e.state }
func (e *Encounter) PlayerHealth() int { return e.playerHealth }
func (e *Encounter) EnemyHealth() int  { return e.enemyHealth }

// Turns returns a copy of the turns played so far.
func (e *Encounter) Turns() []Turn {
	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out
}
