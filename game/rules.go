// Package game implements the turn, movement and combat rules of the dungeon.
package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// Rules are the fixed per-game tunables.
type Rules struct {
	MaxAP        int // action points granted at the start of every turn
	MaxHealth    int // starting and maximum health
	LookDistance int // base field-of-view radius
}

// DefaultRules match the classic dungeon: six AP, three health, radius two.
func DefaultRules() Rules {
	return Rules{MaxAP: 6, MaxHealth: 3, LookDistance: 2}
}

// Rand is the source of randomness for spawning and combat.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe to share.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func newDefaultRand() Rand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// RuleError is a recoverable rule violation. Its text is sent back to the
// offending client as the failure reason.
type RuleError string

func (e RuleError) Error() string { return string(e) }

const (
	ErrUnknownPlayer   RuleError = "player has not been added"
	ErrGameOver        RuleError = "the game is over"
	ErrNotYourTurn     RuleError = "not your turn"
	ErrNoActionPoints  RuleError = "no action points left"
	ErrWallInTheWay    RuleError = "can't move into a wall"
	ErrPlayerInTheWay  RuleError = "can't move into another player"
	ErrNothingToPickUp RuleError = "nothing to pick up"
	ErrAlreadyHaveItem RuleError = "already have item"
	ErrNoTarget        RuleError = "attacking a non-player tile"
	ErrMissed          RuleError = "you missed!"
	ErrInvalidPosition RuleError = "invalid position"
	ErrNotWalkable     RuleError = "cannot walk on this tile"
	ErrEmptyName       RuleError = "name must not be empty"
)

// Construction and placement failures; these are not rule violations.
var (
	ErrNoWalkableTile = errors.New("no walkable tile on the map")
	ErrNoFreeTile     = errors.New("every walkable tile is occupied")
	ErrNilMap         = errors.New("engine needs a map")
)

// IsRuleError reports whether err is a recoverable rule violation.
func IsRuleError(err error) bool {
	var re RuleError
	return errors.As(err, &re)
}
