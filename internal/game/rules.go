// Package game runs one UNO session: the rules contract consumed by the
// turn coordinator, the coordinator itself, and the per-seat snapshot
// broadcaster.
package game

import (
	"errors"
	"fmt"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
)

// Action is an engine action index (see engine.EncodePlay).
type Action = uint16

// Rules is the game logic the coordinator drives. Implementations must be
// pure: Apply and Forfeit return a new state and never modify their input.
type Rules interface {
	Initialize(seats int) (engine.GameState, error)
	LegalActions(state *engine.GameState, seat int) []Action
	Apply(state engine.GameState, seat int, action Action) (engine.GameState, error)
	IsTerminal(state *engine.GameState) (bool, int)
	NextTurn(state *engine.GameState) int
	DefaultAction(state *engine.GameState, seat int) Action
	Forfeit(state engine.GameState, seat int) (engine.GameState, error)
	Scores(state *engine.GameState) []int
}

var (
	// ErrNotYourTurn is reported to a seat that acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrFatal marks an error that ends the session.
	ErrFatal = errors.New("fatal session error")
	// ErrFinished is returned by Submit once the session is over.
	ErrFinished = errors.New("session finished")
)

// RuleViolation is returned by Rules.Apply for an action the rules refuse.
type RuleViolation struct {
	Seat   int
	Action Action
	Reason string
}

func (v *RuleViolation) Error() string {
	return fmt.Sprintf("seat %d: illegal action %d: %s", v.Seat, v.Action, v.Reason)
}

func fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}
