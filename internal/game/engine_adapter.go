package game

import (
	"fmt"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

// HouseRules are the table options exposed through configuration.
type HouseRules struct {
	Seed               uint64 `json:"seed"`
	CardsPerPlayer     int    `json:"cardsPerPlayer"`
	StrictWildDrawFour bool   `json:"strictWildDrawFour"`
	MaxTurns           int    `json:"maxTurns"` // 0 = unlimited
}

// DefaultHouseRules returns standard UNO options.
func DefaultHouseRules() HouseRules {
	return HouseRules{Seed: 1, CardsPerPlayer: 7}
}

// UnoRules implements Rules on top of the engine package.
type UnoRules struct {
	House HouseRules
}

// NewUnoRules returns rules for the given house options.
func NewUnoRules(house HouseRules) *UnoRules {
	return &UnoRules{House: house}
}

// mapHouseRulesToEngine maps the table options to engine.HouseRules.
func (r *UnoRules) mapHouseRulesToEngine(seats int) engine.HouseRules {
	rules := engine.DefaultHouseRules()
	rules.NumPlayers = uint8(seats)
	if r.House.CardsPerPlayer > 0 {
		rules.CardsPerPlayer = uint8(r.House.CardsPerPlayer)
	}
	rules.StrictWildDrawFour = r.House.StrictWildDrawFour
	if r.House.MaxTurns > 0 {
		rules.MaxGameTurns = uint16(r.House.MaxTurns)
	}
	return rules
}

// Initialize deals a new game for seats players. Seat 0 moves first.
func (r *UnoRules) Initialize(seats int) (engine.GameState, error) {
	if seats < 2 || seats > engine.MaxPlayers {
		return engine.GameState{}, fmt.Errorf("cannot deal for %d seats", seats)
	}
	g := engine.NewGame(r.House.Seed, r.mapHouseRulesToEngine(seats))
	if err := g.Deal(); err != nil {
		return engine.GameState{}, fmt.Errorf("deal: %w", err)
	}
	return g, nil
}

// LegalActions lists the actions seat may take; empty when it is not seat's turn.
func (r *UnoRules) LegalActions(state *engine.GameState, seat int) []Action {
	if state.IsTerminal() || int(state.TurnPlayer()) != seat {
		return nil
	}
	return state.LegalActionsList()
}

// Apply validates and applies action for seat on a copy of state.
func (r *UnoRules) Apply(state engine.GameState, seat int, action Action) (engine.GameState, error) {
	if state.IsTerminal() {
		return state, &RuleViolation{Seat: seat, Action: action, Reason: "game is over"}
	}
	if int(state.TurnPlayer()) != seat {
		return state, ErrNotYourTurn
	}
	next := state
	if err := next.ApplyAction(action); err != nil {
		return state, &RuleViolation{Seat: seat, Action: action, Reason: err.Error()}
	}
	return next, nil
}

// IsTerminal reports whether the game is over and who won (-1 for nobody).
func (r *UnoRules) IsTerminal(state *engine.GameState) (bool, int) {
	if !state.IsTerminal() {
		return false, -1
	}
	if seat, ok := state.WinnerSeat(); ok {
		return true, int(seat)
	}
	return true, -1
}

// NextTurn returns the seat expected to act.
func (r *UnoRules) NextTurn(state *engine.GameState) int {
	return int(state.TurnPlayer())
}

// DefaultAction is the forced move for a seat that timed out or used up its
// rejections.
func (r *UnoRules) DefaultAction(state *engine.GameState, seat int) Action {
	return state.DefaultAction()
}

// Forfeit removes seat from play on a copy of state.
func (r *UnoRules) Forfeit(state engine.GameState, seat int) (engine.GameState, error) {
	if seat < 0 || seat >= int(state.NumPlayers()) {
		return state, fmt.Errorf("forfeit: seat %d out of range", seat)
	}
	next := state
	if err := next.Forfeit(uint8(seat)); err != nil {
		return state, fmt.Errorf("forfeit: %w", err)
	}
	return next, nil
}

// Scores returns the round score of every seat.
func (r *UnoRules) Scores(state *engine.GameState) []int {
	all := state.Scores()
	return append([]int(nil), all[:state.NumPlayers()]...)
}

// TranslateAction converts a wire action into an engine action index. Shape
// errors (unknown kind, missing card index) wrap protocol.ErrMalformed;
// values the rules reject come back as *RuleViolation.
func TranslateAction(seat int, a protocol.Action) (Action, error) {
	switch a.Kind {
	case protocol.ActionDraw:
		return engine.ActionDraw, nil
	case protocol.ActionPass:
		return engine.ActionPass, nil
	case protocol.ActionPlay:
		if a.Payload.CardIndex == nil {
			return 0, fmt.Errorf("%w: play without card_index", protocol.ErrMalformed)
		}
		idx := *a.Payload.CardIndex
		if idx < 0 || idx >= engine.MaxHandSize {
			return 0, &RuleViolation{Seat: seat, Reason: fmt.Sprintf("card index %d out of range", idx)}
		}
		color, ok := engine.ParseColor(a.Payload.Color)
		if !ok {
			return 0, &RuleViolation{Seat: seat, Reason: fmt.Sprintf("unknown colour %q", a.Payload.Color)}
		}
		return engine.EncodePlay(uint8(idx), color), nil
	}
	return 0, fmt.Errorf("%w: unknown action kind %q", protocol.ErrMalformed, a.Kind)
}

// engineCardToWire converts an engine.Card to its wire form.
func engineCardToWire(c engine.Card) protocol.Card {
	return protocol.Card{
		Color: engine.ColorName(c.Color()),
		Rank:  engine.RankName(c.Rank()),
		Text:  c.String(),
	}
}

// describeLastAction renders the engine's last action for the snapshot log line.
func describeLastAction(state *engine.GameState, identity func(int) string) string {
	la := state.LastAction
	if state.TurnNumber == 0 && la.Forfeited < 0 && la.Played == engine.EmptyCard && la.Drawn == 0 {
		return ""
	}
	who := identity(int(la.ActingPlayer))
	var s string
	switch {
	case la.Forfeited >= 0:
		s = fmt.Sprintf("%s forfeited", identity(int(la.Forfeited)))
	case la.Played != engine.EmptyCard:
		s = fmt.Sprintf("%s played %s", who, la.Played)
		if la.Played.IsWild() {
			s += fmt.Sprintf(" (%s)", engine.ColorName(state.ActiveColor))
		}
	case la.Drawn > 0:
		s = fmt.Sprintf("%s drew a card", who)
	case la.ActionIdx == engine.ActionPass:
		s = fmt.Sprintf("%s passed", who)
	default:
		return ""
	}
	if la.Penalized >= 0 && la.Penalty > 0 {
		s += fmt.Sprintf("; %s drew %d", identity(int(la.Penalized)), la.Penalty)
	}
	return s
}
