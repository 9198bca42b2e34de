package game

import (
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

// Phase is the lifecycle stage of a session.
type Phase int

const (
	AwaitingPlayers Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case AwaitingPlayers:
		return "awaiting_players"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// View is everything needed to project one snapshot per seat.
type View struct {
	State   *engine.GameState
	Version uint64
	Phase   Phase
	Seats   []session.Seat
	Outcome *protocol.Outcome
	Rules   Rules
}

// Project builds the snapshot seen by forSeat. Only forSeat's own cards are
// revealed; every other seat appears as a card count.
// The state must not be mutated while Project runs.
func Project(v View, forSeat int) protocol.Snapshot {
	st := v.State
	over := v.Phase == Finished
	turn := -1
	if !over && !st.IsTerminal() {
		turn = int(st.TurnPlayer())
	}

	snap := protocol.Snapshot{
		Version:     v.Version,
		Phase:       v.Phase.String(),
		Seat:        forSeat,
		TurnSeat:    turn,
		Turn:        int(st.TurnNumber),
		Direction:   "clockwise",
		ActiveColor: engine.ColorName(st.ActiveColor),
		OwnHand:     []protocol.Card{},
		Players:     make([]protocol.PlayerView, len(v.Seats)),
		Piles: protocol.Piles{
			DiscardSize: int(st.DiscardLen),
			StockSize:   int(st.StockLen),
		},
		Outcome: v.Outcome,
	}
	if st.IsReversed() {
		snap.Direction = "counterclockwise"
	}

	// Discard top card (always public knowledge).
	if st.DiscardLen > 0 {
		top := engineCardToWire(st.DiscardTop())
		snap.Piles.DiscardTop = &top
	}

	for i, s := range v.Seats {
		snap.Players[i] = protocol.PlayerView{
			Seat:      s.Index,
			Identity:  s.Identity,
			State:     s.State.String(),
			HandCount: int(st.HandLen(uint8(s.Index))),
			Current:   s.Index == turn,
		}
	}

	// Reveal hand details for self.
	if forSeat >= 0 && forSeat < int(st.NumPlayers()) {
		for _, c := range st.HandCards(uint8(forSeat)) {
			snap.OwnHand = append(snap.OwnHand, engineCardToWire(c))
		}
		if forSeat == turn && v.Rules != nil {
			snap.Playable, snap.CanDraw = playableIndices(v.Rules.LegalActions(st, forSeat))
		}
	}

	identity := func(seat int) string {
		if seat >= 0 && seat < len(v.Seats) {
			return v.Seats[seat].Identity
		}
		return session.DefaultIdentity(seat)
	}
	snap.LastAction = describeLastAction(st, identity)
	return snap
}

// playableIndices folds legal actions into distinct hand indices.
func playableIndices(actions []Action) ([]int, bool) {
	var out []int
	canDraw := false
	seen := make(map[int]bool)
	for _, a := range actions {
		if a == engine.ActionDraw {
			canDraw = true
			continue
		}
		if idx, _, ok := engine.ActionIsPlay(a); ok && !seen[int(idx)] {
			seen[int(idx)] = true
			out = append(out, int(idx))
		}
	}
	return out, canDraw
}
