// Package engine implements the UNO card game rules.
//
// The game state is a flat value type with no pointers or slices, so the
// server can copy it before applying an action and keep the original
// untouched when the action is rejected.
package engine

import "fmt"

const (
	MaxPlayers  = 10
	DeckSize    = 108
	MaxHandSize = DeckSize

	// ActionWildCards is how many cards in the deck cannot start the
	// discard pile.
	ActionWildCards = 32
	// MaxDealt is the most cards Deal hands out while still leaving a
	// number card in the stock to flip.
	MaxDealt = DeckSize - ActionWildCards - 1
)

// PlayerState holds one seat's hand.
type PlayerState struct {
	Hand    [MaxHandSize]Card
	HandLen uint8
	Out     bool // seat forfeited and is skipped by turn order
}

// GameState holds the complete, self-contained state of an UNO game.
type GameState struct {
	Players       [MaxPlayers]PlayerState
	Stockpile     [DeckSize]Card
	StockLen      uint8
	DiscardPile   [DeckSize]Card
	DiscardLen    uint8
	CurrentPlayer uint8
	ActiveColor   uint8 // colour to match; differs from the top card after a wild
	TurnNumber    uint16
	Flags         uint16
	Winner        int8 // -1 until terminal
	LastAction    LastActionInfo
	RNG           uint64
	Rules         HouseRules
}

// ---------------------------------------------------------------------------
// Flags bitfield
// ---------------------------------------------------------------------------

const (
	FlagGameOver    uint16 = 1 << 0
	FlagGameStarted uint16 = 1 << 1
	FlagReversed    uint16 = 1 << 2
)

func (g *GameState) IsGameOver() bool { return g.Flags&FlagGameOver != 0 }
func (g *GameState) IsReversed() bool { return g.Flags&FlagReversed != 0 }

// ---------------------------------------------------------------------------
// xorshift64 RNG, inline
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// ---------------------------------------------------------------------------
// NewGame and Deal
// ---------------------------------------------------------------------------

// NewGame initializes a new GameState with the given seed and rules.
// The deck is built but not yet shuffled or dealt.
func NewGame(seed uint64, rules HouseRules) GameState {
	var g GameState
	g.RNG = seed
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
	g.Rules = rules
	g.Winner = -1
	g.LastAction = LastActionInfo{Played: EmptyCard, Penalized: -1, Forfeited: -1}

	// Per colour: one 0, two each of 1–9, Skip, Reverse, Draw Two.
	idx := 0
	for color := uint8(0); color < NumColors; color++ {
		g.Stockpile[idx] = NewCard(color, RankZero)
		idx++
		for rank := uint8(1); rank <= RankDrawTwo; rank++ {
			g.Stockpile[idx] = NewCard(color, rank)
			g.Stockpile[idx+1] = NewCard(color, rank)
			idx += 2
		}
	}
	for i := 0; i < 4; i++ {
		g.Stockpile[idx] = NewCard(ColorWild, RankWild)
		g.Stockpile[idx+1] = NewCard(ColorWild, RankWildDrawFour)
		idx += 2
	}
	g.StockLen = uint8(idx)

	return g
}

// Deal shuffles the deck, distributes cards to players and flips the first
// number card to start the discard pile. Seat 0 starts.
func (g *GameState) Deal() error {
	n := g.Rules.numPlayers()
	if n < 2 || n > MaxPlayers {
		return fmt.Errorf("unsupported player count %d", n)
	}
	if dealt := int(n) * int(g.Rules.CardsPerPlayer); dealt > MaxDealt || dealt >= int(g.StockLen) {
		return fmt.Errorf("cannot deal %d cards to %d players", g.Rules.CardsPerPlayer, n)
	}

	g.shuffleStock()

	// Deal cards: alternate between players (deal 1 to p0, 1 to p1, ..., repeat).
	for c := uint8(0); c < g.Rules.CardsPerPlayer; c++ {
		for p := uint8(0); p < n; p++ {
			g.StockLen--
			g.Players[p].Hand[c] = g.Stockpile[g.StockLen]
			g.Players[p].HandLen++
		}
	}

	// Action and wild cards go to the bottom until a number card turns up.
	flipped := false
	for tries := g.StockLen; tries > 0; tries-- {
		g.StockLen--
		top := g.Stockpile[g.StockLen]
		if top.IsNumber() {
			g.DiscardPile[0] = top
			g.DiscardLen = 1
			g.ActiveColor = top.Color()
			flipped = true
			break
		}
		g.buryCards([]Card{top})
	}
	if !flipped {
		return fmt.Errorf("no number card left to start the discard pile")
	}

	g.CurrentPlayer = 0
	g.Flags |= FlagGameStarted
	return nil
}

// shuffleStock runs Fisher-Yates over the stockpile.
func (g *GameState) shuffleStock() {
	for i := int(g.StockLen) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		g.Stockpile[i], g.Stockpile[j] = g.Stockpile[j], g.Stockpile[i]
	}
}

// buryCards places cards underneath the stockpile (index 0 is the bottom).
func (g *GameState) buryCards(cards []Card) {
	k := len(cards)
	if k == 0 {
		return
	}
	copy(g.Stockpile[k:int(g.StockLen)+k], g.Stockpile[:g.StockLen])
	copy(g.Stockpile[:k], cards)
	g.StockLen += uint8(k)
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// IsTerminal returns true when the game is over.
func (g *GameState) IsTerminal() bool { return g.Flags&FlagGameOver != 0 }

// TurnPlayer returns the seat whose turn it currently is.
func (g *GameState) TurnPlayer() uint8 { return g.CurrentPlayer }

// DiscardTop returns the top card of the discard pile, or EmptyCard if empty.
func (g *GameState) DiscardTop() Card {
	if g.DiscardLen == 0 {
		return EmptyCard
	}
	return g.DiscardPile[g.DiscardLen-1]
}

// HandLen returns the number of cards in the given player's hand.
func (g *GameState) HandLen(player uint8) uint8 {
	return g.Players[player].HandLen
}

// HandCards returns a copy of the given player's hand (allocates).
func (g *GameState) HandCards(player uint8) []Card {
	n := g.Players[player].HandLen
	out := make([]Card, n)
	copy(out, g.Players[player].Hand[:n])
	return out
}

// NumPlayers returns the number of seats in this game.
func (g *GameState) NumPlayers() uint8 { return g.Rules.numPlayers() }

// NumActivePlayers returns the number of seats that have not forfeited.
func (g *GameState) NumActivePlayers() uint8 {
	var count uint8
	for p := uint8(0); p < g.Rules.numPlayers(); p++ {
		if !g.Players[p].Out {
			count++
		}
	}
	return count
}

// NextPlayer returns the next seat after current in turn order, honouring
// direction and skipping forfeited seats. Returns current if no other seat
// is active.
func (g *GameState) NextPlayer(current uint8) uint8 {
	n := g.Rules.numPlayers()
	p := current
	for i := uint8(0); i < n; i++ {
		if g.IsReversed() {
			p = (p + n - 1) % n
		} else {
			p = (p + 1) % n
		}
		if !g.Players[p].Out {
			return p
		}
	}
	return current
}

// CardCount returns the number of cards across every hand and both piles.
// It is DeckSize for any reachable state.
func (g *GameState) CardCount() int {
	total := int(g.StockLen) + int(g.DiscardLen)
	for p := uint8(0); p < g.Rules.numPlayers(); p++ {
		total += int(g.Players[p].HandLen)
	}
	return total
}

// ---------------------------------------------------------------------------
// Snapshot Undo (Save / Restore)
// ---------------------------------------------------------------------------

// Snapshot is a complete value-copy of GameState for undo support.
// No heap allocation, saving and restoring are plain struct copies.
type Snapshot GameState

// Save returns a snapshot of the current game state.
func (g *GameState) Save() Snapshot { return Snapshot(*g) }

// Restore replaces the game state with the given snapshot.
func (g *GameState) Restore(s Snapshot) { *g = GameState(s) }
