package engine

import "fmt"

// ApplyAction applies an action by index for the current player.
// Returns an error if the action is illegal; the state is only modified
// once the action has been validated.
func (g *GameState) ApplyAction(actionIdx uint16) error {
	if g.IsGameOver() {
		return fmt.Errorf("game is already over")
	}
	if g.Flags&FlagGameStarted == 0 {
		return fmt.Errorf("game has not been dealt")
	}

	switch actionIdx {
	case ActionDraw:
		return g.draw()
	case ActionPass:
		return g.pass()
	default:
		if handIdx, color, ok := ActionIsPlay(actionIdx); ok {
			return g.play(handIdx, color)
		}
		return fmt.Errorf("unhandled action index %d", actionIdx)
	}
}

// draw gives the current player one card and ends the turn.
func (g *GameState) draw() error {
	if !g.canDraw() {
		return fmt.Errorf("stockpile is empty and cannot be reshuffled")
	}
	acting := g.CurrentPlayer
	g.drawInto(acting, 1)

	g.beginLastAction(ActionDraw, acting)
	g.LastAction.Drawn = 1

	g.CurrentPlayer = g.NextPlayer(acting)
	g.endTurn()
	return nil
}

// pass ends the turn without playing. Only legal when nothing can be played
// or drawn.
func (g *GameState) pass() error {
	acting := g.CurrentPlayer
	if g.canDraw() {
		return fmt.Errorf("cannot pass while a card can be drawn")
	}
	if g.hasPlayableCard(acting) {
		return fmt.Errorf("cannot pass while holding a playable card")
	}

	g.beginLastAction(ActionPass, acting)
	g.CurrentPlayer = g.NextPlayer(acting)
	g.endTurn()
	return nil
}

// play moves the card at handIdx onto the discard pile and resolves its effect.
func (g *GameState) play(handIdx, color uint8) error {
	acting := g.CurrentPlayer
	ps := &g.Players[acting]
	if handIdx >= ps.HandLen {
		return fmt.Errorf("hand index %d out of range (hand has %d cards)", handIdx, ps.HandLen)
	}
	card := ps.Hand[handIdx]
	if card.IsWild() {
		if color >= NumColors {
			return fmt.Errorf("%s needs a colour choice", card)
		}
	} else if color != ColorWild {
		return fmt.Errorf("colour choice is only allowed for wild cards")
	}
	if !g.canPlay(acting, card) {
		return fmt.Errorf("%s does not match %s on %s", card, ColorName(g.ActiveColor), g.DiscardTop())
	}

	// Remove from hand, keeping order.
	copy(ps.Hand[handIdx:ps.HandLen-1], ps.Hand[handIdx+1:ps.HandLen])
	ps.HandLen--
	ps.Hand[ps.HandLen] = 0

	g.DiscardPile[g.DiscardLen] = card
	g.DiscardLen++
	if card.IsWild() {
		g.ActiveColor = color
	} else {
		g.ActiveColor = card.Color()
	}

	g.beginLastAction(EncodePlay(handIdx, color), acting)
	g.LastAction.Played = card

	if ps.HandLen == 0 {
		g.Winner = int8(acting)
		g.Flags |= FlagGameOver
		g.TurnNumber++
		return nil
	}

	next := g.NextPlayer(acting)
	switch card.Rank() {
	case RankSkip:
		g.CurrentPlayer = g.NextPlayer(next)
	case RankReverse:
		g.Flags ^= FlagReversed
		if g.NumActivePlayers() == 2 {
			// Two seats: reverse behaves like skip.
			g.CurrentPlayer = acting
		} else {
			g.CurrentPlayer = g.NextPlayer(acting)
		}
	case RankDrawTwo:
		g.penalize(next, 2)
		g.CurrentPlayer = g.NextPlayer(next)
	case RankWildDrawFour:
		g.penalize(next, 4)
		g.CurrentPlayer = g.NextPlayer(next)
	default:
		g.CurrentPlayer = next
	}
	g.endTurn()
	return nil
}

// penalize makes seat draw count cards (as many as the piles can supply).
func (g *GameState) penalize(seat uint8, count uint8) {
	drawn := g.drawInto(seat, count)
	g.LastAction.Penalized = int8(seat)
	g.LastAction.Penalty = drawn
}

// Forfeit removes seat from play. Its hand goes underneath the stockpile and
// turn order skips it from now on. If only one seat remains active, that seat
// wins.
func (g *GameState) Forfeit(seat uint8) error {
	if g.IsGameOver() {
		return fmt.Errorf("game is already over")
	}
	if seat >= g.Rules.numPlayers() {
		return fmt.Errorf("seat %d out of range", seat)
	}
	ps := &g.Players[seat]
	if ps.Out {
		return fmt.Errorf("seat %d already forfeited", seat)
	}

	g.buryCards(ps.Hand[:ps.HandLen])
	for i := uint8(0); i < ps.HandLen; i++ {
		ps.Hand[i] = 0
	}
	ps.HandLen = 0
	ps.Out = true

	g.LastAction = LastActionInfo{ActionIdx: ActionPass, ActingPlayer: seat, Played: EmptyCard, Penalized: -1, Forfeited: int8(seat)}

	if g.NumActivePlayers() == 1 {
		g.Winner = int8(g.NextPlayer(seat))
		g.Flags |= FlagGameOver
		return nil
	}
	if g.CurrentPlayer == seat {
		g.CurrentPlayer = g.NextPlayer(seat)
		g.endTurn()
	}
	return nil
}

// drawInto moves up to count cards from the stockpile into seat's hand,
// reshuffling the discard pile when the stockpile runs out. Returns the
// number of cards actually drawn.
func (g *GameState) drawInto(seat uint8, count uint8) uint8 {
	ps := &g.Players[seat]
	var drawn uint8
	for ; drawn < count; drawn++ {
		if g.StockLen == 0 {
			g.attemptReshuffle()
		}
		if g.StockLen == 0 {
			break
		}
		g.StockLen--
		ps.Hand[ps.HandLen] = g.Stockpile[g.StockLen]
		g.Stockpile[g.StockLen] = 0
		ps.HandLen++
	}
	return drawn
}

// attemptReshuffle moves all discard cards (except the top) back into the stockpile and shuffles.
func (g *GameState) attemptReshuffle() {
	// Need at least 2 cards in discard (one stays, rest go to stockpile).
	if g.DiscardLen <= 1 {
		return
	}

	// Keep the top discard card in place.
	topCard := g.DiscardPile[g.DiscardLen-1]

	// Move all other discard cards into the stockpile.
	count := g.DiscardLen - 1
	for i := uint8(0); i < count; i++ {
		g.Stockpile[i] = g.DiscardPile[i]
		g.DiscardPile[i] = 0
	}
	g.StockLen = count

	// Reset discard pile to just the top card.
	g.DiscardPile[0] = topCard
	g.DiscardPile[count] = 0
	g.DiscardLen = 1

	g.shuffleStock()
}

// beginLastAction resets LastAction for a new action by acting.
func (g *GameState) beginLastAction(actionIdx uint16, acting uint8) {
	g.LastAction = LastActionInfo{
		ActionIdx:    actionIdx,
		ActingPlayer: acting,
		Played:       EmptyCard,
		Penalized:    -1,
		Forfeited:    -1,
	}
}

// endTurn advances the turn counter and applies the turn cap.
func (g *GameState) endTurn() {
	g.TurnNumber++
	if g.Rules.MaxGameTurns > 0 && g.TurnNumber >= g.Rules.MaxGameTurns {
		g.Winner = int8(g.lowestScoringPlayer())
		g.Flags |= FlagGameOver
	}
}
