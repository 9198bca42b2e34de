package engine

// maskWords is the number of uint64 words needed to hold NumActions bits.
const maskWords = (int(NumActions) + 63) / 64

// ActionMask is a bitmask over action indices.
type ActionMask [maskWords]uint64

// Has reports whether action idx is set.
func (m *ActionMask) Has(idx uint16) bool {
	if idx >= NumActions {
		return false
	}
	return m[idx/64]>>(idx%64)&1 == 1
}

// setBit sets bit idx in the bitmask.
func setBit(mask *ActionMask, idx uint16) {
	mask[idx/64] |= 1 << (idx % 64)
}

// LegalActions returns a bitmask of legal action indices for the current player.
// Zero heap allocation.
func (g *GameState) LegalActions() ActionMask {
	var mask ActionMask
	if g.IsTerminal() || g.Flags&FlagGameStarted == 0 {
		return mask
	}

	acting := g.CurrentPlayer
	ps := &g.Players[acting]
	playable := false
	for i := uint8(0); i < ps.HandLen; i++ {
		card := ps.Hand[i]
		if !g.canPlay(acting, card) {
			continue
		}
		playable = true
		if card.IsWild() {
			for c := uint8(0); c < NumColors; c++ {
				setBit(&mask, EncodePlay(i, c))
			}
		} else {
			setBit(&mask, EncodePlay(i, ColorWild))
		}
	}

	drawable := g.canDraw()
	if drawable {
		setBit(&mask, ActionDraw)
	}
	if !playable && !drawable {
		setBit(&mask, ActionPass)
	}
	return mask
}

// LegalActionsList returns legal actions as a slice (allocates).
func (g *GameState) LegalActionsList() []uint16 {
	mask := g.LegalActions()
	var actions []uint16
	for i := uint16(0); i < NumActions; i++ {
		if mask.Has(i) {
			actions = append(actions, i)
		}
	}
	return actions
}

// canPlay reports whether seat may put card on the current discard top.
func (g *GameState) canPlay(seat uint8, card Card) bool {
	switch card.Rank() {
	case RankWild:
		return true
	case RankWildDrawFour:
		if !g.Rules.StrictWildDrawFour {
			return true
		}
		return !g.holdsColor(seat, g.ActiveColor)
	}
	if card.Color() == g.ActiveColor {
		return true
	}
	top := g.DiscardTop()
	return top != EmptyCard && !top.IsWild() && card.Rank() == top.Rank()
}

// holdsColor reports whether seat has a non-wild card of the given colour.
func (g *GameState) holdsColor(seat uint8, color uint8) bool {
	ps := &g.Players[seat]
	for i := uint8(0); i < ps.HandLen; i++ {
		if !ps.Hand[i].IsWild() && ps.Hand[i].Color() == color {
			return true
		}
	}
	return false
}

// hasPlayableCard reports whether seat holds any card that canPlay accepts.
func (g *GameState) hasPlayableCard(seat uint8) bool {
	ps := &g.Players[seat]
	for i := uint8(0); i < ps.HandLen; i++ {
		if g.canPlay(seat, ps.Hand[i]) {
			return true
		}
	}
	return false
}

// canDraw reports whether a card can be drawn, directly or after a reshuffle.
func (g *GameState) canDraw() bool {
	return g.StockLen > 0 || g.DiscardLen > 1
}

// CanPlay reports whether seat may legally play card right now.
func (g *GameState) CanPlay(seat uint8, card Card) bool {
	return g.canPlay(seat, card)
}

// DefaultAction returns the action taken on behalf of a seat that did not act
// in time: draw when possible, otherwise pass. With an empty stock and a
// playable card in hand, pass is illegal, so the first playable card is played
// (a wild takes the lowest colour).
func (g *GameState) DefaultAction() uint16 {
	if g.canDraw() {
		return ActionDraw
	}
	acting := g.CurrentPlayer
	ps := &g.Players[acting]
	for i := uint8(0); i < ps.HandLen; i++ {
		card := ps.Hand[i]
		if !g.canPlay(acting, card) {
			continue
		}
		if card.IsWild() {
			return EncodePlay(i, ColorRed)
		}
		return EncodePlay(i, ColorWild)
	}
	return ActionPass
}
