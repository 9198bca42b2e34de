package engine

// WinnerSeat returns the winning seat and true once the game is terminal
// with a winner.
func (g *GameState) WinnerSeat() (uint8, bool) {
	if !g.IsTerminal() || g.Winner < 0 {
		return 0, false
	}
	return uint8(g.Winner), true
}

// StateHash returns a fast 64-bit FNV-1a hash over the observable game
// state. Two states with the same hands, piles, turn pointer and flags
// hash identically.
func (g *GameState) StateHash() uint64 {
	h := uint64(14695981039346656037) // FNV-1a offset basis
	const prime = uint64(1099511628211)

	np := g.Rules.numPlayers()
	for p := uint8(0); p < np; p++ {
		for i := uint8(0); i < g.Players[p].HandLen; i++ {
			h ^= uint64(g.Players[p].Hand[i])
			h *= prime
		}
		h ^= uint64(g.Players[p].HandLen) << 8
		h *= prime
	}
	for i := uint8(0); i < g.StockLen; i++ {
		h ^= uint64(g.Stockpile[i])
		h *= prime
	}
	for i := uint8(0); i < g.DiscardLen; i++ {
		h ^= uint64(g.DiscardPile[i])
		h *= prime
	}
	h ^= uint64(g.TurnNumber) << 32
	h *= prime
	h ^= uint64(g.CurrentPlayer) << 48
	h *= prime
	h ^= uint64(g.ActiveColor)<<56 | uint64(g.Flags)<<16
	h *= prime
	return h
}
