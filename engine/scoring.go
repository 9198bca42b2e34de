package engine

// HandPoints returns the point total of seat's hand.
func (g *GameState) HandPoints(seat uint8) int {
	total := 0
	ps := &g.Players[seat]
	for i := uint8(0); i < ps.HandLen; i++ {
		total += ps.Hand[i].Points()
	}
	return total
}

// lowestScoringPlayer returns the active seat holding the fewest points.
// Ties go to the lower seat index.
func (g *GameState) lowestScoringPlayer() uint8 {
	best := uint8(0)
	bestPoints := -1
	for p := uint8(0); p < g.Rules.numPlayers(); p++ {
		if g.Players[p].Out {
			continue
		}
		pts := g.HandPoints(p)
		if bestPoints < 0 || pts < bestPoints {
			best = p
			bestPoints = pts
		}
	}
	return best
}

// Scores returns the round score per seat. The winner collects the points
// left in every other seat's hand; everyone else scores 0. All zero until
// the game is terminal.
func (g *GameState) Scores() [MaxPlayers]int {
	var scores [MaxPlayers]int
	if !g.IsTerminal() || g.Winner < 0 {
		return scores
	}
	winner := uint8(g.Winner)
	for p := uint8(0); p < g.Rules.numPlayers(); p++ {
		if p != winner {
			scores[winner] += g.HandPoints(p)
		}
	}
	return scores
}
