package engine

// HouseRules holds configurable game rule settings.
type HouseRules struct {
	MaxGameTurns       uint16 // 0 = unlimited
	CardsPerPlayer     uint8
	StrictWildDrawFour bool  // if true, Wild Draw Four needs no card of the active colour in hand
	NumPlayers         uint8 // number of seats (2–10); 0 treated as 2
}

// DefaultHouseRules returns the standard UNO house rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		MaxGameTurns:       0,
		CardsPerPlayer:     7,
		StrictWildDrawFour: false,
		NumPlayers:         2,
	}
}

// numPlayers returns the effective number of players, treating 0 as 2.
func (r *HouseRules) numPlayers() uint8 {
	if r.NumPlayers == 0 {
		return 2
	}
	return r.NumPlayers
}
