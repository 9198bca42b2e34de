package engine

import (
	"testing"
)

// TestHandPoints verifies face values, 20 for action cards and 50 for wilds.
func TestHandPoints(t *testing.T) {
	g := craftGame(t, [][]Card{{red5, yel9, redSkp, wildD4}, {}}, red2, []Card{green7})

	if got := g.HandPoints(0); got != 5+9+20+50 {
		t.Errorf("HandPoints(0) = %d, want 84", got)
	}
	if got := g.HandPoints(1); got != 0 {
		t.Errorf("HandPoints(1) = %d, want 0 for an empty hand", got)
	}
}

// TestScoresZeroUntilTerminal verifies no one scores while the game runs.
func TestScoresZeroUntilTerminal(t *testing.T) {
	g := craftGame(t, [][]Card{{red5, blue3}, {yel9}}, red2, []Card{green7})

	if scores := g.Scores(); scores != [MaxPlayers]int{} {
		t.Errorf("Scores = %v, want all zero", scores)
	}
}

// TestScoresAfterForfeit verifies the survivor collects only the hands still
// in play: a forfeited hand is buried and worth nothing.
func TestScoresAfterForfeit(t *testing.T) {
	g := craftGame(t, [][]Card{{redRev, blue3}, {yel9}, {wild}}, red2, []Card{green7})

	if err := g.Forfeit(0); err != nil {
		t.Fatalf("Forfeit(0) failed: %v", err)
	}
	if err := g.Forfeit(1); err != nil {
		t.Fatalf("Forfeit(1) failed: %v", err)
	}
	seat, ok := g.WinnerSeat()
	if !ok || seat != 2 {
		t.Fatalf("WinnerSeat = %d, %v; want 2, true", seat, ok)
	}
	scores := g.Scores()
	if scores[2] != 0 || scores[0] != 0 || scores[1] != 0 {
		t.Errorf("Scores = %v, want all zero", scores[:3])
	}
}

// TestLowestScoringPlayerTies verifies ties go to the lower seat.
func TestLowestScoringPlayerTies(t *testing.T) {
	g := craftGame(t, [][]Card{{yel9}, {red5, NewCard(ColorGreen, 4)}, {blue3}}, red2, nil)

	if got := g.lowestScoringPlayer(); got != 2 {
		t.Errorf("lowestScoringPlayer = %d, want 2", got)
	}
	g.Players[2].Hand[0] = NewCard(ColorBlue, 9)
	if got := g.lowestScoringPlayer(); got != 0 {
		t.Errorf("lowestScoringPlayer = %d, want 0 on a tie", got)
	}
	g.Players[0].Out = true
	if got := g.lowestScoringPlayer(); got != 1 {
		t.Errorf("lowestScoringPlayer = %d, want 1 with seat 0 out", got)
	}
}
