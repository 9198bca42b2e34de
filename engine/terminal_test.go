package engine

import (
	"testing"
)

// TestWinnerSeatWhileRunning verifies no winner is reported mid-game.
func TestWinnerSeatWhileRunning(t *testing.T) {
	g := newDealtGame(t, 3)
	if _, ok := g.WinnerSeat(); ok {
		t.Error("WinnerSeat reported a winner before the game ended")
	}
	if g.IsTerminal() {
		t.Error("freshly dealt game is terminal")
	}
}

// TestStateHashTracksMoves verifies the hash changes when a move is applied
// and is reproducible from the same position.
func TestStateHashTracksMoves(t *testing.T) {
	a := newDealtGame(t, 2)
	b := newDealtGame(t, 2)
	if a.StateHash() != b.StateHash() {
		t.Fatal("identical positions hash differently")
	}

	before := a.StateHash()
	if err := a.ApplyAction(ActionDraw); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if a.StateHash() == before {
		t.Error("hash unchanged after a draw")
	}
	if err := b.ApplyAction(ActionDraw); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if a.StateHash() != b.StateHash() {
		t.Error("same move from the same position hashed differently")
	}
}
