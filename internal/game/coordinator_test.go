package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/conn"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

var testConfig = Config{TurnTimeout: 5 * time.Second, MaxRejects: 3}

func standardRules() Rules {
	return NewUnoRules(HouseRules{Seed: 42, CardsPerPlayer: 7})
}

func TestGameStartBroadcastsFirstSnapshot(t *testing.T) {
	tb := newTable(t, 3, testConfig, standardRules())

	for i, s := range tb.seats {
		info := waitFor[protocol.Info](t, s)
		assert.Contains(t, info.Text, "Game starting")

		snap := waitFor[protocol.Snapshot](t, s)
		assert.Equal(t, uint64(1), snap.Version)
		assert.Equal(t, "in_progress", snap.Phase)
		assert.Equal(t, i, snap.Seat)
		assert.Equal(t, 0, snap.TurnSeat, "seat 0 moves first")
		assert.Len(t, snap.OwnHand, 7)
		require.Len(t, snap.Players, 3)
		for j, p := range snap.Players {
			assert.Equal(t, j, p.Seat)
			assert.Equal(t, 7, p.HandCount)
		}
	}
	assert.Equal(t, "in_progress", tb.coord.Status().Phase)
}

func TestTwoPlayersDisconnectEndsInForfeit(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	for _, s := range tb.seats {
		waitFor[protocol.Snapshot](t, s)
	}

	require.NoError(t, tb.seats[1].Close())

	r := tb.wait(t)
	require.NoError(t, r.err)
	assert.Equal(t, protocol.OutcomeForfeit, r.outcome.Reason)
	assert.Equal(t, 0, r.outcome.Winner)
	assert.Equal(t, "Player0", r.outcome.Identity)

	final := waitSnapshot(t, tb.seats[0], func(s protocol.Snapshot) bool { return s.Outcome != nil })
	assert.Equal(t, "finished", final.Phase)
	assert.Equal(t, 0, final.Outcome.Winner)
	assert.Equal(t, -1, final.TurnSeat)

	// All connections are closed once the session is over.
	select {
	case <-tb.seats[0].closed:
	case <-time.After(time.Second):
		t.Fatal("surviving connection not closed")
	}
	assert.Equal(t, "finished", tb.coord.Status().Phase)
}

func TestRepeatedIllegalActionsForceAPass(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	s0 := tb.seats[0]
	first := waitFor[protocol.Snapshot](t, s0)
	require.Equal(t, 0, first.TurnSeat)

	for i := 0; i < 3; i++ {
		s0.play(engine.MaxHandSize-1, "") // far beyond a 7-card hand
		msg := s0.next(t)
		rej, ok := msg.(protocol.Rejected)
		require.True(t, ok, "attempt %d: expected Rejected, got %T", i+1, msg)
		assert.Equal(t, protocol.RejectIllegal, rej.Code)
	}

	// The third rejection is followed by the forced draw, and nothing in between.
	snap, ok := s0.next(t).(protocol.Snapshot)
	require.True(t, ok)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Len(t, snap.OwnHand, 8)
	assert.Equal(t, 1, snap.TurnSeat)
	assert.Equal(t, first.Piles.StockSize-1, snap.Piles.StockSize)
}

func TestIllegalActionReprompts(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	s0 := tb.seats[0]
	waitFor[protocol.Snapshot](t, s0)

	s0.play(engine.MaxHandSize-1, "")
	rej := waitFor[protocol.Rejected](t, s0)
	assert.Equal(t, protocol.RejectIllegal, rej.Code)

	// Still seat 0's turn: a legal action goes through.
	s0.draw()
	snap := waitFor[protocol.Snapshot](t, s0)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 1, snap.TurnSeat)
}

func TestOffTurnActionRejected(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	s0, s1 := tb.seats[0], tb.seats[1]
	waitFor[protocol.Snapshot](t, s0)
	waitFor[protocol.Snapshot](t, s1)

	s1.draw()
	rej := waitFor[protocol.Rejected](t, s1)
	assert.Equal(t, protocol.RejectNotYourTurn, rej.Code)
	assert.Equal(t, uint64(1), tb.coord.Status().Version, "off-turn action must not change state")

	s0.draw()
	snap := waitFor[protocol.Snapshot](t, s1)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 8, snap.Players[0].HandCount)
	assert.Equal(t, 7, snap.Players[1].HandCount)
}

func TestMalformedFramesDoNotCount(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	s0 := tb.seats[0]
	waitFor[protocol.Snapshot](t, s0)

	for i := 0; i < 5; i++ {
		s0.in <- conn.Inbound{Err: protocol.ErrMalformed}
		rej := waitFor[protocol.Rejected](t, s0)
		assert.Equal(t, protocol.RejectMalformed, rej.Code)
	}
	// An action without a card index is malformed too.
	s0.act(protocol.Action{Kind: protocol.ActionPlay})
	rej := waitFor[protocol.Rejected](t, s0)
	assert.Equal(t, protocol.RejectMalformed, rej.Code)

	s0.draw()
	snap := waitFor[protocol.Snapshot](t, s0)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Len(t, snap.OwnHand, 8, "malformed frames never trigger a forced move")
}

func TestUnexpectedMessageKind(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	s0 := tb.seats[0]
	waitFor[protocol.Snapshot](t, s0)

	s0.in <- conn.Inbound{Msg: protocol.Hello{Identity: "again"}}
	rej := waitFor[protocol.Rejected](t, s0)
	assert.Equal(t, protocol.RejectProtocol, rej.Code)
}

func TestTurnTimeoutForcesDraw(t *testing.T) {
	tb := newTable(t, 2, Config{TurnTimeout: 50 * time.Millisecond, MaxRejects: 3}, standardRules())
	s0 := tb.seats[0]
	waitFor[protocol.Snapshot](t, s0)

	to := waitFor[protocol.Timeout](t, s0)
	assert.Equal(t, 0, to.Seat)

	snap := waitFor[protocol.Snapshot](t, s0)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Len(t, snap.OwnHand, 8)
	assert.Equal(t, 1, snap.TurnSeat)
}

func TestOffTurnDisconnectWithThreeSeats(t *testing.T) {
	tb := newTable(t, 3, testConfig, standardRules())
	s0, s1, s2 := tb.seats[0], tb.seats[1], tb.seats[2]
	for _, s := range tb.seats {
		waitFor[protocol.Snapshot](t, s)
	}

	require.NoError(t, s2.Close())
	waitSnapshot(t, s0, func(s protocol.Snapshot) bool {
		return s.Players[2].State == session.Disconnected.String()
	})

	s0.draw()
	waitSnapshot(t, s1, func(s protocol.Snapshot) bool { return s.TurnSeat == 1 })
	s1.draw()

	// Seat 2 is forfeited when its turn comes and play returns to seat 0.
	snap := waitSnapshot(t, s0, func(s protocol.Snapshot) bool {
		return s.Players[2].State == session.Forfeited.String()
	})
	assert.Equal(t, 0, snap.TurnSeat)
	assert.Equal(t, 0, snap.Players[2].HandCount)
	assert.Equal(t, "in_progress", snap.Phase)

	seat, _ := tb.reg.Seat(2)
	assert.Equal(t, session.Forfeited, seat.State)

	// The forfeited connection is closed once, with the others, at the end.
	assert.Equal(t, int32(1), s2.closes.Load())
	tb.cancel()
	tb.wait(t)
	assert.Equal(t, int32(2), s2.closes.Load())
}

func TestWinStandsWhenAnOpponentDropsDuringTheFinalBroadcast(t *testing.T) {
	red5 := engine.NewCard(engine.ColorRed, 5)
	red7 := engine.NewCard(engine.ColorRed, 7)
	blue3 := engine.NewCard(engine.ColorBlue, 3)

	state := rigState(t, [][]engine.Card{{red7}, {blue3}}, red5)
	rules := &riggedRules{UnoRules: NewUnoRules(DefaultHouseRules()), state: state}
	tb := newTable(t, 2, testConfig, rules)
	s0, s1 := tb.seats[0], tb.seats[1]
	waitFor[protocol.Snapshot](t, s0)
	waitFor[protocol.Snapshot](t, s1)

	// Seat 1 stays open but its outbound queue is full, so the next send fails.
	for full := false; !full; {
		select {
		case s1.out <- protocol.Info{}:
		default:
			full = true
		}
	}

	s0.play(0, "")
	r := tb.wait(t)
	require.NoError(t, r.err)
	assert.Equal(t, protocol.OutcomeWin, r.outcome.Reason)
	assert.Equal(t, 0, r.outcome.Winner)
	assert.Equal(t, []int{3, 0}, r.outcome.Scores)

	seat, _ := tb.reg.Seat(1)
	assert.Equal(t, session.Disconnected, seat.State)
}

func TestCurrentSeatDisconnectForfeitsImmediately(t *testing.T) {
	tb := newTable(t, 3, testConfig, standardRules())
	s0, s1 := tb.seats[0], tb.seats[1]
	for _, s := range tb.seats {
		waitFor[protocol.Snapshot](t, s)
	}

	start := time.Now()
	require.NoError(t, s0.Close())
	snap := waitSnapshot(t, s1, func(s protocol.Snapshot) bool {
		return s.Players[0].State == session.Forfeited.String()
	})
	assert.Less(t, time.Since(start), testConfig.TurnTimeout)
	assert.Equal(t, 1, snap.TurnSeat)
}

func TestPlayingLastCardWins(t *testing.T) {
	red5 := engine.NewCard(engine.ColorRed, 5)
	red7 := engine.NewCard(engine.ColorRed, 7)
	blue3 := engine.NewCard(engine.ColorBlue, 3)
	green2 := engine.NewCard(engine.ColorGreen, 2)
	skip := engine.NewCard(engine.ColorYellow, engine.RankSkip)

	state := rigState(t, [][]engine.Card{{red7}, {blue3, green2, skip}}, red5)
	rules := &riggedRules{UnoRules: NewUnoRules(DefaultHouseRules()), state: state}
	tb := newTable(t, 2, testConfig, rules)
	s0 := tb.seats[0]
	waitFor[protocol.Snapshot](t, s0)

	s0.play(0, "")
	r := tb.wait(t)
	require.NoError(t, r.err)
	assert.Equal(t, protocol.OutcomeWin, r.outcome.Reason)
	assert.Equal(t, 0, r.outcome.Winner)
	assert.Equal(t, []int{3 + 2 + 20, 0}, r.outcome.Scores)

	final := waitSnapshot(t, tb.seats[1], func(s protocol.Snapshot) bool { return s.Outcome != nil })
	assert.Equal(t, protocol.OutcomeWin, final.Outcome.Reason)
	require.NotNil(t, final.Piles.DiscardTop)
	assert.Equal(t, "red 7", final.Piles.DiscardTop.Text)
}

func TestEverySeatSeesTheSameVersions(t *testing.T) {
	tb := newTable(t, 3, testConfig, standardRules())

	for turn := 0; turn < 6; turn++ {
		seat := turn % 3
		waitSnapshot(t, tb.seats[seat], func(s protocol.Snapshot) bool { return s.TurnSeat == seat })
		tb.seats[seat].draw()
	}
	waitSnapshot(t, tb.seats[0], func(s protocol.Snapshot) bool { return s.Version == 7 })
	tb.cancel()
	tb.wait(t)

	var sequences [3][]uint64
	for i, s := range tb.seats {
		for {
			select {
			case m := <-s.out:
				if snap, ok := m.(protocol.Snapshot); ok {
					sequences[i] = append(sequences[i], snap.Version)
				}
				continue
			default:
			}
			break
		}
	}
	// Each seat consumed a different prefix while waiting; compare the tails.
	for i := range sequences {
		for j := 1; j < len(sequences[i]); j++ {
			assert.Equal(t, sequences[i][j-1]+1, sequences[i][j], "seat %d versions not consecutive", i)
		}
	}
	assert.Equal(t, uint64(8), tb.coord.Status().Version, "1 initial + 6 moves + final")
}

func TestCancelAbortsSession(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	waitFor[protocol.Snapshot](t, tb.seats[0])

	tb.cancel()
	r := tb.wait(t)
	require.NoError(t, r.err)
	assert.Equal(t, protocol.OutcomeAborted, r.outcome.Reason)
	assert.Equal(t, -1, r.outcome.Winner)

	final := waitSnapshot(t, tb.seats[0], func(s protocol.Snapshot) bool { return s.Outcome != nil })
	assert.Equal(t, protocol.OutcomeAborted, final.Outcome.Reason)
}

// brokenRules refuses its own default action.
type brokenRules struct{ *UnoRules }

func (b brokenRules) DefaultAction(*engine.GameState, int) Action { return engine.EncodePlay(engine.MaxHandSize-1, engine.ColorWild) }

func TestFatalErrorEndsSession(t *testing.T) {
	tb := newTable(t, 2, Config{TurnTimeout: 20 * time.Millisecond, MaxRejects: 3}, brokenRules{NewUnoRules(DefaultHouseRules())})

	r := tb.wait(t)
	assert.ErrorIs(t, r.err, ErrFatal)
	assert.Equal(t, protocol.OutcomeError, r.outcome.Reason)

	final := waitSnapshot(t, tb.seats[1], func(s protocol.Snapshot) bool { return s.Outcome != nil })
	assert.Equal(t, protocol.OutcomeError, final.Outcome.Reason)
}

func TestSubmitAfterFinish(t *testing.T) {
	tb := newTable(t, 2, testConfig, standardRules())
	tb.cancel()
	tb.wait(t)
	<-tb.coord.Done()

	// Fill the inbox, then the next submit must observe the finished session.
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = tb.coord.Submit(ctx, 0, conn.Inbound{Msg: protocol.Action{Kind: protocol.ActionDraw}})
	}
	assert.ErrorIs(t, err, ErrFinished)
}
