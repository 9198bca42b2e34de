package game

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/conn"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

// fakeSeat is an in-memory connection: the test reads what the server sent
// from out and injects client frames through in.
type fakeSeat struct {
	id        string
	out       chan protocol.Message
	in        chan conn.Inbound
	closed    chan struct{}
	closeOnce sync.Once
	closes    atomic.Int32
}

func newFakeSeat() *fakeSeat {
	return &fakeSeat{
		id:     uuid.NewString(),
		out:    make(chan protocol.Message, 256),
		in:     make(chan conn.Inbound, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeSeat) ID() string { return f.id }

func (f *fakeSeat) Send(m protocol.Message) error {
	select {
	case <-f.closed:
		return conn.ErrClosed
	default:
	}
	select {
	case f.out <- m:
		return nil
	default:
		return conn.ErrSlowConsumer
	}
}

func (f *fakeSeat) Receive(ctx context.Context, _ time.Duration) (conn.Inbound, conn.RecvStatus) {
	select {
	case in := <-f.in:
		return in, conn.RecvOK
	case <-f.closed:
		return conn.Inbound{}, conn.RecvClosed
	case <-ctx.Done():
		return conn.Inbound{}, conn.RecvCanceled
	}
}

func (f *fakeSeat) Close() error {
	f.closes.Add(1)
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSeat) act(a protocol.Action) { f.in <- conn.Inbound{Msg: a} }

func (f *fakeSeat) draw() { f.act(protocol.Action{Kind: protocol.ActionDraw}) }

func (f *fakeSeat) play(idx int, color string) {
	f.act(protocol.Action{Kind: protocol.ActionPlay, Payload: protocol.ActionPayload{CardIndex: &idx, Color: color}})
}

// next returns the next message sent to the seat.
func (f *fakeSeat) next(t *testing.T) protocol.Message {
	t.Helper()
	select {
	case m := <-f.out:
		return m
	case <-time.After(3 * time.Second):
		t.Fatalf("seat %s: no message within 3s", f.id)
		return nil
	}
}

// waitFor skips messages until one of type T arrives.
func waitFor[T protocol.Message](t *testing.T, f *fakeSeat) T {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-f.out:
			if v, ok := m.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// waitSnapshot skips messages until a snapshot satisfying pred arrives.
func waitSnapshot(t *testing.T, f *fakeSeat, pred func(protocol.Snapshot) bool) protocol.Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-f.out:
			if s, ok := m.(protocol.Snapshot); ok && pred(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return protocol.Snapshot{}
		}
	}
}

type runResult struct {
	outcome protocol.Outcome
	err     error
}

type table struct {
	reg    *session.Registry
	coord  *Coordinator
	seats  []*fakeSeat
	result chan runResult
	cancel context.CancelFunc
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTable seats n fake clients and starts the coordinator.
func newTable(t *testing.T, n int, cfg Config, rules Rules) *table {
	t.Helper()
	reg, err := session.NewRegistry(n, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	tb := &table{
		reg:    reg,
		coord:  NewCoordinator(rules, reg, cfg, WithLogger(quietLogger())),
		result: make(chan runResult, 1),
		cancel: cancel,
	}
	for i := 0; i < n; i++ {
		fs := newFakeSeat()
		s, err := reg.Admit(fs, "")
		require.NoError(t, err)
		tb.coord.Attach(ctx, s.Index, fs)
		tb.seats = append(tb.seats, fs)
	}
	go func() {
		out, err := tb.coord.Run(ctx)
		tb.result <- runResult{out, err}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-tb.coord.Done():
		case <-time.After(3 * time.Second):
			t.Error("coordinator did not stop")
		}
	})
	return tb
}

func (tb *table) wait(t *testing.T) runResult {
	t.Helper()
	select {
	case r := <-tb.result:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return runResult{}
	}
}

// riggedRules deals a fixed position instead of shuffling.
type riggedRules struct {
	*UnoRules
	state engine.GameState
}

func (r *riggedRules) Initialize(int) (engine.GameState, error) { return r.state, nil }

// rigState builds a started game from the full deck: hands[p] go to seat p,
// top starts the discard pile and every other card forms the stock.
func rigState(t *testing.T, hands [][]engine.Card, top engine.Card) engine.GameState {
	t.Helper()
	rules := engine.DefaultHouseRules()
	rules.NumPlayers = uint8(len(hands))
	g := engine.NewGame(5, rules)

	pool := append([]engine.Card(nil), g.Stockpile[:g.StockLen]...)
	take := func(c engine.Card) {
		for i, x := range pool {
			if x == c {
				pool = append(pool[:i], pool[i+1:]...)
				return
			}
		}
		t.Fatalf("card %s not available in the deck", c)
	}

	for p, hand := range hands {
		for i, c := range hand {
			take(c)
			g.Players[p].Hand[i] = c
		}
		g.Players[p].HandLen = uint8(len(hand))
	}
	take(top)
	g.DiscardPile[0] = top
	g.DiscardLen = 1
	g.ActiveColor = top.Color()

	for i := range g.Stockpile {
		g.Stockpile[i] = 0
	}
	copy(g.Stockpile[:], pool)
	g.StockLen = uint8(len(pool))
	g.CurrentPlayer = 0
	g.Flags |= engine.FlagGameStarted
	require.Equal(t, engine.DeckSize, g.CardCount())
	return g
}
