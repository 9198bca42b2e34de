package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/engine"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/conn"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/history"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

// Config holds the coordinator's turn limits.
type Config struct {
	TurnTimeout time.Duration
	MaxRejects  int // consecutive rule violations in one turn before a forced pass
}

// DefaultConfig returns a 60s turn and three attempts.
func DefaultConfig() Config {
	return Config{TurnTimeout: 60 * time.Second, MaxRejects: 3}
}

// Receiver is the inbound half of a connection.
type Receiver interface {
	Receive(ctx context.Context, timeout time.Duration) (conn.Inbound, conn.RecvStatus)
}

// inboundMsg is one frame tagged with the seat it came from.
type inboundMsg struct {
	seat int
	in   conn.Inbound
}

// Status is a point-in-time summary for operators.
type Status struct {
	Session  string            `json:"session"`
	Phase    string            `json:"phase"`
	Version  uint64            `json:"version"`
	Turn     int               `json:"turn"`
	TurnSeat int               `json:"turnSeat"`
	Seats    []session.Seat    `json:"seats"`
	Outcome  *protocol.Outcome `json:"outcome,omitempty"`
}

// Coordinator owns the game state of one session. Only the goroutine running
// Run reads or writes the state; everything else reaches it through the
// inbox or the registry's departures.
type Coordinator struct {
	rules Rules
	reg   *session.Registry
	bc    *Broadcaster
	rec   history.Recorder
	cfg   Config
	log   logrus.FieldLogger

	inbox chan inboundMsg
	done  chan struct{}

	// Owned by Run.
	state       engine.GameState
	actionIndex int
	startedAt   time.Time

	// Guarded by mu for Status readers.
	mu       sync.RWMutex
	phase    Phase
	version  uint64
	turn     int
	turnSeat int
	outcome  *protocol.Outcome
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder sends the action log and result to rec.
func WithRecorder(rec history.Recorder) Option {
	return func(c *Coordinator) { c.rec = rec }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator creates a coordinator for the seats of reg.
func NewCoordinator(rules Rules, reg *session.Registry, cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = def.TurnTimeout
	}
	if cfg.MaxRejects <= 0 {
		cfg.MaxRejects = def.MaxRejects
	}
	c := &Coordinator{
		rules:    rules,
		reg:      reg,
		cfg:      cfg,
		rec:      history.Nop{},
		log:      logrus.StandardLogger(),
		inbox:    make(chan inboundMsg, 4*reg.Capacity()),
		done:     make(chan struct{}),
		turnSeat: -1,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.WithField("session", reg.ID())
	c.bc = NewBroadcaster(reg, c.log)
	return c
}

// Done is closed once the session has finished.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Status returns a summary safe to read from any goroutine.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Session:  c.reg.ID(),
		Phase:    c.phase.String(),
		Version:  c.version,
		Turn:     c.turn,
		TurnSeat: c.turnSeat,
		Seats:    c.reg.Seats(),
		Outcome:  c.outcome,
	}
}

// Submit hands one inbound frame from seat to the coordinator.
func (c *Coordinator) Submit(ctx context.Context, seat int, in conn.Inbound) error {
	select {
	case c.inbox <- inboundMsg{seat: seat, in: in}:
		return nil
	case <-c.done:
		return ErrFinished
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach starts the pump that forwards frames from r to the coordinator until
// the stream ends, then reports the seat disconnected.
func (c *Coordinator) Attach(ctx context.Context, seat int, r Receiver) {
	go func() {
		log := c.log.WithField("seat", seat)
		for {
			in, status := r.Receive(ctx, 0)
			switch status {
			case conn.RecvOK:
				if err := c.Submit(ctx, seat, in); err != nil {
					return
				}
			case conn.RecvClosed:
				log.Debug("Stream closed")
				c.reg.OnDisconnect(seat)
				return
			case conn.RecvCanceled:
				return
			}
		}
	}()
}

// Run plays the session to its end and returns the outcome. It returns an
// error wrapping ErrFatal when the session ended on a fatal error.
func (c *Coordinator) Run(ctx context.Context) (protocol.Outcome, error) {
	defer close(c.done)

	if !c.awaitPlayers(ctx) {
		return c.finish(protocol.OutcomeAborted, -1, "server shutting down"), nil
	}

	c.reg.MarkStarted()
	seats := c.reg.Capacity()
	st, err := c.rules.Initialize(seats)
	if err != nil {
		err = fatalf("initialize %d seats: %v", seats, err)
		return c.finish(protocol.OutcomeError, -1, err.Error()), err
	}
	c.state = st
	c.startedAt = time.Now()
	c.setPhase(InProgress)
	c.log.WithField("seats", seats).Info("Game starting")
	for _, s := range c.reg.Connected() {
		c.bc.SendTo(s.Index, protocol.Info{Text: fmt.Sprintf("Game starting. You are Player %d", s.Index)})
	}
	c.publish()

	for {
		if err := ctx.Err(); err != nil {
			return c.finish(protocol.OutcomeAborted, -1, "server shutting down"), nil
		}

		// A finished game stands even if a seat dropped while it was published.
		if over, winner := c.rules.IsTerminal(&c.state); over {
			reason, detail := protocol.OutcomeWin, ""
			if c.state.LastAction.Forfeited >= 0 {
				reason, detail = protocol.OutcomeForfeit, "every other seat forfeited"
			}
			return c.finish(reason, winner, detail), nil
		}
		connected := c.reg.Connected()
		if len(connected) < 2 {
			winner := -1
			if len(connected) == 1 {
				winner = connected[0].Index
			}
			return c.finish(protocol.OutcomeForfeit, winner, "not enough players connected"), nil
		}

		seat := c.rules.NextTurn(&c.state)
		if s, ok := c.reg.Seat(seat); !ok || s.State != session.Connected {
			err = c.forfeit(seat)
		} else {
			err = c.runTurn(ctx, seat)
		}
		if errors.Is(err, ErrFatal) {
			c.log.WithError(err).Error("Session failed")
			return c.finish(protocol.OutcomeError, -1, err.Error()), err
		}
	}
}

// awaitPlayers waits until every seat is taken. Frames arriving early are
// refused.
func (c *Coordinator) awaitPlayers(ctx context.Context) bool {
	for {
		select {
		case <-c.reg.Ready():
			return true
		case m := <-c.inbox:
			c.bc.SendTo(m.seat, protocol.Rejected{Code: protocol.RejectProtocol, Reason: "waiting for players"})
		case <-ctx.Done():
			return false
		}
	}
}

// runTurn waits for seat's move. It returns once the turn pointer has moved
// (move, forced pass, forfeit), a non-current seat left, or ctx ended.
func (c *Coordinator) runTurn(ctx context.Context, seat int) error {
	log := c.log.WithFields(logrus.Fields{"seat": seat, "turn": c.state.TurnNumber})
	timer := time.NewTimer(c.cfg.TurnTimeout)
	defer timer.Stop()
	rejects := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			log.Info("Turn timed out, forcing a pass")
			c.bc.SendTo(seat, protocol.Timeout{Seat: seat, Turn: int(c.state.TurnNumber)})
			return c.forcePass(seat, "timeout")

		case gone := <-c.reg.Departures():
			if gone == seat {
				log.Info("Current player disconnected, forfeiting")
				return c.forfeit(seat)
			}
			if s, ok := c.reg.Seat(gone); ok && s.State == session.Disconnected {
				// Others see the seat go; its forfeit happens on its turn.
				c.publish()
			}
			if len(c.reg.Connected()) < 2 {
				return nil
			}

		case m := <-c.inbox:
			if m.seat != seat {
				c.rejectOffTurn(m)
				continue
			}
			if m.in.Err != nil {
				c.bc.SendTo(seat, protocol.Rejected{Code: protocol.RejectMalformed, Reason: m.in.Err.Error()})
				continue
			}
			act, ok := m.in.Msg.(protocol.Action)
			if !ok {
				c.bc.SendTo(seat, protocol.Rejected{Code: protocol.RejectProtocol, Reason: fmt.Sprintf("unexpected %s message", m.in.Msg.MessageType())})
				continue
			}

			err := c.tryAction(seat, act)
			if err == nil {
				return nil
			}
			var violation *RuleViolation
			switch {
			case errors.Is(err, protocol.ErrMalformed):
				c.bc.SendTo(seat, protocol.Rejected{Code: protocol.RejectMalformed, Reason: err.Error()})
			case errors.As(err, &violation):
				rejects++
				log.WithField("rejects", rejects).Info("Rejected action: ", violation.Reason)
				c.bc.SendTo(seat, protocol.Rejected{Code: protocol.RejectIllegal, Reason: violation.Reason})
				if rejects >= c.cfg.MaxRejects {
					log.Info("Too many rejected actions, forcing a pass")
					return c.forcePass(seat, "rejected")
				}
				timer.Reset(c.cfg.TurnTimeout)
			default:
				return err
			}
		}
	}
}

func (c *Coordinator) rejectOffTurn(m inboundMsg) {
	switch {
	case m.in.Err != nil:
		c.bc.SendTo(m.seat, protocol.Rejected{Code: protocol.RejectMalformed, Reason: m.in.Err.Error()})
	case m.in.Msg.MessageType() == protocol.TypeAction:
		c.bc.SendTo(m.seat, protocol.Rejected{Code: protocol.RejectNotYourTurn, Reason: ErrNotYourTurn.Error()})
	default:
		c.bc.SendTo(m.seat, protocol.Rejected{Code: protocol.RejectProtocol, Reason: fmt.Sprintf("unexpected %s message", m.in.Msg.MessageType())})
	}
}

// tryAction applies act for seat. On any error the state is untouched.
func (c *Coordinator) tryAction(seat int, act protocol.Action) error {
	idx, err := TranslateAction(seat, act)
	if err != nil {
		return err
	}
	next, err := c.rules.Apply(c.state, seat, idx)
	if err != nil {
		var violation *RuleViolation
		if errors.As(err, &violation) || errors.Is(err, ErrNotYourTurn) {
			if violation == nil {
				violation = &RuleViolation{Seat: seat, Action: idx, Reason: err.Error()}
			}
			return violation
		}
		return fatalf("apply action %d for seat %d: %v", idx, seat, err)
	}
	return c.commit(next, seat, string(act.Kind))
}

// forcePass applies the rules' default move for seat.
func (c *Coordinator) forcePass(seat int, why string) error {
	a := c.rules.DefaultAction(&c.state, seat)
	next, err := c.rules.Apply(c.state, seat, a)
	if err != nil {
		return fatalf("default action %d for seat %d rejected: %v", a, seat, err)
	}
	return c.commit(next, seat, "forced:"+why)
}

// forfeit removes seat from the game for good. The seat has already gone;
// its connection is closed with the rest when the session finishes.
func (c *Coordinator) forfeit(seat int) error {
	c.reg.Forfeit(seat)
	next, err := c.rules.Forfeit(c.state, seat)
	if err != nil {
		return fatalf("forfeit seat %d: %v", seat, err)
	}
	c.log.WithField("seat", seat).Info("Player forfeited")
	return c.commit(next, seat, "forfeit")
}

// commit installs next as the authoritative state, then broadcasts and
// records it.
func (c *Coordinator) commit(next engine.GameState, seat int, kind string) error {
	if n := next.CardCount(); n != engine.DeckSize {
		return fatalf("card conservation broken: %d cards after %s by seat %d", n, kind, seat)
	}
	c.state = next
	v := c.publish()

	c.actionIndex++
	identity := session.DefaultIdentity(seat)
	if s, ok := c.reg.Seat(seat); ok {
		identity = s.Identity
	}
	rec := history.ActionRecord{
		SessionID:   c.reg.ID(),
		ActionIndex: c.actionIndex,
		Version:     v,
		Seat:        seat,
		Identity:    identity,
		ActionType:  kind,
		Detail:      describeLastAction(&c.state, c.identityOf),
		Timestamp:   time.Now(),
	}
	if err := c.rec.RecordAction(context.Background(), rec); err != nil {
		c.log.WithError(err).Warn("Failed recording action")
	}
	return nil
}

func (c *Coordinator) identityOf(seat int) string {
	if s, ok := c.reg.Seat(seat); ok {
		return s.Identity
	}
	return session.DefaultIdentity(seat)
}

// publish bumps the version and broadcasts the current state.
func (c *Coordinator) publish() uint64 {
	c.mu.Lock()
	c.version++
	v := c.version
	c.turn = int(c.state.TurnNumber)
	c.turnSeat = -1
	if c.phase == InProgress && !c.state.IsTerminal() {
		c.turnSeat = c.rules.NextTurn(&c.state)
	}
	view := View{
		State:   &c.state,
		Version: v,
		Phase:   c.phase,
		Seats:   c.reg.Seats(),
		Outcome: c.outcome,
		Rules:   c.rules,
	}
	c.mu.Unlock()

	c.bc.Broadcast(view)
	return v
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// finish broadcasts the final snapshot, records the result and closes every
// connection.
func (c *Coordinator) finish(reason string, winner int, detail string) protocol.Outcome {
	out := protocol.Outcome{Reason: reason, Winner: winner, Detail: detail}
	if winner >= 0 {
		out.Identity = c.identityOf(winner)
	}
	started := c.phaseIs(InProgress)
	if started {
		out.Scores = c.rules.Scores(&c.state)
		if reason != protocol.OutcomeWin && winner >= 0 && len(out.Scores) > winner {
			// The sole survivor collects the points still held by everyone else.
			out.Scores = survivorScores(&c.state, winner, len(out.Scores))
		}
	}

	c.mu.Lock()
	c.phase = Finished
	c.outcome = &out
	c.mu.Unlock()

	if started {
		c.publish()
	} else {
		c.bc.Notify(protocol.Info{Text: "Session closed: " + detail})
	}
	c.bc.Notify(protocol.Info{Text: finishText(out)})

	c.log.WithFields(logrus.Fields{"reason": reason, "winner": winner, "scores": out.Scores}).Info("Game finished")

	var players []string
	for _, s := range c.reg.Seats() {
		players = append(players, s.Identity)
	}
	res := history.Result{
		SessionID:  c.reg.ID(),
		Reason:     reason,
		Winner:     winner,
		WinnerName: out.Identity,
		Players:    players,
		Scores:     out.Scores,
		Turns:      int(c.state.TurnNumber),
		Version:    c.Status().Version,
		StartedAt:  c.startedAt,
		FinishedAt: time.Now(),
	}
	if err := c.rec.RecordOutcome(context.Background(), res); err != nil {
		c.log.WithError(err).Warn("Failed recording result")
	}

	c.reg.CloseAll()
	return out
}

func (c *Coordinator) phaseIs(p Phase) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase == p
}

func survivorScores(st *engine.GameState, winner, n int) []int {
	scores := make([]int, n)
	for p := 0; p < n; p++ {
		if p != winner {
			scores[winner] += st.HandPoints(uint8(p))
		}
	}
	return scores
}

func finishText(out protocol.Outcome) string {
	switch {
	case out.Reason == protocol.OutcomeWin && out.Winner >= 0:
		return fmt.Sprintf("Game over. %s wins!", out.Identity)
	case out.Reason == protocol.OutcomeForfeit && out.Winner >= 0:
		return fmt.Sprintf("Game over. %s wins by forfeit.", out.Identity)
	case out.Reason == protocol.OutcomeError:
		return "Game ended on a server error."
	case out.Reason == protocol.OutcomeAborted:
		return "Game aborted: server shutting down."
	}
	return "Game over."
}
