// Package client is the terminal front end: it renders the snapshots the
// server sends and asks the player for a move when it is their turn.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

var (
	// ErrServerClosed is returned when the server hangs up before the game ends.
	ErrServerClosed = errors.New("server closed connection")
	// ErrRefused is returned when the server turns the client away.
	ErrRefused = errors.New("refused by server")
)

const maxFrameBytes = 1 << 20

var wildColors = []string{"red", "yellow", "green", "blue"}

// Client plays one game for a human at a terminal.
type Client struct {
	input *bufio.Scanner
	out   io.Writer
	log   logrus.FieldLogger

	seat     int
	identity string
	last     protocol.Snapshot
}

// New returns a client reading the player's answers from in and printing to out.
func New(in io.Reader, out io.Writer, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{input: bufio.NewScanner(in), out: out, log: logger, seat: -1}
}

// Play introduces itself with hello and plays until the final snapshot. The
// stream is closed on return.
func (c *Client) Play(ctx context.Context, stream io.ReadWriteCloser, hello protocol.Hello) (protocol.Outcome, error) {
	defer stream.Close()
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	if err := send(stream, hello); err != nil {
		return protocol.Outcome{}, err
	}

	frames := make(chan protocol.Message, 32)
	readErr := make(chan error, 1)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(frames)
		sc := bufio.NewScanner(stream)
		sc.Buffer(make([]byte, 0, 4096), maxFrameBytes)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			m, err := protocol.Decode([]byte(line))
			if err != nil {
				c.log.WithError(err).Warn("Failed to parse server message")
				continue
			}
			select {
			case frames <- m:
			case <-quit:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for m := range frames {
		out, done, err := c.handle(stream, m)
		if err != nil || done {
			return out, err
		}
	}
	if err := ctx.Err(); err != nil {
		return protocol.Outcome{}, err
	}
	if err := <-readErr; err != nil {
		return protocol.Outcome{}, fmt.Errorf("%w: %v", ErrServerClosed, err)
	}
	return protocol.Outcome{}, ErrServerClosed
}

// handle processes one server message. done is set once the game is over.
func (c *Client) handle(w io.Writer, m protocol.Message) (protocol.Outcome, bool, error) {
	switch msg := m.(type) {
	case protocol.Welcome:
		c.seat = msg.Seat
		c.identity = msg.Identity
		c.printf("Welcome %s! Your player index: %d (table of %d)\n", msg.Identity, msg.Seat, msg.Seats)

	case protocol.Info:
		c.printf("[info] %s\n", msg.Text)

	case protocol.Timeout:
		if msg.Seat == c.seat {
			c.printf("You ran out of time; the server moved for you.\n")
		}

	case protocol.Rejected:
		c.printf("[rejected] %s: %s\n", msg.Code, msg.Reason)
		switch msg.Code {
		case protocol.RejectCapacity, protocol.RejectUnauthorized:
			return protocol.Outcome{}, true, fmt.Errorf("%w: %s", ErrRefused, msg.Reason)
		case protocol.RejectIllegal, protocol.RejectMalformed:
			if c.myTurn() {
				return protocol.Outcome{}, false, c.prompt(w)
			}
		}

	case protocol.Snapshot:
		if msg.Version <= c.last.Version {
			return protocol.Outcome{}, false, nil
		}
		c.last = msg
		c.seat = msg.Seat
		c.render(msg)
		if msg.Outcome != nil {
			c.renderOutcome(*msg.Outcome)
			return *msg.Outcome, true, nil
		}
		if c.myTurn() {
			return protocol.Outcome{}, false, c.prompt(w)
		}
		c.printf("It's %s's turn.\n", c.nameOf(msg.TurnSeat))

	default:
		c.log.WithField("type", m.MessageType()).Debug("Ignoring message")
	}
	return protocol.Outcome{}, false, nil
}

func (c *Client) myTurn() bool {
	return c.last.Outcome == nil && c.last.Version > 0 && c.last.TurnSeat == c.seat
}

func (c *Client) nameOf(seat int) string {
	for _, p := range c.last.Players {
		if p.Seat == seat {
			return p.Identity
		}
	}
	return fmt.Sprintf("Player%d", seat)
}

func (c *Client) render(s protocol.Snapshot) {
	c.printf("=== Game State (v%d) ===\n", s.Version)
	if top := s.Piles.DiscardTop; top != nil {
		c.printf("Current card: %s", top.Text)
		if s.ActiveColor != "" && s.ActiveColor != top.Color {
			c.printf(" (colour: %s)", s.ActiveColor)
		}
		c.printf("\n")
	}
	if s.LastAction != "" {
		c.printf("Last move: %s\n", s.LastAction)
	}
	c.printf("Your hand:\n")
	for i, card := range s.OwnHand {
		mark := ""
		if slices.Contains(s.Playable, i) {
			mark = " *"
		}
		c.printf("  %d: %s%s\n", i, card.Text, mark)
	}
	c.printf("Players (%s):\n", s.Direction)
	for _, p := range s.Players {
		line := fmt.Sprintf(" - %s cards: %d", p.Identity, p.HandCount)
		if p.State != "connected" {
			line += " [" + p.State + "]"
		}
		if p.Current {
			line += " <- turn"
		}
		c.printf("%s\n", line)
	}
	c.printf("Stock: %d  Discard: %d\n", s.Piles.StockSize, s.Piles.DiscardSize)
	c.printf("==================\n")
}

func (c *Client) renderOutcome(o protocol.Outcome) {
	switch {
	case o.Winner == c.seat && o.Winner >= 0:
		c.printf("You win! (%s)\n", o.Reason)
	case o.Winner >= 0:
		c.printf("%s wins (%s).\n", c.nameOf(o.Winner), o.Reason)
	default:
		c.printf("Game ended without a winner (%s).\n", o.Reason)
	}
	if o.Detail != "" {
		c.printf("%s\n", o.Detail)
	}
	if len(o.Scores) > 0 {
		parts := make([]string, len(o.Scores))
		for i, pts := range o.Scores {
			parts[i] = fmt.Sprintf("%s %d", c.nameOf(i), pts)
		}
		c.printf("Scores: %s\n", strings.Join(parts, ", "))
	}
}

// prompt asks for one move and sends it.
func (c *Client) prompt(w io.Writer) error {
	act, err := c.ask()
	if err != nil {
		return err
	}
	return send(w, act)
}

func (c *Client) ask() (protocol.Action, error) {
	s := c.last
	choices := "[p]lay [d]raw"
	if !s.CanDraw {
		choices = "[p]lay [s]kip"
	}
	for {
		answer, err := c.readLine(fmt.Sprintf("Your action (%s): ", choices))
		if err != nil {
			return protocol.Action{}, err
		}
		switch {
		case strings.HasPrefix(answer, "d"):
			return protocol.Action{Kind: protocol.ActionDraw}, nil
		case strings.HasPrefix(answer, "s"):
			return protocol.Action{Kind: protocol.ActionPass}, nil
		case !strings.HasPrefix(answer, "p"):
			c.printf("Please answer p, d or s.\n")
			continue
		}

		raw, err := c.readLine("Card index to play (0-based): ")
		if err != nil {
			return protocol.Action{}, err
		}
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 || idx >= len(s.OwnHand) {
			c.printf("No card at %q.\n", raw)
			continue
		}
		act := protocol.Action{Kind: protocol.ActionPlay, Payload: protocol.ActionPayload{CardIndex: &idx}}
		if s.OwnHand[idx].Color == "wild" {
			color, err := c.askColor()
			if err != nil {
				return protocol.Action{}, err
			}
			act.Payload.Color = color
		}
		return act, nil
	}
}

func (c *Client) askColor() (string, error) {
	for {
		color, err := c.readLine("New color (red/yellow/green/blue): ")
		if err != nil {
			return "", err
		}
		for _, wc := range wildColors {
			if color == wc || (color != "" && strings.HasPrefix(wc, color)) {
				return wc, nil
			}
		}
		c.printf("Unknown color %q.\n", color)
	}
}

// readLine prints prompt and returns the next answer, lower-cased.
func (c *Client) readLine(prompt string) (string, error) {
	c.printf("%s", prompt)
	if !c.input.Scan() {
		if err := c.input.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.ToLower(strings.TrimSpace(c.input.Text())), nil
}

func (c *Client) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func send(w io.Writer, m protocol.Message) error {
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(frame, '\n')); err != nil {
		return fmt.Errorf("send %s: %w", m.MessageType(), err)
	}
	return nil
}
