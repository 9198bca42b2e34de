// Package conn wraps a byte stream (TCP, or a WebSocket adapted to a stream)
// in a framed, full-duplex message connection. Each Conn runs one reader and
// one writer goroutine; Send never blocks the caller.
package conn

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

var (
	// ErrClosed is returned by Send once the connection is closed.
	ErrClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Send when the outbound queue is full.
	ErrSlowConsumer = errors.New("outbound queue full")
	// ErrFrameTooLarge ends a connection whose peer sent an oversized frame.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

const frameDelimiter = '\n'

// Options tunes a connection. Zero values fall back to defaults.
type Options struct {
	SendQueue     int           // outbound frames buffered before Send reports ErrSlowConsumer
	WriteTimeout  time.Duration // per-frame write deadline, also bounds the flush on Close
	MaxFrameBytes int
	Logger        logrus.FieldLogger
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		SendQueue:     64,
		WriteTimeout:  5 * time.Second,
		MaxFrameBytes: 64 * 1024,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendQueue <= 0 {
		o.SendQueue = d.SendQueue
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = d.MaxFrameBytes
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Inbound is one frame received from the peer. Err is set (wrapping
// protocol.ErrMalformed) when the frame could not be decoded.
type Inbound struct {
	Msg protocol.Message
	Err error
}

// RecvStatus reports how a Receive call ended.
type RecvStatus int

const (
	RecvOK RecvStatus = iota
	RecvTimeout
	RecvClosed
	RecvCanceled
)

func (s RecvStatus) String() string {
	switch s {
	case RecvOK:
		return "ok"
	case RecvTimeout:
		return "timeout"
	case RecvClosed:
		return "closed"
	case RecvCanceled:
		return "canceled"
	}
	return fmt.Sprintf("RecvStatus(%d)", int(s))
}

// Conn is a framed message connection.
type Conn struct {
	id   string
	raw  net.Conn
	opts Options
	log  logrus.FieldLogger

	sendq   chan []byte
	inbound chan Inbound

	mu      sync.Mutex
	closing bool
	err     error

	closeOnce  sync.Once
	stopWriter chan struct{} // closed by Close to make the writer flush and exit
	done       chan struct{} // closed once both goroutines have stopped and raw is closed
	readerDone chan struct{}
	writerDone chan struct{}
}

// New wraps raw and starts its reader and writer goroutines.
func New(raw net.Conn, opts Options) *Conn {
	opts = opts.withDefaults()
	id := uuid.NewString()
	c := &Conn{
		id:         id,
		raw:        raw,
		opts:       opts,
		log:        opts.Logger.WithFields(logrus.Fields{"conn": id, "remote": remoteString(raw)}),
		sendq:      make(chan []byte, opts.SendQueue),
		inbound:    make(chan Inbound, 16),
		stopWriter: make(chan struct{}),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	go func() {
		<-c.readerDone
		<-c.writerDone
		close(c.done)
	}()
	return c
}

func remoteString(raw net.Conn) string {
	if addr := raw.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Done is closed after the connection has fully shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the first error that ended the connection, nil for a clean
// local Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil && !c.closing {
		c.err = err
	}
	c.mu.Unlock()
	c.shutdown()
}

// Send enqueues one message. It never blocks: a full queue yields
// ErrSlowConsumer and the message is dropped.
func (c *Conn) Send(m protocol.Message) error {
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	frame = append(frame, frameDelimiter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrClosed
	}
	select {
	case c.sendq <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Receive waits for the next inbound frame for at most timeout (no limit
// when timeout <= 0).
func (c *Conn) Receive(ctx context.Context, timeout time.Duration) (Inbound, RecvStatus) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case in, ok := <-c.inbound:
		if !ok {
			return Inbound{}, RecvClosed
		}
		return in, RecvOK
	case <-expired:
		return Inbound{}, RecvTimeout
	case <-ctx.Done():
		return Inbound{}, RecvCanceled
	}
}

// Close flushes queued frames (bounded by WriteTimeout) and closes the
// stream. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.stopWriter) })

	select {
	case <-c.writerDone:
	case <-time.After(c.opts.WriteTimeout):
		c.log.Warn("Flush on close timed out")
	}
	c.shutdown()
	<-c.done
	return nil
}

// shutdown closes the underlying stream, unblocking both goroutines.
func (c *Conn) shutdown() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.stopWriter) })
	_ = c.raw.Close()
}

func (c *Conn) readLoop() {
	defer close(c.readerDone)
	defer close(c.inbound)

	r := bufio.NewReaderSize(c.raw, 4096)
	for {
		line, err := readFrame(r, c.opts.MaxFrameBytes)
		if err != nil {
			switch {
			case errors.Is(err, ErrFrameTooLarge):
				c.log.Warn("Closing connection: oversized frame")
				c.fail(err)
			case errors.Is(err, io.EOF):
				c.fail(io.EOF)
			default:
				c.fail(fmt.Errorf("read: %w", err))
			}
			return
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		msg, derr := protocol.Decode(line)
		select {
		case c.inbound <- Inbound{Msg: msg, Err: derr}:
		case <-c.stopWriter:
			return
		}
	}
}

// readFrame reads up to the next delimiter, refusing frames longer than max.
func readFrame(r *bufio.Reader, max int) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice(frameDelimiter)
		if len(buf)+len(chunk) > max+1 {
			return nil, ErrFrameTooLarge
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return buf[:len(buf)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return nil, err
		}
	}
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)
	for {
		select {
		case frame := <-c.sendq:
			if err := c.write(frame); err != nil {
				c.fail(err)
				return
			}
		case <-c.stopWriter:
			c.flush()
			return
		}
	}
}

// flush drains what is already queued.
func (c *Conn) flush() {
	for {
		select {
		case frame := <-c.sendq:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(frame []byte) error {
	if err := c.raw.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.WithError(err).Debug("Set write deadline")
	}
	if _, err := c.raw.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
