// Package server accepts player connections over TCP or WebSocket, runs the
// hello handshake and seats each player at the table.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/auth"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/conn"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/game"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

// Options configures the handshake.
type Options struct {
	// HelloTimeout bounds the wait for the client's hello.
	HelloTimeout time.Duration
	// Verifier checks the hello. Nil accepts everyone.
	Verifier auth.Verifier
	// RequireHello refuses clients that never send a hello. It should be set
	// whenever Verifier checks credentials.
	RequireHello bool
	Conn         conn.Options
}

// Server seats connections into one session.
type Server struct {
	reg   *session.Registry
	coord *game.Coordinator
	opts  Options
	log   logrus.FieldLogger

	wg sync.WaitGroup
}

// New returns a server feeding reg and coord.
func New(reg *session.Registry, coord *game.Coordinator, opts Options, logger logrus.FieldLogger) *Server {
	if opts.HelloTimeout <= 0 {
		opts.HelloTimeout = 2 * time.Second
	}
	if opts.Verifier == nil {
		opts.Verifier = auth.AllowAll{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts.Conn.Logger = logger
	return &Server{reg: reg, coord: coord, opts: opts, log: logger}
}

// Serve accepts connections from ln until ctx is done, then closes ln and
// waits for in-flight handshakes. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.WithField("addr", ln.Addr().String()).Info("Listening for players")
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.WithError(err).Warn("Accept failed, retrying")
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.wg.Wait()
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Handle(ctx, raw)
		}()
	}
}

// Handle runs one connection from handshake to close. It returns when the
// connection has ended or ctx is done.
func (s *Server) Handle(ctx context.Context, raw net.Conn) {
	c := conn.New(raw, s.opts.Conn)
	log := s.log.WithFields(logrus.Fields{"conn": c.ID(), "remote": c.RemoteAddr()})

	seat, ok := s.handshake(ctx, c, log)
	if !ok {
		_ = c.Close()
		return
	}

	log = log.WithField("seat", seat.Index)
	s.coord.Attach(ctx, seat.Index, c)

	select {
	case <-c.Done():
		if err := c.Err(); err != nil {
			log.WithError(err).Debug("Connection ended")
		}
	case <-ctx.Done():
	}
}

// handshake waits for the hello, checks it and admits the connection.
func (s *Server) handshake(ctx context.Context, c *conn.Conn, log logrus.FieldLogger) (session.Seat, bool) {
	var hello protocol.Hello
	in, status := c.Receive(ctx, s.opts.HelloTimeout)
	switch status {
	case conn.RecvOK:
		if in.Err != nil {
			s.refuse(c, log, protocol.RejectMalformed, in.Err.Error())
			return session.Seat{}, false
		}
		h, ok := in.Msg.(protocol.Hello)
		if !ok {
			s.refuse(c, log, protocol.RejectProtocol, "expected hello, got "+string(in.Msg.MessageType()))
			return session.Seat{}, false
		}
		hello = h
	case conn.RecvTimeout:
		if s.opts.RequireHello {
			s.refuse(c, log, protocol.RejectUnauthorized, "no hello received")
			return session.Seat{}, false
		}
	default:
		return session.Seat{}, false
	}

	identity, err := s.opts.Verifier.Verify(hello)
	if err != nil {
		log.WithError(err).Info("Refused unauthorized client")
		s.refuse(c, log, protocol.RejectUnauthorized, err.Error())
		return session.Seat{}, false
	}

	seat, err := s.reg.Admit(c, identity)
	if err != nil {
		if errors.Is(err, session.ErrSessionFull) || errors.Is(err, session.ErrSessionStarted) {
			log.WithError(err).Info("Refused client, table closed")
			s.refuse(c, log, protocol.RejectCapacity, err.Error())
		} else {
			log.WithError(err).Warn("Admit failed")
		}
		return session.Seat{}, false
	}
	return seat, true
}

func (s *Server) refuse(c *conn.Conn, log logrus.FieldLogger, code protocol.RejectCode, reason string) {
	if err := c.Send(protocol.Rejected{Code: code, Reason: reason}); err != nil {
		log.WithError(err).Debug("Failed sending rejection")
	}
}
