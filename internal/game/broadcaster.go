package game

import (
	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/session"
)

// Broadcaster delivers per-seat snapshots and notices. Sends are queue
// handoffs, so one slow or dead seat never holds up the others; a failed send
// marks the seat disconnected.
type Broadcaster struct {
	reg *session.Registry
	log logrus.FieldLogger
}

// NewBroadcaster returns a broadcaster over the seats of reg.
func NewBroadcaster(reg *session.Registry, logger logrus.FieldLogger) *Broadcaster {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Broadcaster{reg: reg, log: logger}
}

// Broadcast sends every seat that has not forfeited its own projection of v.
// It returns the number of seats that received it.
func (b *Broadcaster) Broadcast(v View) int {
	delivered := 0
	for _, s := range v.Seats {
		if s.State == session.Forfeited {
			continue
		}
		if b.SendTo(s.Index, Project(v, s.Index)) {
			delivered++
		}
	}
	b.log.WithFields(logrus.Fields{"version": v.Version, "delivered": delivered}).Debug("Broadcast snapshot")
	return delivered
}

// SendTo sends one message to one seat, reporting the seat disconnected on
// failure.
func (b *Broadcaster) SendTo(seat int, msg protocol.Message) bool {
	ep, ok := b.reg.Endpoint(seat)
	if !ok {
		return false
	}
	if err := ep.Send(msg); err != nil {
		if b.reg.OnDisconnect(seat) {
			b.log.WithError(err).WithField("seat", seat).Warn("Send failed, marking seat disconnected")
		}
		return false
	}
	return true
}

// Notify sends msg to every connected seat.
func (b *Broadcaster) Notify(msg protocol.Message) {
	for _, s := range b.reg.Connected() {
		b.SendTo(s.Index, msg)
	}
}
