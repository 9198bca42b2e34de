// Package session tracks the seats of one game session: which connection
// holds which seat, and whether that seat is still connected.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

// Seat count bounds.
const (
	MinSeats = 2
	MaxSeats = 10
)

var (
	// ErrSessionFull is returned by Admit when every seat is taken.
	ErrSessionFull = errors.New("session full")
	// ErrSessionStarted is returned by Admit once the game has started.
	ErrSessionStarted = errors.New("session already started")
	// ErrInvalidCapacity is returned by NewRegistry for a seat count outside MinSeats..MaxSeats.
	ErrInvalidCapacity = errors.New("invalid seat count")
)

// State is the liveness of a seat.
type State int

const (
	Connected State = iota
	Disconnected
	Forfeited
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Forfeited:
		return "forfeited"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Connected, Disconnected, Forfeited} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown seat state %q", b)
}

// Endpoint is the part of a connection the registry needs. *conn.Conn
// satisfies it.
type Endpoint interface {
	ID() string
	Send(protocol.Message) error
	Close() error
}

// Seat is a copy of one seat's record.
type Seat struct {
	Index    int       `json:"index"`
	Identity string    `json:"identity"`
	State    State     `json:"state"`
	ConnID   string    `json:"conn"`
	JoinedAt time.Time `json:"joinedAt"`
}

type seatEntry struct {
	Seat
	ep Endpoint
}

// Registry binds connections to seats. It is safe for concurrent use.
type Registry struct {
	id       string
	capacity int
	log      logrus.FieldLogger

	mu      sync.RWMutex
	seats   []seatEntry
	started bool

	ready      chan struct{}
	readyOnce  sync.Once
	departures chan int
}

// NewRegistry creates an empty registry with capacity seats.
func NewRegistry(capacity int, logger logrus.FieldLogger) (*Registry, error) {
	if capacity < MinSeats || capacity > MaxSeats {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidCapacity, capacity, MinSeats, MaxSeats)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := uuid.NewString()
	return &Registry{
		id:         id,
		capacity:   capacity,
		log:        logger.WithField("session", id),
		seats:      make([]seatEntry, 0, capacity),
		ready:      make(chan struct{}),
		departures: make(chan int, capacity),
	}, nil
}

// ID returns the session identifier.
func (r *Registry) ID() string { return r.id }

// Capacity returns the number of seats.
func (r *Registry) Capacity() int { return r.capacity }

// DefaultIdentity is the name given to a seat whose client did not pick one.
func DefaultIdentity(seat int) string { return fmt.Sprintf("Player%d", seat) }

// Admit binds ep to the next free seat and sends it a welcome. An empty
// identity is replaced with DefaultIdentity.
func (r *Registry) Admit(ep Endpoint, identity string) (Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return Seat{}, ErrSessionStarted
	}
	if len(r.seats) >= r.capacity {
		return Seat{}, ErrSessionFull
	}

	idx := len(r.seats)
	if identity == "" {
		identity = DefaultIdentity(idx)
	}
	s := Seat{
		Index:    idx,
		Identity: identity,
		State:    Connected,
		ConnID:   ep.ID(),
		JoinedAt: time.Now(),
	}
	r.seats = append(r.seats, seatEntry{Seat: s, ep: ep})
	log := r.log.WithFields(logrus.Fields{"seat": idx, "identity": identity, "conn": s.ConnID})
	log.Info("Player admitted")

	// The welcome is queued before Ready can fire, so it precedes the first snapshot.
	if err := ep.Send(protocol.Welcome{Session: r.id, Seat: idx, Identity: identity, Seats: r.capacity}); err != nil {
		log.WithError(err).Warn("Failed sending welcome")
	}

	if len(r.seats) == r.capacity {
		r.readyOnce.Do(func() { close(r.ready) })
	}
	return s, nil
}

// OnDisconnect marks a connected seat as disconnected and publishes it on
// Departures. It reports whether the state changed; repeated calls are no-ops.
func (r *Registry) OnDisconnect(seat int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seat < 0 || seat >= len(r.seats) || r.seats[seat].State != Connected {
		return false
	}
	r.seats[seat].State = Disconnected
	r.log.WithField("seat", seat).Info("Player disconnected")

	// Each seat departs at most once and the buffer holds capacity entries.
	select {
	case r.departures <- seat:
	default:
		r.log.WithField("seat", seat).Warn("Departure queue full")
	}
	return true
}

// Forfeit removes a seat from play for good. It reports whether the state changed.
func (r *Registry) Forfeit(seat int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seat < 0 || seat >= len(r.seats) || r.seats[seat].State == Forfeited {
		return false
	}
	r.seats[seat].State = Forfeited
	r.log.WithField("seat", seat).Info("Player forfeited")
	return true
}

// Seat returns a copy of one seat.
func (r *Registry) Seat(seat int) (Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if seat < 0 || seat >= len(r.seats) {
		return Seat{}, false
	}
	return r.seats[seat].Seat, true
}

// Seats returns copies of every admitted seat, in seat order.
func (r *Registry) Seats() []Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Seat, len(r.seats))
	for i := range r.seats {
		out[i] = r.seats[i].Seat
	}
	return out
}

// Connected returns copies of the seats still connected.
func (r *Registry) Connected() []Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Seat
	for i := range r.seats {
		if r.seats[i].State == Connected {
			out = append(out, r.seats[i].Seat)
		}
	}
	return out
}

// Endpoint returns the connection bound to a seat.
func (r *Registry) Endpoint(seat int) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if seat < 0 || seat >= len(r.seats) {
		return nil, false
	}
	return r.seats[seat].ep, true
}

// Ready is closed once every seat has been admitted.
func (r *Registry) Ready() <-chan struct{} { return r.ready }

// Departures delivers the index of each seat that disconnects.
func (r *Registry) Departures() <-chan int { return r.departures }

// MarkStarted refuses further admissions.
func (r *Registry) MarkStarted() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
}

// Started reports whether MarkStarted has been called.
func (r *Registry) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

// CloseAll closes every bound connection. Seats keep their state.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.started = true
	eps := make([]Endpoint, 0, len(r.seats))
	for i := range r.seats {
		eps = append(eps, r.seats[i].ep)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for i, ep := range eps {
		wg.Add(1)
		go func(seat int, ep Endpoint) {
			defer wg.Done()
			if err := ep.Close(); err != nil {
				r.log.WithError(err).WithField("seat", seat).Debug("Closing connection")
			}
		}(i, ep)
	}
	wg.Wait()
}
