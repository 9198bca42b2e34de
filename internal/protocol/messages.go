// Package protocol defines the messages exchanged between the table server
// and its clients. Every frame is one JSON envelope; the connection layer
// delimits frames with a newline.
package protocol

// MessageType identifies the kind of message carried by an Envelope.
type MessageType string

// Constants defining the message kinds of the wire protocol.
const (
	TypeHello    MessageType = "hello"    // Client → server, once, at connect.
	TypeWelcome  MessageType = "welcome"  // Server → client: seat assignment.
	TypeSnapshot MessageType = "snapshot" // Server → client: per-recipient state after every change.
	TypeAction   MessageType = "action"   // Client → server: the current seat's move.
	TypeRejected MessageType = "rejected" // Server → client: an action or message was refused.
	TypeTimeout  MessageType = "timeout"  // Server → client: the turn timed out (informational).
	TypeInfo     MessageType = "info"     // Server → client: free-form notice.
)

// Message is implemented by every typed payload.
type Message interface {
	MessageType() MessageType
}

// Hello introduces a client. All fields are optional unless the server
// requires authentication.
type Hello struct {
	Identity   string `json:"identity,omitempty"`
	Token      string `json:"token,omitempty"`      // Signed token, when the server verifies tokens.
	Passphrase string `json:"passphrase,omitempty"` // Table passphrase, when the table is private.
}

// Welcome confirms admission and tells the client its seat.
type Welcome struct {
	Session  string `json:"session"`
	Seat     int    `json:"player_index"`
	Identity string `json:"identity"`
	Seats    int    `json:"seats"`
}

// Card is the wire form of one card.
type Card struct {
	Color string `json:"color"`
	Rank  string `json:"rank"`
	Text  string `json:"text"`
}

// PlayerView is what every recipient may know about a seat: never its cards.
type PlayerView struct {
	Seat      int    `json:"player_index"`
	Identity  string `json:"id"`
	State     string `json:"state"`
	HandCount int    `json:"hand_count"`
	Current   bool   `json:"current"`
}

// Piles describes the shared piles.
type Piles struct {
	DiscardTop  *Card `json:"current_card,omitempty"`
	DiscardSize int   `json:"discard_size"`
	StockSize   int   `json:"stock_size"`
}

// Outcome reasons.
const (
	OutcomeWin     = "win"     // A seat emptied its hand (or the turn cap was reached).
	OutcomeForfeit = "forfeit" // Too few seats remain connected.
	OutcomeError   = "error"   // The session hit an unrecoverable error.
	OutcomeAborted = "aborted" // The server shut down before the game ended.
)

// Outcome is attached to the final snapshot of a session.
type Outcome struct {
	Reason   string `json:"reason"`
	Winner   int    `json:"winner"` // -1 when nobody won
	Identity string `json:"winner_id,omitempty"`
	Scores   []int  `json:"scores,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Snapshot is a per-recipient projection of the game state.
type Snapshot struct {
	Version     uint64       `json:"version"`
	Phase       string       `json:"phase"`
	Seat        int          `json:"player_index"` // recipient's own seat
	TurnSeat    int          `json:"current_player_index"`
	Turn        int          `json:"turn"`
	Direction   string       `json:"direction"`
	ActiveColor string       `json:"active_color"`
	OwnHand     []Card       `json:"your_hand"`
	Playable    []int        `json:"playable,omitempty"` // own-hand indices legal right now; only on the recipient's turn
	CanDraw     bool         `json:"can_draw,omitempty"`
	Players     []PlayerView `json:"players"`
	Piles       Piles        `json:"piles"`
	LastAction  string       `json:"last_action,omitempty"`
	Outcome     *Outcome     `json:"outcome,omitempty"`
}

// ActionKind names a move.
type ActionKind string

// Action kinds accepted from clients.
const (
	ActionPlay ActionKind = "play"
	ActionDraw ActionKind = "draw"
	ActionPass ActionKind = "pass"
)

// ActionPayload carries the arguments of a play.
type ActionPayload struct {
	CardIndex *int   `json:"card_index,omitempty"`
	Color     string `json:"color,omitempty"` // colour chosen for a wild card
}

// Action is a move proposed by the seat holding the turn.
type Action struct {
	Kind    ActionKind    `json:"kind"`
	Payload ActionPayload `json:"payload"`
}

// RejectCode classifies a rejection.
type RejectCode string

// Rejection codes.
const (
	RejectMalformed    RejectCode = "malformed"
	RejectNotYourTurn  RejectCode = "not_your_turn"
	RejectIllegal      RejectCode = "illegal"
	RejectCapacity     RejectCode = "capacity"
	RejectUnauthorized RejectCode = "unauthorized"
	RejectProtocol     RejectCode = "protocol"
)

// Rejected tells the sender that its message was refused.
type Rejected struct {
	Code   RejectCode `json:"code"`
	Reason string     `json:"reason"`
}

// Timeout tells a seat its turn expired and a forced pass was applied.
type Timeout struct {
	Seat int `json:"player_index"`
	Turn int `json:"turn"`
}

// Info is a free-form notice.
type Info struct {
	Text string `json:"text"`
}

func (Hello) MessageType() MessageType    { return TypeHello }
func (Welcome) MessageType() MessageType  { return TypeWelcome }
func (Snapshot) MessageType() MessageType { return TypeSnapshot }
func (Action) MessageType() MessageType   { return TypeAction }
func (Rejected) MessageType() MessageType { return TypeRejected }
func (Timeout) MessageType() MessageType  { return TypeTimeout }
func (Info) MessageType() MessageType     { return TypeInfo }
