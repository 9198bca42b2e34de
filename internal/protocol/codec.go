package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned for frames that are not a valid envelope or whose
// payload does not match the declared type.
var ErrMalformed = errors.New("malformed message")

// Envelope is the outer JSON object of every frame.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes m into a single envelope (without the frame delimiter).
func Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", m.MessageType(), err)
	}
	data, err := json.Marshal(Envelope{Type: m.MessageType(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", m.MessageType(), err)
	}
	return data, nil
}

// Decode parses one frame into a typed message.
func Decode(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var m Message
	switch env.Type {
	case TypeHello:
		m = &Hello{}
	case TypeWelcome:
		m = &Welcome{}
	case TypeSnapshot:
		m = &Snapshot{}
	case TypeAction:
		m = &Action{}
	case TypeRejected:
		m = &Rejected{}
	case TypeTimeout:
		m = &Timeout{}
	case TypeInfo:
		m = &Info{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, m); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
		}
	}
	return deref(m), nil
}

// deref turns the pointer used for unmarshalling back into a value so callers
// can type-switch on value types.
func deref(m Message) Message {
	switch v := m.(type) {
	case *Hello:
		return *v
	case *Welcome:
		return *v
	case *Snapshot:
		return *v
	case *Action:
		return *v
	case *Rejected:
		return *v
	case *Timeout:
		return *v
	case *Info:
		return *v
	}
	return m
}
