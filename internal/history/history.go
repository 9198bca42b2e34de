// Package history publishes a session's action log and final result to
// optional side stores. The session never reads them back.
package history

import (
	"context"
	"errors"
	"time"
)

// ActionRecord is one applied change in a session.
type ActionRecord struct {
	SessionID   string    `json:"sessionId"`
	ActionIndex int       `json:"actionIndex"`
	Version     uint64    `json:"version"`
	Seat        int       `json:"seat"`
	Identity    string    `json:"identity"`
	ActionType  string    `json:"actionType"` // play, draw, pass, forced, forfeit
	Detail      string    `json:"detail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Result is the final outcome of a session.
type Result struct {
	SessionID  string    `json:"sessionId"`
	Reason     string    `json:"reason"`
	Winner     int       `json:"winner"`
	WinnerName string    `json:"winnerName,omitempty"`
	Players    []string  `json:"players"`
	Scores     []int     `json:"scores"`
	Turns      int       `json:"turns"`
	Version    uint64    `json:"version"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Recorder receives a session's history.
type Recorder interface {
	RecordAction(ctx context.Context, rec ActionRecord) error
	RecordOutcome(ctx context.Context, res Result) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAction(context.Context, ActionRecord) error { return nil }
func (Nop) RecordOutcome(context.Context, Result) error      { return nil }
func (Nop) Close() error                                     { return nil }

// Multi fans records out to several recorders, returning every error joined.
type Multi []Recorder

func (m Multi) RecordAction(ctx context.Context, rec ActionRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordAction(ctx, rec))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordOutcome(ctx context.Context, res Result) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordOutcome(ctx, res))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
