// Package session drives one protocol session: key agreement,
// message exchange gated by a traffic pattern, periodic key rotation,
// and raw sample staging. The lifecycle is an explicit state machine
// so failed and aborted sessions are first-class, testable states.
package session

import (
	"errors"
	"fmt"
)

// State is a session lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateEstablished
	StateExchanging
	StateRotating
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateEstablished:
		return "SessionEstablished"
	case StateExchanging:
		return "Exchanging"
	case StateRotating:
		return "Rotating"
	case StateComplete:
		return "Complete"
	case StateAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

var ErrInvalidTransition = errors.New("session: invalid state transition")

// transitions is the allowed successor set per state. Any state short
// of a terminal may abort.
var transitions = map[State][]State{
	StateIdle:        {StateEstablished, StateAborted},
	StateEstablished: {StateExchanging, StateAborted},
	StateExchanging:  {StateRotating, StateComplete, StateAborted},
	StateRotating:    {StateExchanging, StateAborted},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
