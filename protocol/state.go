// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"errors"
	"fmt"
	"sync"
)

// ConnectionState is the lifecycle state of a client connection
type ConnectionState uint8

const (
	StateDisconnected ConnectionState = 0
	StateConnecting   ConnectionState = 1
	StateConnected    ConnectionState = 2
	StateHandshaking  ConnectionState = 3
	StateReady        ConnectionState = 4
	StateReconnecting ConnectionState = 5
	StateClosing      ConnectionState = 6
)

var stateNames = map[ConnectionState]string{
	StateDisconnected: "Disconnected",
	StateConnecting:   "Connecting",
	StateConnected:    "Connected",
	StateHandshaking:  "Handshaking",
	StateReady:        "Ready",
	StateReconnecting: "Reconnecting",
	StateClosing:      "Closing",
}

func (s ConnectionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

// StateMap lists the legal target states for each state
type StateMap map[ConnectionState][]ConnectionState

// ConnectionStateMap is the table of legal connection state transitions
var ConnectionStateMap = StateMap{
	StateDisconnected: {StateConnecting},
	StateConnecting: {
		StateConnected,
		StateReconnecting,
		StateDisconnected,
		StateClosing,
	},
	StateConnected: {
		StateHandshaking,
		StateReconnecting,
		StateDisconnected,
		StateClosing,
	},
	StateHandshaking: {
		StateReady,
		StateReconnecting,
		StateDisconnected,
		StateClosing,
	},
	StateReady: {
		StateReconnecting,
		StateDisconnected,
		StateClosing,
	},
	StateReconnecting: {
		StateConnecting,
		StateDisconnected,
		StateClosing,
	},
	StateClosing: {StateDisconnected},
}

// Allowed returns true if the map has an edge from one state to the other
func (s StateMap) Allowed(from, to ConnectionState) bool {
	for _, target := range s[from] {
		if target == to {
			return true
		}
	}
	return false
}

var ErrIllegalTransition = errors.New("illegal state transition")

// IllegalTransitionError is returned for a transition that is not in the state map
type IllegalTransitionError struct {
	From ConnectionState
	To   ConnectionState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// StateChangeFunc is called after every successful transition
type StateChangeFunc func(from, to ConnectionState)

// StateMachine tracks the connection state and enforces the state map
type StateMachine struct {
	mu       sync.Mutex
	state    ConnectionState
	stateMap StateMap
	onChange StateChangeFunc
}

// NewStateMachine returns a state machine in the Disconnected state
func NewStateMachine(onChange StateChangeFunc) *StateMachine {
	return &StateMachine{
		state:    StateDisconnected,
		stateMap: ConnectionStateMap,
		onChange: onChange,
	}
}

// Current returns the current state
func (m *StateMachine) Current() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to the specified state, or returns an *IllegalTransitionError and leaves
// the state unchanged
func (m *StateMachine) Transition(to ConnectionState) error {
	m.mu.Lock()
	from := m.state
	if !m.stateMap.Allowed(from, to) {
		m.mu.Unlock()
		return &IllegalTransitionError{From: from, To: to}
	}
	m.state = to
	m.mu.Unlock()
	if m.onChange != nil {
		m.onChange(from, to)
	}
	return nil
}

// Is returns true if the current state is one of the specified states
func (m *StateMachine) Is(states ...ConnectionState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, state := range states {
		if m.state == state {
			return true
		}
	}
	return false
}
