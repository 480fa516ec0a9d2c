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

// Package mocknode provides an in-process indexing node for tests. Connections are made over
// net.Pipe with the stream transport, or over a websocket served by an httptest server
package mocknode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/blinklabs-io/goindexer/frame"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/transport"
	"github.com/coder/websocket"
)

const (
	MockSessionPrefix = "mock-session-"
	MockServerVersion = "mocknode/1.0"
)

var ErrDialRefused = errors.New("mock node refused connection")

// HandlerFunc handles a request frame. Params holds the decoded request payload. A handler
// that returns without replying leaves the request unanswered
type HandlerFunc func(s *Session, f *frame.Frame, params schema.Record) error

// Node is a scriptable indexing node
type Node struct {
	codec          *schema.Codec
	frameCodec     *frame.Codec
	mu             sync.Mutex
	handlers       map[protocol.Opcode]HandlerFunc
	sessions       []*Session
	dials          int
	failDials      int
	nextSubId      uint64
	ackVersion     uint64
	waitGroup      sync.WaitGroup
	sessionChan    chan *Session
	errorChan      chan error
	closed         bool
	onceClose      sync.Once
	maxMessageSize int
}

// New returns a node with the default handlers for handshake, ping and subscriptions
func New() *Node {
	n := &Node{
		codec:       schema.Builtin(),
		handlers:    make(map[protocol.Opcode]HandlerFunc),
		ackVersion:  protocol.ProtocolVersion,
		sessionChan: make(chan *Session, 100),
		errorChan:   make(chan error, 100),
	}
	n.frameCodec = frame.NewCodec(n.codec, 0)
	n.handlers[protocol.OpcodeHandshake] = n.handleHandshake
	n.handlers[protocol.OpcodePing] = handlePing
	for _, topic := range protocol.Topics {
		n.handlers[topic.Subscribe.RequestOpcode] = n.handleSubscribe
	}
	n.handlers[protocol.OpcodeUnsubscribe] = handleUnsubscribe
	return n
}

// Codec returns the schema codec the node speaks
func (n *Node) Codec() *schema.Codec {
	return n.codec
}

// Handle replaces the handler for a request opcode. A nil handler leaves requests with that
// opcode unanswered
func (n *Node) Handle(opcode protocol.Opcode, handler HandlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if handler == nil {
		handler = func(*Session, *frame.Frame, schema.Record) error { return nil }
	}
	n.handlers[opcode] = handler
}

// SetAckVersion changes the protocol version announced in handshake acks
func (n *Node) SetAckVersion(version uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ackVersion = version
}

// FailDials makes the next count dials fail. A negative count fails every dial
func (n *Node) FailDials(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failDials = count
}

// Dials returns the number of dial attempts so far
func (n *Node) Dials() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dials
}

// Sessions returns every session accepted so far
func (n *Node) Sessions() []*Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Session(nil), n.sessions...)
}

// SessionChan receives every accepted session
func (n *Node) SessionChan() <-chan *Session {
	return n.sessionChan
}

// ErrorChan receives handler and protocol errors seen by the node
func (n *Node) ErrorChan() <-chan error {
	return n.errorChan
}

// Dialer returns a dialer that connects to the node over net.Pipe
func (n *Node) Dialer() transport.Dialer {
	return transport.DialerFunc(n.dial)
}

func (n *Node) dial(ctx context.Context, _ string) (transport.Conn, error) {
	n.mu.Lock()
	n.dials++
	if n.closed {
		n.mu.Unlock()
		return nil, ErrDialRefused
	}
	if n.failDials != 0 {
		if n.failDials > 0 {
			n.failDials--
		}
		n.mu.Unlock()
		return nil, fmt.Errorf("%w: dial %d", ErrDialRefused, n.Dials())
	}
	n.mu.Unlock()
	clientConn, serverConn := net.Pipe()
	n.accept(transport.NewStreamConn(serverConn, n.maxMessageSize))
	return transport.NewStreamConn(clientConn, n.maxMessageSize), nil
}

// ServeHTTP accepts websocket connections and serves the schema document at /schema
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == schema.SchemaPath {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(schema.BuiltinDocument())
		return
	}
	n.mu.Lock()
	n.dials++
	refuse := n.closed || n.failDials != 0
	if n.failDials > 0 {
		n.failDials--
	}
	n.mu.Unlock()
	if refuse {
		http.Error(w, "refused", http.StatusServiceUnavailable)
		return
	}
	wsConn, err := websocket.Accept(w, r, nil)
	if err != nil {
		n.reportError(err)
		return
	}
	sess := n.accept(transport.NewWebSocketConn(wsConn, int64(n.maxMessageSize)))
	// The connection belongs to the handler, so it must not return before the session ends
	<-sess.doneChan
}

func (n *Node) accept(conn transport.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	n.mu.Lock()
	sess := &Session{
		node:     n,
		id:       len(n.sessions) + 1,
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
		doneChan: make(chan struct{}),
	}
	n.sessions = append(n.sessions, sess)
	n.waitGroup.Add(1)
	n.mu.Unlock()
	go sess.serve()
	select {
	case n.sessionChan <- sess:
	default:
	}
	return sess
}

func (n *Node) handler(opcode protocol.Opcode) (HandlerFunc, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	handler, ok := n.handlers[opcode]
	return handler, ok
}

func (n *Node) reportError(err error) {
	select {
	case n.errorChan <- err:
	default:
	}
}

// Close drops every session and waits for them to finish
func (n *Node) Close() {
	n.onceClose.Do(func() {
		n.mu.Lock()
		n.closed = true
		sessions := append([]*Session(nil), n.sessions...)
		n.mu.Unlock()
		for _, sess := range sessions {
			sess.Drop()
		}
		n.waitGroup.Wait()
	})
}

func (n *Node) handleHandshake(s *Session, f *frame.Frame, params schema.Record) error {
	s.mu.Lock()
	s.handshake = params
	s.mu.Unlock()
	n.mu.Lock()
	version := n.ackVersion
	n.mu.Unlock()
	return s.Reply(f, schema.Record{
		"protocolVersion": version,
		"sessionId":       fmt.Sprintf("%s%d", MockSessionPrefix, s.id),
		"serverVersion":   MockServerVersion,
	})
}

func handlePing(s *Session, f *frame.Frame, params schema.Record) error {
	timestamp, _ := params.Uint("timestamp")
	return s.Reply(f, schema.Record{"timestamp": timestamp})
}

func (n *Node) handleSubscribe(s *Session, f *frame.Frame, params schema.Record) error {
	n.mu.Lock()
	n.nextSubId++
	id := n.nextSubId
	n.mu.Unlock()
	return s.Reply(f, schema.Record{"subscriptionId": id})
}

func handleUnsubscribe(s *Session, f *frame.Frame, params schema.Record) error {
	id, _ := params.Uint("subscriptionId")
	return s.Reply(f, schema.Record{"subscriptionId": id})
}
