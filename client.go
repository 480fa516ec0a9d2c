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

// Package indexer implements a client for blockchain indexing nodes that speak a binary
// request/response and push protocol over a single long-lived socket.
//
// The client performs the handshake, correlates responses with requests, keeps the
// connection alive with pings, delivers notifications to subscription handlers and
// reconnects with exponential backoff after losing an established connection.
//
// This package is the main entry point into this library. The other packages can be used
// outside of this one, but it's not a primary design goal.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/goindexer/correlator"
	"github.com/blinklabs-io/goindexer/frame"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/subscription"
	"github.com/blinklabs-io/goindexer/transport"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ClientVersion is announced to the node in the handshake
const ClientVersion = "0.1.0"

var (
	ErrAlreadyConnected           = errors.New("client is already connected")
	ErrReconnectAttemptsExhausted = errors.New("reconnect attempts exhausted")
)

// SessionInfo describes the session negotiated in the handshake
type SessionInfo struct {
	SessionId       string
	ServerVersion   string
	ProtocolVersion uint64
}

// Client is a connection to an indexing node
type Client struct {
	config            Config
	logger            *slog.Logger
	dialer            transport.Dialer
	codec             *schema.Codec
	frameCodec        *frame.Codec
	schemaRegistry    *schema.Registry
	metricsRegisterer prometheus.Registerer
	metrics           *clientMetrics
	state             *protocol.StateMachine
	correlator        *correlator.Correlator
	subscriptions     *subscription.Registry
	clientId          string
	errorChan         chan error
	notifyChan        chan subscription.Notification
	doneChan          chan struct{}
	waitGroup         sync.WaitGroup
	onceStart         sync.Once
	onceClose         sync.Once
	// mutex serializes state transitions, session swaps and reconnect scheduling. It is
	// always taken before the correlator and subscription locks
	mutex           sync.Mutex
	session         *session
	sessionInfo     *SessionInfo
	nextSessionId   uint64
	closing         bool
	reconnectCancel context.CancelFunc
}

// NewClient returns a new Client object with the specified options. No connection is made
// until Connect is called
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{
		config:   NewConfig(),
		logger:   slog.Default(),
		clientId: uuid.NewString(),
		doneChan: make(chan struct{}),
	}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	c.logger = c.logger.With("component", "indexer", "client_id", c.clientId)
	if c.errorChan == nil {
		c.errorChan = make(chan error, 10)
	}
	if c.dialer == nil {
		dialer, err := transport.DialerFor(c.config.URL, c.config.MaxMessageSize)
		if err != nil {
			return nil, err
		}
		c.dialer = dialer
	}
	if c.codec != nil {
		c.frameCodec = frame.NewCodec(c.codec, c.config.MaxMessageSize)
	} else if c.schemaRegistry == nil {
		c.schemaRegistry = schema.NewRegistry(schema.WithLogger(c.logger))
	}
	c.notifyChan = make(chan subscription.Notification, c.config.NotificationQueueSize)
	c.correlator = correlator.New(
		correlator.WithLogger(c.logger),
		correlator.WithTimeout(c.config.RequestTimeout),
		correlator.WithMaxPending(c.config.MaxPendingRequests),
		correlator.WithCompleteFunc(c.requestCompleted),
	)
	c.metrics = newClientMetrics(c.metricsRegisterer, func() float64 {
		return float64(c.correlator.Len())
	})
	c.state = protocol.NewStateMachine(c.stateChanged)
	c.subscriptions = subscription.NewRegistry(
		c,
		subscription.WithLogger(c.logger),
	)
	return c, nil
}

// Config returns a copy of the client config
func (c *Client) Config() Config {
	ret := c.config
	ret.Credentials = append([]byte(nil), c.config.Credentials...)
	return ret
}

// ErrorChan returns the channel for asynchronous errors: connection loss without
// reconnection, authentication failures, exhausted reconnect attempts, failed subscription
// replays and connection-level errors from the node. The channel is closed by Close
func (c *Client) ErrorChan() <-chan error {
	return c.errorChan
}

// State returns the current connection state
func (c *Client) State() protocol.ConnectionState {
	return c.state.Current()
}

// Session returns the session negotiated in the last successful handshake
func (c *Client) Session() (SessionInfo, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.sessionInfo == nil {
		return SessionInfo{}, false
	}
	return *c.sessionInfo, true
}

// PendingRequests returns the number of outstanding requests
func (c *Client) PendingRequests() int {
	return c.correlator.Len()
}

// Connect opens the socket and performs the handshake. It fetches the schema first unless
// a codec was provided. A failed connect leaves the client Disconnected and is not retried
func (c *Client) Connect(ctx context.Context) error {
	c.mutex.Lock()
	if c.closing {
		c.mutex.Unlock()
		return protocol.ErrClientClosed
	}
	if err := c.state.Transition(protocol.StateConnecting); err != nil {
		c.mutex.Unlock()
		return fmt.Errorf("%w: %w", ErrAlreadyConnected, err)
	}
	c.onceStart.Do(func() {
		c.waitGroup.Add(1)
		go c.dispatchLoop()
	})
	c.mutex.Unlock()
	err := c.loadCodec(ctx)
	if err == nil {
		err = c.establish(ctx)
	}
	if err != nil {
		c.mutex.Lock()
		if !c.closing {
			_ = c.state.Transition(protocol.StateDisconnected)
		}
		c.mutex.Unlock()
		return err
	}
	return nil
}

func (c *Client) loadCodec(ctx context.Context) error {
	c.mutex.Lock()
	loaded := c.frameCodec != nil
	c.mutex.Unlock()
	if loaded {
		return nil
	}
	baseURL := c.config.SchemaURL
	if baseURL == "" {
		var err error
		baseURL, err = schema.BaseURL(c.config.URL)
		if err != nil {
			return err
		}
	}
	codec, err := c.schemaRegistry.Load(ctx, baseURL)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	c.mutex.Lock()
	c.codec = codec
	c.frameCodec = frame.NewCodec(codec, c.config.MaxMessageSize)
	c.mutex.Unlock()
	return nil
}

// establish dials and performs the handshake. The state must be Connecting. On failure the
// state is left where the attempt stopped and the caller decides where to go next
func (c *Client) establish(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	conn, err := c.dialer.Dial(dialCtx, c.config.URL)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.config.URL, err)
	}
	c.mutex.Lock()
	if c.closing {
		c.mutex.Unlock()
		_ = conn.Close()
		return protocol.ErrClientClosed
	}
	c.nextSessionId++
	sess := newSession(c.nextSessionId, conn)
	c.session = sess
	if err := c.state.Transition(protocol.StateConnected); err != nil {
		c.mutex.Unlock()
		c.dropSession(sess, err)
		return err
	}
	c.waitGroup.Add(1)
	go c.readLoop(sess)
	if err := c.state.Transition(protocol.StateHandshaking); err != nil {
		c.mutex.Unlock()
		c.dropSession(sess, err)
		return err
	}
	c.mutex.Unlock()
	ack, err := c.handshake(ctx, sess)
	if err != nil {
		c.dropSession(sess, err)
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closing {
		sess.close(protocol.ErrClientClosed)
		return protocol.ErrClientClosed
	}
	if sess.isClosed() || c.session != sess {
		return protocol.ErrConnectionClosed.Wrap(sess.err())
	}
	if err := c.state.Transition(protocol.StateReady); err != nil {
		sess.close(err)
		c.session = nil
		return err
	}
	sess.ready.Store(true)
	c.sessionInfo = ack
	c.logger.Info(
		"connection ready",
		"session_id", ack.SessionId,
		"server_version", ack.ServerVersion,
	)
	if c.config.PingInterval > 0 {
		c.waitGroup.Add(1)
		go c.pingLoop(sess)
	}
	return nil
}

// dropSession closes a session that never reached Ready
func (c *Client) dropSession(sess *session, cause error) {
	sess.close(cause)
	c.mutex.Lock()
	if c.session == sess {
		c.session = nil
	}
	c.mutex.Unlock()
}

// readySession returns the current session if the client is Ready
func (c *Client) readySession() (*session, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closing {
		return nil, protocol.ErrClientClosed
	}
	if c.session == nil || !c.session.ready.Load() ||
		!c.state.Is(protocol.StateReady) {
		return nil, protocol.ErrHandshakeRequired.Wrap(
			fmt.Errorf("client is %s", c.state.Current()),
		)
	}
	return c.session, nil
}

// handleLoss closes the session and starts the disconnect handling if the session had
// reached Ready. Losses of sessions that are still handshaking are reported to the
// goroutine performing the handshake through the session itself
func (c *Client) handleLoss(sess *session, cause error) {
	if !sess.close(cause) {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closing || c.session != sess {
		return
	}
	if !sess.ready.Load() {
		return
	}
	c.session = nil
	c.logger.Warn(
		"connection lost",
		"session", sess.id,
		"error", cause,
	)
	c.onDisconnectLocked(cause)
}

// surfaceErrorLocked delivers an error to the error channel without blocking. The client
// mutex must be held
func (c *Client) surfaceErrorLocked(err error) {
	if c.closing {
		return
	}
	select {
	case c.errorChan <- err:
	default:
		c.logger.Warn(
			"error channel full, dropping error",
			"error", err,
		)
	}
}

func (c *Client) surfaceError(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.surfaceErrorLocked(err)
}

// Close shuts the client down. Outstanding requests fail with ClientClosed and no handler
// runs once Close returns. It must not be called from a subscription handler
func (c *Client) Close() error {
	c.onceClose.Do(func() {
		c.mutex.Lock()
		c.closing = true
		if c.reconnectCancel != nil {
			c.reconnectCancel()
		}
		if !c.state.Is(protocol.StateDisconnected) {
			_ = c.state.Transition(protocol.StateClosing)
		}
		sess := c.session
		c.session = nil
		c.mutex.Unlock()
		if sess != nil {
			sess.close(protocol.ErrClientClosed)
		}
		// Fail outstanding requests first, since a subscription handler may be waiting
		// on one
		c.correlator.Close(protocol.ErrClientClosed)
		// Close doneChan to signify that we're shutting down
		close(c.doneChan)
		// Wait for other goroutines to finish
		c.waitGroup.Wait()
		c.subscriptions.Clear()
		c.mutex.Lock()
		if c.state.Is(protocol.StateClosing) {
			_ = c.state.Transition(protocol.StateDisconnected)
		}
		c.mutex.Unlock()
		close(c.errorChan)
		c.logger.Debug("client closed")
	})
	return nil
}

func (c *Client) stateChanged(from, to protocol.ConnectionState) {
	c.logger.Debug(
		"connection state changed",
		"from", from.String(),
		"state", to.String(),
	)
	c.metrics.state.Set(float64(to))
}

func (c *Client) requestCompleted(
	method protocol.Method,
	elapsed time.Duration,
	err error,
) {
	outcome := outcomeOk
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrRequestTimeout):
		outcome = outcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = outcomeCanceled
	default:
		outcome = outcomeError
	}
	c.metrics.requestCompleted(method, elapsed, outcome)
}
