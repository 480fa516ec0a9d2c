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

// Package correlator matches responses to outstanding requests by request ID
package correlator

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxPending = 1000
)

// Result is the completion of a request. Exactly one of Value and Err is meaningful
type Result struct {
	Value any
	Err   error
}

type pendingRequest struct {
	id        uint32
	opcode    protocol.Opcode
	method    protocol.Method
	createdAt time.Time
	deadline  time.Time
	unbounded bool
	timer     *time.Timer
	result    chan Result
}

// Correlator tracks outstanding requests. Request IDs are allocated from a counter that
// starts at 1 and never wraps, so an ID is never reused for the lifetime of the correlator
type Correlator struct {
	mu         sync.Mutex
	logger     *slog.Logger
	timeout    time.Duration
	maxPending int
	nextId     uint64
	pending    map[uint32]*pendingRequest
	unbounded  int
	closed     bool
	closeErr   error
	onComplete CompleteFunc
}

// CompleteFunc is called once for every completed request with its outcome
type CompleteFunc func(method protocol.Method, elapsed time.Duration, err error)

type CorrelatorOptionFunc func(*Correlator)

// New returns a correlator
func New(opts ...CorrelatorOptionFunc) *Correlator {
	c := &Correlator{
		logger:     slog.Default(),
		timeout:    DefaultTimeout,
		maxPending: DefaultMaxPending,
		nextId:     1,
		pending:    make(map[uint32]*pendingRequest),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) CorrelatorOptionFunc {
	return func(c *Correlator) {
		c.logger = logger
	}
}

// WithTimeout specifies the default request timeout
func WithTimeout(timeout time.Duration) CorrelatorOptionFunc {
	return func(c *Correlator) {
		c.timeout = timeout
	}
}

// WithMaxPending specifies the maximum number of outstanding requests
func WithMaxPending(maxPending int) CorrelatorOptionFunc {
	return func(c *Correlator) {
		c.maxPending = maxPending
	}
}

// WithCompleteFunc specifies a function called for every completed request
func WithCompleteFunc(completeFunc CompleteFunc) CorrelatorOptionFunc {
	return func(c *Correlator) {
		c.onComplete = completeFunc
	}
}

// withFirstId starts the ID counter at the specified value
func withFirstId(id uint64) CorrelatorOptionFunc {
	return func(c *Correlator) {
		c.nextId = id
	}
}

// Register allocates a request ID and starts the request timer. A timeout of 0 uses the
// correlator default. The returned channel receives exactly one Result
func (c *Correlator) Register(
	opcode protocol.Opcode,
	method protocol.Method,
	timeout time.Duration,
) (uint32, <-chan Result, error) {
	return c.register(opcode, method, timeout, false)
}

// RegisterUnbounded is Register for requests that neither count against nor are refused by
// the pending limit, such as keep-alive pings
func (c *Correlator) RegisterUnbounded(
	opcode protocol.Opcode,
	method protocol.Method,
	timeout time.Duration,
) (uint32, <-chan Result, error) {
	return c.register(opcode, method, timeout, true)
}

func (c *Correlator) register(
	opcode protocol.Opcode,
	method protocol.Method,
	timeout time.Duration,
	unbounded bool,
) (uint32, <-chan Result, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil, c.closeErr
	}
	bounded := len(c.pending) - c.unbounded
	if !unbounded && c.maxPending > 0 && bounded >= c.maxPending {
		return 0, nil, protocol.ErrTooManyPendingRequests.Wrap(
			fmt.Errorf("%d requests outstanding", bounded),
		)
	}
	if c.nextId > math.MaxUint32 {
		return 0, nil, protocol.ErrRequestIdExhausted
	}
	id := uint32(c.nextId) // #nosec G115
	c.nextId++
	now := time.Now()
	req := &pendingRequest{
		id:        id,
		opcode:    opcode,
		method:    method,
		createdAt: now,
		deadline:  now.Add(timeout),
		unbounded: unbounded,
		result:    make(chan Result, 1),
	}
	req.timer = time.AfterFunc(timeout, func() {
		c.Reject(
			id,
			protocol.ErrRequestTimeout.WithRequestId(id).Wrap(
				fmt.Errorf("%s did not complete within %s", method, timeout),
			),
		)
	})
	c.pending[id] = req
	if unbounded {
		c.unbounded++
	}
	return id, req.result, nil
}

// take removes and returns the pending request with the specified ID. Only the caller
// that takes an entry may complete it
func (c *Correlator) take(id uint32) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[id]
	if !ok {
		return nil
	}
	c.removeLocked(req)
	return req
}

func (c *Correlator) removeLocked(req *pendingRequest) {
	delete(c.pending, req.id)
	if req.unbounded {
		c.unbounded--
	}
}

func (c *Correlator) complete(req *pendingRequest, result Result) {
	req.timer.Stop()
	req.result <- result
	if c.onComplete != nil {
		c.onComplete(req.method, time.Since(req.createdAt), result.Err)
	}
}

// Resolve completes the request with a value. It returns false if the request is not
// outstanding, which happens for duplicate or late responses
func (c *Correlator) Resolve(id uint32, value any) bool {
	req := c.take(id)
	if req == nil {
		c.logger.Debug(
			"dropping response for unknown request",
			"component", "correlator",
			"request_id", id,
		)
		return false
	}
	c.complete(req, Result{Value: value})
	return true
}

// Reject completes the request with an error. It returns false if the request is not
// outstanding
func (c *Correlator) Reject(id uint32, err error) bool {
	req := c.take(id)
	if req == nil {
		c.logger.Debug(
			"dropping error for unknown request",
			"component", "correlator",
			"request_id", id,
			"error", err,
		)
		return false
	}
	c.complete(req, Result{Err: err})
	return true
}

// Method returns the method of the outstanding request, which determines the response
// opcode and payload type the request accepts
func (c *Correlator) Method(id uint32) (protocol.Method, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[id]
	if !ok {
		return protocol.Method{}, false
	}
	return req.method, true
}

// RejectAll completes every outstanding request with the error and returns how many there
// were. Requests registered after the sweep are not affected
func (c *Correlator) RejectAll(err error) int {
	c.mu.Lock()
	reqs := make([]*pendingRequest, 0, len(c.pending))
	for _, req := range c.pending {
		reqs = append(reqs, req)
		c.removeLocked(req)
	}
	c.mu.Unlock()
	for _, req := range reqs {
		var reqErr error = err
		if protoErr, ok := err.(*protocol.Error); ok {
			reqErr = protoErr.WithRequestId(req.id)
		}
		c.complete(req, Result{Err: reqErr})
	}
	return len(reqs)
}

// Close rejects every outstanding request with the error and refuses new registrations
func (c *Correlator) Close(err error) int {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	c.closed = true
	c.closeErr = err
	c.mu.Unlock()
	return c.RejectAll(err)
}

// Len returns the number of outstanding requests
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
