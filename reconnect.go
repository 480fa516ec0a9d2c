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

package indexer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/cenkalti/backoff/v4"
)

// reconnectJitter is the largest fraction of a delay that is added as jitter
const reconnectJitter = 0.2

// reconnectBackoff produces reconnect delays of min(base*2^attempt, max) plus upward-only
// jitter. Jitter never pushes a delay past max, and delays never decrease
type reconnectBackoff struct {
	exponential *backoff.ExponentialBackOff
	maxDelay    time.Duration
	jitter      float64
	last        time.Duration
}

func newReconnectBackoff(baseDelay, maxDelay time.Duration, jitter float64) *reconnectBackoff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = baseDelay
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0
	exponential.MaxInterval = maxDelay
	exponential.MaxElapsedTime = 0
	exponential.Reset()
	return &reconnectBackoff{
		exponential: exponential,
		maxDelay:    maxDelay,
		jitter:      jitter,
	}
}

// Next returns the delay before the next attempt
func (b *reconnectBackoff) Next() time.Duration {
	delay := b.exponential.NextBackOff()
	if delay == backoff.Stop || delay > b.maxDelay {
		delay = b.maxDelay
	}
	if b.jitter > 0 && delay < b.maxDelay {
		delay += time.Duration(rand.Float64() * b.jitter * float64(delay)) // #nosec G404
		delay = min(delay, b.maxDelay)
	}
	delay = max(delay, b.last)
	b.last = delay
	return delay
}

// onDisconnectLocked handles the loss of a Ready connection. The client mutex must be held
func (c *Client) onDisconnectLocked(cause error) {
	category, _ := protocol.CategoryOf(cause)
	if !c.config.AutoReconnect || category == protocol.CategoryAuth {
		_ = c.state.Transition(protocol.StateDisconnected)
		c.failAllLocked(cause)
		c.surfaceErrorLocked(cause)
		return
	}
	if err := c.state.Transition(protocol.StateReconnecting); err != nil {
		c.logger.Error(
			"cannot start reconnecting",
			"error", err,
		)
		return
	}
	rejected := c.correlator.RejectAll(protocol.ErrReconnecting.Wrap(cause))
	if rejected > 0 {
		c.logger.Debug(
			"rejected in-flight requests",
			"count", rejected,
		)
	}
	if c.reconnectCancel != nil {
		c.reconnectCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.reconnectCancel = cancel
	c.waitGroup.Add(1)
	go c.reconnectLoop(ctx)
}

// failAllLocked fails every outstanding request and stops subscription delivery after a
// terminal disconnect. The client mutex must be held
func (c *Client) failAllLocked(cause error) {
	c.correlator.RejectAll(protocol.ErrConnectionClosed.Wrap(cause))
	c.subscriptions.DeactivateAll()
}

func (c *Client) reconnectLoop(ctx context.Context) {
	defer c.waitGroup.Done()
	delays := newReconnectBackoff(
		c.config.ReconnectBaseDelay,
		c.config.ReconnectMaxDelay,
		reconnectJitter,
	)
	attempt := 0
	for {
		delay := delays.Next()
		c.logger.Info(
			"reconnecting",
			"attempt", attempt+1,
			"delay", delay,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		attempt++
		c.metrics.reconnectAttempts.Inc()
		c.mutex.Lock()
		if c.closing || ctx.Err() != nil {
			c.mutex.Unlock()
			return
		}
		if err := c.state.Transition(protocol.StateConnecting); err != nil {
			c.mutex.Unlock()
			return
		}
		c.mutex.Unlock()
		err := c.establish(ctx)
		if err == nil {
			c.logger.Info(
				"reconnected",
				"attempt", attempt,
			)
			// A session lost again already has a newer reconnect loop that replays
			if sess, err := c.readySession(); err == nil {
				if err := c.subscriptions.ReplayAll(ctx, sess.id); err != nil {
					c.surfaceError(fmt.Errorf("replay subscriptions: %w", err))
				}
			}
			return
		}
		c.logger.Warn(
			"reconnect attempt failed",
			"attempt", attempt,
			"error", err,
		)
		c.mutex.Lock()
		if c.closing || ctx.Err() != nil {
			c.mutex.Unlock()
			return
		}
		category, _ := protocol.CategoryOf(err)
		if category == protocol.CategoryAuth ||
			attempt >= c.config.MaxReconnectAttempts {
			_ = c.state.Transition(protocol.StateDisconnected)
			c.failAllLocked(err)
			if category != protocol.CategoryAuth {
				err = fmt.Errorf(
					"%w: gave up after %d attempts: %w",
					ErrReconnectAttemptsExhausted,
					attempt,
					err,
				)
			}
			c.surfaceErrorLocked(err)
			c.mutex.Unlock()
			return
		}
		if err := c.state.Transition(protocol.StateReconnecting); err != nil {
			c.mutex.Unlock()
			c.logger.Error(
				"cannot continue reconnecting",
				"error", err,
			)
			return
		}
		c.mutex.Unlock()
	}
}
