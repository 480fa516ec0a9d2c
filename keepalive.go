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
	"errors"
	"time"

	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
)

// pingLoop sends a PING every ping interval while the session is open. A PONG that does not
// arrive within the request timeout means the connection is gone
func (c *Client) pingLoop(sess *session) {
	defer c.waitGroup.Done()
	timer := time.NewTimer(c.config.PingInterval)
	defer timer.Stop()
	for {
		select {
		case <-sess.doneChan:
			return
		case <-timer.C:
		}
		if err := c.sendPing(sess); err != nil {
			if sess.isClosed() {
				return
			}
			c.logger.Warn(
				"keep-alive failed",
				"session", sess.id,
				"error", err,
			)
			c.handleLoss(sess, err)
			return
		}
		timer.Reset(c.config.PingInterval)
	}
}

func (c *Client) sendPing(sess *session) error {
	timestamp := uint64(time.Now().UnixMilli()) // #nosec G115
	ctx, cancel := context.WithCancel(sess.ctx)
	defer cancel()
	await, err := c.send(
		ctx,
		sess,
		protocol.MethodPing,
		schema.Record{"timestamp": timestamp},
		c.config.RequestTimeout,
		true,
	)
	if err != nil {
		return err
	}
	value, err := await(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && sess.isClosed() {
			return nil
		}
		return err
	}
	if record, ok := value.(schema.Record); ok {
		if echoed, _ := record.Uint("timestamp"); echoed != timestamp {
			c.logger.Debug(
				"pong timestamp mismatch",
				"session", sess.id,
				"sent", timestamp,
				"received", echoed,
			)
		}
	}
	c.logger.Debug(
		"keep-alive",
		"session", sess.id,
		"rtt", time.Since(time.UnixMilli(int64(timestamp))), // #nosec G115
	)
	return nil
}
