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
	"fmt"
	"time"

	"github.com/blinklabs-io/goindexer/correlator"
	"github.com/blinklabs-io/goindexer/frame"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/subscription"
)

// callAwaitFunc waits for the outcome of a request that has already been written
type callAwaitFunc func(ctx context.Context) (any, error)

// Call sends a request for the method and waits for its response. The client must be Ready;
// requests are never queued while connecting or reconnecting. The returned value is the
// decoded response payload, normally a schema.Record
func (c *Client) Call(
	ctx context.Context,
	method protocol.Method,
	params any,
) (any, error) {
	await, err := c.startCall(ctx, method, params, 0)
	if err != nil {
		return nil, err
	}
	return await(ctx)
}

// callRecord is Call for methods whose response type is a record
func (c *Client) callRecord(
	ctx context.Context,
	method protocol.Method,
	params any,
) (schema.Record, error) {
	value, err := c.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	record, ok := value.(schema.Record)
	if !ok {
		return nil, protocol.ErrMalformedMessage.Wrap(
			fmt.Errorf("%s: unexpected response value %T", method, value),
		)
	}
	return record, nil
}

func (c *Client) startCall(
	ctx context.Context,
	method protocol.Method,
	params any,
	timeout time.Duration,
) (callAwaitFunc, error) {
	if method.Name == protocol.MethodHandshake.Name {
		return nil, fmt.Errorf("%s is performed by Connect", method)
	}
	if _, ok := protocol.MethodByRequestOpcode(method.RequestOpcode); !ok {
		return nil, protocol.ErrUnknownOpcode.Wrap(
			fmt.Errorf("method %s", method),
		)
	}
	sess, err := c.readySession()
	if err != nil {
		return nil, err
	}
	return c.send(ctx, sess, method, params, timeout, false)
}

// send registers, encodes and writes a request on the session. Unbounded requests are
// exempt from the pending request limit
func (c *Client) send(
	ctx context.Context,
	sess *session,
	method protocol.Method,
	params any,
	timeout time.Duration,
	unbounded bool,
) (callAwaitFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	register := c.correlator.Register
	if unbounded {
		register = c.correlator.RegisterUnbounded
	}
	id, resultChan, err := register(method.RequestOpcode, method, timeout)
	if err != nil {
		return nil, err
	}
	data, err := c.frameCodec.Encode(method.RequestOpcode, id, method.RequestType, params)
	if err != nil {
		c.correlator.Reject(id, err)
		res := <-resultChan
		return nil, res.Err
	}
	if err := sess.write(ctx, data); err != nil {
		// A failed write can leave a partial frame behind, so the socket is not reused
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.correlator.Reject(id, fmt.Errorf("%s: %w", method, ctxErr))
		} else {
			c.correlator.Reject(
				id,
				protocol.ErrConnectionClosed.WithRequestId(id).Wrap(err),
			)
		}
		c.handleLoss(sess, protocol.ErrConnectionClosed.Wrap(err))
		res := <-resultChan
		return nil, res.Err
	}
	c.metrics.frameSent(method.RequestOpcode)
	return func(ctx context.Context) (any, error) {
		return c.await(ctx, id, method, resultChan)
	}, nil
}

func (c *Client) await(
	ctx context.Context,
	id uint32,
	method protocol.Method,
	resultChan <-chan correlator.Result,
) (any, error) {
	select {
	case res := <-resultChan:
		return res.Value, res.Err
	case <-ctx.Done():
		c.correlator.Reject(id, fmt.Errorf("%s: %w", method, ctx.Err()))
		// Either our rejection or a result that raced with it
		res := <-resultChan
		return res.Value, res.Err
	}
}

// readLoop reads frames from the session until it is closed
func (c *Client) readLoop(sess *session) {
	defer c.waitGroup.Done()
	handshakeDone := false
	for {
		data, err := sess.conn.ReadMessage(sess.ctx)
		if err != nil {
			if !sess.isClosed() {
				c.handleLoss(sess, protocol.ErrConnectionClosed.Wrap(err))
			}
			return
		}
		f, err := c.frameCodec.Decode(data)
		if err != nil {
			c.handleLoss(sess, err)
			return
		}
		c.metrics.frameReceived(f.Opcode)
		if !handshakeDone {
			done, err := c.handleHandshakeFrame(sess, f)
			if err != nil {
				c.failHandshake(sess, err)
				return
			}
			handshakeDone = done
			continue
		}
		if err := c.handleFrame(sess, f); err != nil {
			c.handleLoss(sess, err)
			return
		}
	}
}

// handleFrame processes a frame received after the handshake. A returned error is fatal for
// the session
func (c *Client) handleFrame(sess *session, f *frame.Frame) error {
	if f.Opcode == protocol.OpcodeError {
		return c.handleErrorFrame(sess, f)
	}
	if topic, ok := protocol.TopicByNotificationOpcode(f.Opcode); ok {
		c.handleNotification(topic, f)
		return nil
	}
	_, known := protocol.MethodByResponseOpcode(f.Opcode)
	if !known || f.Opcode == protocol.OpcodeHandshakeAck {
		return protocol.ErrUnknownOpcode.Wrap(
			fmt.Errorf("unexpected frame %s", f),
		)
	}
	method, ok := c.correlator.Method(f.RequestId)
	if !ok {
		c.logger.Debug(
			"dropping late or unsolicited response",
			"opcode", f.Opcode.String(),
			"request_id", f.RequestId,
		)
		return nil
	}
	if method.ResponseOpcode != f.Opcode {
		err := protocol.ErrUnexpectedResponse.WithRequestId(f.RequestId).Wrap(
			fmt.Errorf("%s expects %s, received %s", method, method.ResponseOpcode, f.Opcode),
		)
		c.correlator.Reject(f.RequestId, err)
		return err
	}
	value, err := c.frameCodec.DecodePayload(method.ResponseType, f)
	if err != nil {
		// The frame boundary is intact, so only this request fails
		c.correlator.Reject(f.RequestId, err)
		return nil
	}
	c.correlator.Resolve(f.RequestId, value)
	return nil
}

// handleErrorFrame routes an ERROR frame. Request-scoped errors fail only their request,
// except protocol and auth errors, which also end the session
func (c *Client) handleErrorFrame(sess *session, f *frame.Frame) error {
	protoErr, err := c.decodeErrorFrame(f)
	if err != nil {
		return err
	}
	if f.RequestId != protocol.ConnectionRequestId {
		c.correlator.Reject(f.RequestId, protoErr)
	}
	switch protoErr.Category {
	case protocol.CategoryProtocol, protocol.CategoryAuth:
		return protoErr
	}
	if f.RequestId == protocol.ConnectionRequestId {
		c.logger.Warn(
			"node reported error",
			"session", sess.id,
			"error", protoErr,
		)
		c.surfaceError(protoErr)
	}
	return nil
}

func (c *Client) decodeErrorFrame(f *frame.Frame) (*protocol.Error, error) {
	value, err := c.frameCodec.DecodePayload(protocol.TypeErrorResponse, f)
	if err != nil {
		return nil, err
	}
	record, _ := value.(schema.Record)
	code, ok := record.Uint("code")
	if !ok || code > uint64(^uint32(0)) {
		return nil, protocol.ErrMalformedMessage.WithRequestId(f.RequestId).Wrap(
			errors.New("error frame without a valid code"),
		)
	}
	message, _ := record.String("message")
	ret := protocol.Translate(protocol.ErrorCode(code), message) // #nosec G115
	if f.RequestId != protocol.ConnectionRequestId {
		ret = ret.WithRequestId(f.RequestId)
	}
	return ret, nil
}

func (c *Client) handleNotification(topic protocol.TopicMapping, f *frame.Frame) {
	value, err := c.frameCodec.DecodePayload(topic.NotificationType, f)
	if err != nil {
		c.logger.Warn(
			"dropping undecodable notification",
			"type", topic.Topic.String(),
			"error", err,
		)
		c.metrics.notificationDropped(topic.Topic)
		return
	}
	notification := subscription.Notification{
		Type:  topic.Topic,
		Value: value,
	}
	if record, ok := value.(schema.Record); ok {
		notification.SubscriptionId, _ = record.Uint("subscriptionId")
	}
	select {
	case c.notifyChan <- notification:
	default:
		c.logger.Warn(
			"notification queue full, dropping notification",
			"type", topic.Topic.String(),
		)
		c.metrics.notificationDropped(topic.Topic)
	}
}

// dispatchLoop delivers queued notifications to subscription handlers
func (c *Client) dispatchLoop() {
	defer c.waitGroup.Done()
	for {
		select {
		case <-c.doneChan:
			return
		case notification := <-c.notifyChan:
			// Close may have started while the handler queue was being drained
			select {
			case <-c.doneChan:
				return
			default:
			}
			delivered := c.subscriptions.Dispatch(notification)
			c.metrics.notificationDispatched(notification.Type, delivered)
		}
	}
}
