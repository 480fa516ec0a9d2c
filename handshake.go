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

	"github.com/blinklabs-io/goindexer/frame"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
)

// handshake sends the HANDSHAKE frame and waits for the ack
func (c *Client) handshake(ctx context.Context, sess *session) (*SessionInfo, error) {
	params := schema.Record{
		"clientName":      c.config.ClientName,
		"clientVersion":   ClientVersion,
		"protocolVersion": protocol.ProtocolVersion,
		"clientId":        c.clientId,
		"schemaHash":      c.codec.Hash(),
	}
	if len(c.config.Credentials) > 0 {
		params["credentials"] = c.config.Credentials
	}
	data, err := c.frameCodec.Encode(
		protocol.OpcodeHandshake,
		protocol.ConnectionRequestId,
		protocol.TypeHandshakeRequest,
		params,
	)
	if err != nil {
		return nil, err
	}
	hsCtx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
	defer cancel()
	if err := sess.write(hsCtx, data); err != nil {
		return nil, protocol.ErrConnectionClosed.Wrap(
			fmt.Errorf("send handshake: %w", err),
		)
	}
	c.metrics.frameSent(protocol.OpcodeHandshake)
	var ack schema.Record
	select {
	case res := <-sess.handshakeChan:
		if res.err != nil {
			return nil, res.err
		}
		ack = res.ack
	case <-sess.doneChan:
		err := sess.err()
		var protoErr *protocol.Error
		if !errors.As(err, &protoErr) {
			err = protocol.ErrConnectionClosed.Wrap(err)
		}
		return nil, fmt.Errorf("handshake: %w", err)
	case <-hsCtx.Done():
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("handshake: %w", ctxErr)
		}
		return nil, protocol.ErrRequestTimeout.Wrap(
			fmt.Errorf("no handshake ack within %s", c.config.HandshakeTimeout),
		)
	}
	version, _ := ack.Uint("protocolVersion")
	if version != protocol.ProtocolVersion {
		return nil, protocol.ErrUnsupportedProtocolVersion.Wrap(
			fmt.Errorf(
				"node speaks version %d, client speaks version %d",
				version,
				protocol.ProtocolVersion,
			),
		)
	}
	info := &SessionInfo{ProtocolVersion: version}
	info.SessionId, _ = ack.String("sessionId")
	info.ServerVersion, _ = ack.String("serverVersion")
	return info, nil
}

// handleHandshakeFrame processes a frame received before the handshake completed. It
// returns true once the ack has been delivered
func (c *Client) handleHandshakeFrame(sess *session, f *frame.Frame) (bool, error) {
	switch f.Opcode {
	case protocol.OpcodeHandshakeAck:
		value, err := c.frameCodec.DecodePayload(protocol.TypeHandshakeAck, f)
		if err != nil {
			return false, err
		}
		ack, _ := value.(schema.Record)
		sess.handshakeChan <- handshakeResult{ack: ack}
		return true, nil
	case protocol.OpcodeError:
		protoErr, err := c.decodeErrorFrame(f)
		if err != nil {
			return false, err
		}
		return false, protoErr
	default:
		return false, protocol.ErrHandshakeOrderViolation.Wrap(
			fmt.Errorf("received %s before handshake ack", f.Opcode),
		)
	}
}

// failHandshake ends a session whose handshake cannot complete
func (c *Client) failHandshake(sess *session, err error) {
	c.logger.Debug(
		"handshake failed",
		"session", sess.id,
		"error", err,
	)
	select {
	case sess.handshakeChan <- handshakeResult{err: err}:
	default:
	}
	sess.close(err)
}
