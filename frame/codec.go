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

package frame

import (
	"fmt"

	"github.com/blinklabs-io/goindexer/protocol"
)

// PayloadCodec converts payload values to and from their schema encoding
type PayloadCodec interface {
	Encode(typeName string, value any) ([]byte, error)
	Decode(typeName string, data []byte) (any, error)
}

// Codec builds and parses frames using a payload codec
type Codec struct {
	payload        PayloadCodec
	maxMessageSize int
}

// NewCodec returns a frame codec. A maxMessageSize of 0 disables the size check
func NewCodec(payload PayloadCodec, maxMessageSize int) *Codec {
	return &Codec{
		payload:        payload,
		maxMessageSize: maxMessageSize,
	}
}

// Encode returns the wire form of a frame carrying the value encoded as the named type
func (c *Codec) Encode(
	opcode protocol.Opcode,
	requestId uint32,
	typeName string,
	value any,
) ([]byte, error) {
	payload, err := c.payload.Encode(typeName, value)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload for %s: %w", typeName, opcode, err)
	}
	if c.maxMessageSize > 0 &&
		protocol.HeaderSize+len(payload) > c.maxMessageSize {
		return nil, protocol.ErrMessageTooLarge.WithRequestId(requestId).Wrap(
			fmt.Errorf(
				"frame of %d bytes exceeds limit of %d",
				protocol.HeaderSize+len(payload),
				c.maxMessageSize,
			),
		)
	}
	return New(opcode, requestId, payload).Bytes(), nil
}

// Decode parses a received message into a frame
func (c *Codec) Decode(data []byte) (*Frame, error) {
	if c.maxMessageSize > 0 && len(data) > c.maxMessageSize {
		return nil, protocol.ErrMessageTooLarge.Wrap(
			fmt.Errorf(
				"frame of %d bytes exceeds limit of %d",
				len(data),
				c.maxMessageSize,
			),
		)
	}
	return Decode(data)
}

// DecodePayload decodes the frame payload as the named type
func (c *Codec) DecodePayload(typeName string, f *Frame) (any, error) {
	value, err := c.payload.Decode(typeName, f.Payload)
	if err != nil {
		return nil, protocol.ErrMalformedMessage.WithRequestId(f.RequestId).Wrap(
			fmt.Errorf("decode %s payload for %s: %w", typeName, f.Opcode, err),
		)
	}
	return value, nil
}
