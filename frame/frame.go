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

// Package frame implements the binary frame format: a 1-byte opcode, a 4-byte big-endian
// request ID, and a schema-encoded payload filling the rest of the message
package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/goindexer/protocol"
)

// Header is the fixed-size frame header
type Header struct {
	Opcode    protocol.Opcode
	RequestId uint32
}

// Frame is a decoded frame. The payload is left encoded
type Frame struct {
	Header
	Payload []byte
}

// New returns a frame with an already encoded payload
func New(opcode protocol.Opcode, requestId uint32, payload []byte) *Frame {
	return &Frame{
		Header: Header{
			Opcode:    opcode,
			RequestId: requestId,
		},
		Payload: payload,
	}
}

// Bytes returns the wire form of the frame
func (f *Frame) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, protocol.HeaderSize+len(f.Payload)))
	// Writing fixed-size values to a bytes.Buffer cannot fail
	_ = binary.Write(buf, binary.BigEndian, f.Header)
	buf.Write(f.Payload)
	return buf.Bytes()
}

func (f *Frame) String() string {
	return fmt.Sprintf(
		"Frame { Opcode: %s, RequestId: %d, PayloadLength: %d }",
		f.Opcode,
		f.RequestId,
		len(f.Payload),
	)
}

// Decode splits a message into its header and payload. Messages shorter than the header
// are malformed. The payload slice aliases the input
func Decode(data []byte) (*Frame, error) {
	if len(data) < protocol.HeaderSize {
		return nil, protocol.ErrMalformedMessage.Wrap(
			fmt.Errorf(
				"frame of %d bytes is shorter than the %d byte header",
				len(data),
				protocol.HeaderSize,
			),
		)
	}
	f := &Frame{}
	if err := binary.Read(bytes.NewReader(data[:protocol.HeaderSize]), binary.BigEndian, &f.Header); err != nil {
		return nil, protocol.ErrMalformedMessage.Wrap(err)
	}
	f.Payload = data[protocol.HeaderSize:]
	return f, nil
}
