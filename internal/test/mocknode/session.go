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

package mocknode

import (
	"context"
	"fmt"
	"sync"

	"github.com/blinklabs-io/goindexer/frame"
	"github.com/blinklabs-io/goindexer/protocol"
	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/transport"
)

// Session is the node side of one client connection
type Session struct {
	node      *Node
	id        int
	conn      transport.Conn
	ctx       context.Context
	cancel    context.CancelFunc
	doneChan  chan struct{}
	writeMu   sync.Mutex
	onceDrop  sync.Once
	mu        sync.Mutex
	received  []*frame.Frame
	handshake schema.Record
}

// Id returns the session number, starting at 1
func (s *Session) Id() int {
	return s.id
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.doneChan
}

// Handshake returns the decoded HANDSHAKE payload, or nil before it arrives
func (s *Session) Handshake() schema.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshake
}

// Received returns the frames received so far
func (s *Session) Received() []*frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*frame.Frame(nil), s.received...)
}

// Count returns the number of received frames with the opcode
func (s *Session) Count(opcode protocol.Opcode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, f := range s.received {
		if f.Opcode == opcode {
			count++
		}
	}
	return count
}

// Reply sends the response for a request frame
func (s *Session) Reply(req *frame.Frame, value any) error {
	method, ok := protocol.MethodByRequestOpcode(req.Opcode)
	if !ok {
		return fmt.Errorf("no method for opcode %s", req.Opcode)
	}
	return s.Send(method.ResponseOpcode, req.RequestId, method.ResponseType, value)
}

// ReplyError sends an ERROR frame for a request frame
func (s *Session) ReplyError(req *frame.Frame, code protocol.ErrorCode, message string) error {
	return s.SendError(req.RequestId, code, message)
}

// SendError sends an ERROR frame with the request ID. ID 0 makes it connection-level
func (s *Session) SendError(requestId uint32, code protocol.ErrorCode, message string) error {
	return s.Send(
		protocol.OpcodeError,
		requestId,
		protocol.TypeErrorResponse,
		schema.Record{"code": uint64(code), "message": message},
	)
}

// Push sends a notification for the topic
func (s *Session) Push(topic protocol.Topic, value any) error {
	mapping, ok := protocol.LookupTopic(topic)
	if !ok {
		return fmt.Errorf("unknown topic %s", topic)
	}
	return s.Send(
		mapping.NotificationOpcode,
		protocol.ConnectionRequestId,
		mapping.NotificationType,
		value,
	)
}

// Send writes a frame with the value encoded as the named type
func (s *Session) Send(
	opcode protocol.Opcode,
	requestId uint32,
	typeName string,
	value any,
) error {
	data, err := s.node.frameCodec.Encode(opcode, requestId, typeName, value)
	if err != nil {
		return err
	}
	return s.SendRaw(data)
}

// SendRaw writes a message as is
func (s *Session) SendRaw(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(s.ctx, data)
}

// Drop closes the connection
func (s *Session) Drop() {
	s.onceDrop.Do(func() {
		s.cancel()
		_ = s.conn.Close()
	})
}

func (s *Session) serve() {
	defer s.node.waitGroup.Done()
	defer close(s.doneChan)
	defer s.Drop()
	for {
		data, err := s.conn.ReadMessage(s.ctx)
		if err != nil {
			return
		}
		f, err := s.node.frameCodec.Decode(data)
		if err != nil {
			s.node.reportError(err)
			return
		}
		s.mu.Lock()
		s.received = append(s.received, f)
		s.mu.Unlock()
		method, ok := protocol.MethodByRequestOpcode(f.Opcode)
		if !ok {
			s.node.reportError(fmt.Errorf("unexpected frame %s", f))
			continue
		}
		value, err := s.node.frameCodec.DecodePayload(method.RequestType, f)
		if err != nil {
			s.node.reportError(err)
			continue
		}
		params, _ := value.(schema.Record)
		handler, ok := s.node.handler(f.Opcode)
		if !ok {
			_ = s.ReplyError(f, protocol.CodeUnknownOpcode, "no handler")
			continue
		}
		if err := handler(s, f, params); err != nil {
			s.node.reportError(fmt.Errorf("handler for %s: %w", f.Opcode, err))
		}
	}
}
