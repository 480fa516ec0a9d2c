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
	"sync"
	"sync/atomic"

	"github.com/blinklabs-io/goindexer/schema"
	"github.com/blinklabs-io/goindexer/transport"
)

type handshakeResult struct {
	ack schema.Record
	err error
}

// session is a single socket connection. A new session is created for every connect and
// reconnect attempt, and is never reused once closed
type session struct {
	id            uint64
	conn          transport.Conn
	ctx           context.Context
	cancel        context.CancelFunc
	doneChan      chan struct{}
	handshakeChan chan handshakeResult
	writeMutex    sync.Mutex
	ready         atomic.Bool
	onceClose     sync.Once
	closeErr      error
}

func newSession(id uint64, conn transport.Conn) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:            id,
		conn:          conn,
		ctx:           ctx,
		cancel:        cancel,
		doneChan:      make(chan struct{}),
		handshakeChan: make(chan handshakeResult, 1),
	}
}

// write sends one frame. Writes on a session never interleave
func (s *session) write(ctx context.Context, data []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteMessage(ctx, data)
}

// close shuts the session down with the specified cause. It returns true only for the
// call that actually closed the session
func (s *session) close(cause error) bool {
	closed := false
	s.onceClose.Do(func() {
		closed = true
		s.closeErr = cause
		s.cancel()
		_ = s.conn.Close()
		close(s.doneChan)
	})
	return closed
}

// err returns the close cause. It must only be called after doneChan is closed
func (s *session) err() error {
	return s.closeErr
}

func (s *session) isClosed() bool {
	select {
	case <-s.doneChan:
		return true
	default:
		return false
	}
}
