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

package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sync"
	"time"
)

// StreamHeaderSize is the size of the length prefix in front of each message on a stream
const StreamHeaderSize = 4

var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// StreamDialer dials tcp:// and unix:// URLs. Each message is prefixed by its length as a
// 32-bit big-endian integer
type StreamDialer struct {
	MaxMessageSize int
}

func (d *StreamDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	var network, address string
	switch u.Scheme {
	case "tcp":
		network, address = "tcp", u.Host
	case "unix":
		network, address = "unix", u.Path
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return NewStreamConn(conn, d.MaxMessageSize), nil
}

// StreamConn is a Conn over a byte stream
type StreamConn struct {
	conn           net.Conn
	maxMessageSize int
	sendMutex      sync.Mutex
	closeOnce      sync.Once
	closeErr       error
}

// NewStreamConn wraps a byte stream. A maxMessageSize of 0 disables the size check
func NewStreamConn(conn net.Conn, maxMessageSize int) *StreamConn {
	return &StreamConn{
		conn:           conn,
		maxMessageSize: maxMessageSize,
	}
}

// watchContext interrupts blocked I/O on the connection when ctx is done
func watchContext(ctx context.Context, setDeadline func(time.Time) error) func() bool {
	if deadline, ok := ctx.Deadline(); ok {
		_ = setDeadline(deadline)
	} else {
		_ = setDeadline(time.Time{})
	}
	return context.AfterFunc(ctx, func() {
		_ = setDeadline(time.Now())
	})
}

func (c *StreamConn) ReadMessage(ctx context.Context) ([]byte, error) {
	stop := watchContext(ctx, c.conn.SetReadDeadline)
	defer stop()
	var length uint32
	if err := binary.Read(c.conn, binary.BigEndian, &length); err != nil {
		return nil, c.wrapErr(ctx, err)
	}
	if c.maxMessageSize > 0 && int64(length) > int64(c.maxMessageSize) {
		return nil, fmt.Errorf(
			"%w: %d > %d",
			ErrMessageTooLarge,
			length,
			c.maxMessageSize,
		)
	}
	data := make([]byte, length)
	// We use ReadFull because it guarantees to read the expected number of bytes or
	// return an error
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, c.wrapErr(ctx, err)
	}
	return data, nil
}

func (c *StreamConn) WriteMessage(ctx context.Context, data []byte) error {
	if c.maxMessageSize > 0 && len(data) > c.maxMessageSize {
		return fmt.Errorf(
			"%w: %d > %d",
			ErrMessageTooLarge,
			len(data),
			c.maxMessageSize,
		)
	}
	// Only one writer at a time, so that messages are not interleaved on the stream
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	stop := watchContext(ctx, c.conn.SetWriteDeadline)
	defer stop()
	buf := bytes.NewBuffer(make([]byte, 0, StreamHeaderSize+len(data)))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil { // #nosec G115
		return err
	}
	buf.Write(data)
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return c.wrapErr(ctx, err)
	}
	return nil
}

func (c *StreamConn) wrapErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		// The connection deadline can expire just before the context notices
		if _, ok := ctx.Deadline(); ok {
			return context.DeadlineExceeded
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return err
}

func (c *StreamConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
