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
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

var ErrUnexpectedMessageType = errors.New("unexpected non-binary WebSocket message")

// WebSocketDialer dials ws:// and wss:// URLs. Frames travel as binary messages
type WebSocketDialer struct {
	MaxMessageSize int64
	HTTPHeader     http.Header
	HTTPClient     *http.Client
}

func (d *WebSocketDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	opts := &websocket.DialOptions{
		HTTPHeader: d.HTTPHeader,
		HTTPClient: d.HTTPClient,
	}
	conn, resp, err := websocket.Dial(ctx, rawURL, opts)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status: %s)", rawURL, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return NewWebSocketConn(conn, d.MaxMessageSize), nil
}

// WebSocketConn is a Conn over a WebSocket connection
type WebSocketConn struct {
	conn *websocket.Conn
}

// NewWebSocketConn wraps an established WebSocket connection. A maxMessageSize of 0 keeps
// the library default read limit
func NewWebSocketConn(conn *websocket.Conn, maxMessageSize int64) *WebSocketConn {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketConn{conn: conn}
}

// ReadMessage returns the next binary message. Cancelling ctx closes the connection
func (c *WebSocketConn) ReadMessage(ctx context.Context) ([]byte, error) {
	msgType, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if msgType != websocket.MessageBinary {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedMessageType, msgType)
	}
	return data, nil
}

func (c *WebSocketConn) WriteMessage(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

func (c *WebSocketConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
