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

// Package transport provides the message-oriented socket the client speaks over. A
// message is one whole frame; the transport preserves message boundaries
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrConnectionClosed  = errors.New("connection closed")
)

// Conn is a connected message socket. ReadMessage is called from a single goroutine;
// WriteMessage may be called concurrently
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens a Conn to the specified URL
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context, rawURL string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, rawURL string) (Conn, error) {
	return f(ctx, rawURL)
}

// DialerFor returns a dialer for the URL scheme: ws and wss use WebSocket, tcp and unix
// use length-prefixed streams
func DialerFor(rawURL string, maxMessageSize int) (Dialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return &WebSocketDialer{MaxMessageSize: int64(maxMessageSize)}, nil
	case "tcp", "unix":
		return &StreamDialer{MaxMessageSize: maxMessageSize}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
