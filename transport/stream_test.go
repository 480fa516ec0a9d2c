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

package transport_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/goindexer/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newStreamPair(maxMessageSize int) (*transport.StreamConn, *transport.StreamConn) {
	a, b := net.Pipe()
	return transport.NewStreamConn(a, maxMessageSize), transport.NewStreamConn(b, maxMessageSize)
}

func TestStreamConnRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	client, server := newStreamPair(0)
	defer client.Close()
	defer server.Close()
	messages := [][]byte{{0x10, 0, 0, 0, 1}, {}, make([]byte, 70000)}
	go func() {
		for _, msg := range messages {
			if err := client.WriteMessage(context.Background(), msg); err != nil {
				return
			}
		}
	}()
	for _, msg := range messages {
		data, err := server.ReadMessage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, len(msg), len(data))
		assert.Equal(t, msg, data)
	}
}

func TestStreamConnMessageTooLarge(t *testing.T) {
	defer goleak.VerifyNone(t)
	client, server := newStreamPair(8)
	defer client.Close()
	defer server.Close()
	err := client.WriteMessage(context.Background(), make([]byte, 9))
	assert.True(t, errors.Is(err, transport.ErrMessageTooLarge))
	// A peer announcing an oversized message is refused before the payload is read
	a, b := net.Pipe()
	defer a.Close()
	sender := transport.NewStreamConn(a, 0)
	receiver := transport.NewStreamConn(b, 8)
	go func() {
		_ = sender.WriteMessage(context.Background(), make([]byte, 16))
	}()
	_, err = receiver.ReadMessage(context.Background())
	assert.True(t, errors.Is(err, transport.ErrMessageTooLarge))
	receiver.Close()
}

func TestStreamConnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	client, server := newStreamPair(0)
	defer client.Close()
	defer server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := server.ReadMessage(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err)
}

func TestStreamConnClosed(t *testing.T) {
	defer goleak.VerifyNone(t)
	client, server := newStreamPair(0)
	defer server.Close()
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "close is idempotent")
	_, err := server.ReadMessage(context.Background())
	assert.True(t, errors.Is(err, transport.ErrConnectionClosed), err)
}

func TestStreamDialerTCP(t *testing.T) {
	defer goleak.VerifyNone(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	testStreamDialer(t, listener, "tcp://"+listener.Addr().String())
}

func TestStreamDialerUnix(t *testing.T) {
	defer goleak.VerifyNone(t)
	path := filepath.Join(t.TempDir(), "node.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer listener.Close()
	testStreamDialer(t, listener, "unix://"+path)
}

func testStreamDialer(t *testing.T, listener net.Listener, rawURL string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		peer := transport.NewStreamConn(conn, 0)
		defer peer.Close()
		msg, err := peer.ReadMessage(context.Background())
		if err != nil {
			return
		}
		_ = peer.WriteMessage(context.Background(), append(msg, 0xff))
	}()
	dialer, err := transport.DialerFor(rawURL, 1024)
	require.NoError(t, err)
	conn, err := dialer.Dial(context.Background(), rawURL)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(context.Background(), []byte{0x01}))
	reply, err := conn.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xff}, reply)
	<-done
}

func TestDialerFor(t *testing.T) {
	dialer, err := transport.DialerFor("wss://node.example/ws", 0)
	require.NoError(t, err)
	assert.IsType(t, &transport.WebSocketDialer{}, dialer)
	dialer, err = transport.DialerFor("tcp://127.0.0.1:1", 0)
	require.NoError(t, err)
	assert.IsType(t, &transport.StreamDialer{}, dialer)
	_, err = transport.DialerFor("ftp://node.example", 0)
	assert.True(t, errors.Is(err, transport.ErrUnsupportedScheme))
}
