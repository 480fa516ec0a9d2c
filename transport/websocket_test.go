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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blinklabs-io/goindexer/transport"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T, msgType websocket.MessageType) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			if err := conn.Write(r.Context(), msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketConnRoundTrip(t *testing.T) {
	wsURL := newEchoServer(t, websocket.MessageBinary)
	dialer, err := transport.DialerFor(wsURL, 1024)
	require.NoError(t, err)
	conn, err := dialer.Dial(context.Background(), wsURL)
	require.NoError(t, err)
	defer conn.Close()
	for _, msg := range [][]byte{{0x00, 0, 0, 0, 0}, {0x10, 0, 0, 0, 1, 0x80}} {
		require.NoError(t, conn.WriteMessage(context.Background(), msg))
		reply, err := conn.ReadMessage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, msg, reply)
	}
}

func TestWebSocketConnRejectsText(t *testing.T) {
	wsURL := newEchoServer(t, websocket.MessageText)
	conn, err := (&transport.WebSocketDialer{}).Dial(context.Background(), wsURL)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(context.Background(), []byte("hello")))
	_, err = conn.ReadMessage(context.Background())
	assert.True(t, errors.Is(err, transport.ErrUnexpectedMessageType), err)
}

func TestWebSocketDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	_, err := (&transport.WebSocketDialer{}).Dial(
		context.Background(),
		"ws"+strings.TrimPrefix(server.URL, "http"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
