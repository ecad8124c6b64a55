package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(t *testing.T, srv *httptest.Server) *url.URL {
	u, err := url.Parse(strings.Replace(srv.URL, "http://", "ws://", 1))
	require.NoError(t, err)
	return u
}

func TestSocketSendAndReceiveRoundTrip(t *testing.T) {
	srv := echoServer(t)
	sock := New(time.Second)

	var mu sync.Mutex
	var received []byte
	got := make(chan struct{}, 1)

	handler := Handler{
		OnMessage: func(b []byte) {
			mu.Lock()
			received = b
			mu.Unlock()
			got <- struct{}{}
		},
	}

	require.NoError(t, sock.Connect(context.Background(), wsURL(t, srv), handler))
	require.True(t, sock.IsOpen())

	require.NoError(t, sock.Send([]byte("hello")))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed message")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hello", string(received))

	require.NoError(t, sock.Close(websocket.CloseNormalClosure, "done"))
}

func TestSocketSendBeforeConnectFails(t *testing.T) {
	sock := New(time.Second)
	err := sock.Send([]byte("too early"))
	assert.Error(t, err)
}

func TestSocketOnCloseFiresOnRemoteDisconnect(t *testing.T) {
	srv := echoServer(t)
	sock := New(time.Second)

	closed := make(chan struct{}, 1)
	handler := Handler{OnClose: func(int, string) { closed <- struct{}{} }}

	require.NoError(t, sock.Connect(context.Background(), wsURL(t, srv), handler))
	srv.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected OnClose to fire after server closed")
	}
	assert.False(t, sock.IsOpen())
}

func TestSocketConnectFailsForUnreachableEndpoint(t *testing.T) {
	sock := New(100 * time.Millisecond)
	u, _ := url.Parse("ws://127.0.0.1:1/does-not-exist")
	err := sock.Connect(context.Background(), u, Handler{})
	assert.Error(t, err)
}
