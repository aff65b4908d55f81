package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysakai/mindbridge/pkg/logger"
)

func newRunningServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s := NewServer(logger.NewNop())
	go s.Run()

	ts := httptest.NewServer(http.HandlerFunc(s.HandleConnection))
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *gorilla.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesAllClients(t *testing.T) {
	s, ts := newRunningServer(t)

	c1 := dial(t, ts)
	c2 := dial(t, ts)

	// Give the register channel a moment to settle
	time.Sleep(50 * time.Millisecond)

	s.Broadcast(&Message{
		Type: MessageTypeTranscription,
		Data: map[string]any{"transcript": "会議のメモ"},
	})

	for _, conn := range []*gorilla.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, MessageTypeTranscription, msg.Type)
		assert.Equal(t, "会議のメモ", msg.Data["transcript"])
	}
}

func TestIncomingMessagesReachHandler(t *testing.T) {
	s, ts := newRunningServer(t)

	received := make(chan string, 1)
	s.SetMessageHandler(handlerFunc(func(client *Client, messageType string, data map[string]any) error {
		received <- messageType
		return nil
	}))

	conn := dial(t, ts)
	require.NoError(t, conn.WriteJSON(&Message{Type: MessageTypeHistoryReq}))

	select {
	case got := <-received:
		assert.Equal(t, MessageTypeHistoryReq, got)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the message")
	}
}

type handlerFunc func(client *Client, messageType string, data map[string]any) error

func (f handlerFunc) HandleMessage(client *Client, messageType string, data map[string]any) error {
	return f(client, messageType, data)
}
