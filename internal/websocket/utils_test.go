package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/mtq-judge/internal/scoring"
)

func TestOutboxDeliversInOrder(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		out := NewOutbox(conn, 4)
		require.NoError(t, out.Push(PongResponse{Event: EventPong}))
		require.NoError(t, out.Push(SessionEvent{Event: EventSession, Session: scoring.View{State: scoring.StateRoundSelected}}))
		require.NoError(t, out.Error("ROUND_NOT_ACTIVE", "closed"))
		go func() {
			time.Sleep(200 * time.Millisecond)
			out.Close()
		}()
		_ = out.Run()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var pong PongResponse
	require.NoError(t, ReadJSON(conn, &pong))
	assert.Equal(t, EventPong, pong.Event)

	var sess SessionEvent
	require.NoError(t, ReadJSON(conn, &sess))
	assert.Equal(t, scoring.StateRoundSelected, sess.Session.State)

	var e ErrorResponse
	require.NoError(t, ReadJSON(conn, &e))
	assert.Equal(t, "ROUND_NOT_ACTIVE", e.Code)
}

func TestOutboxPushNeverBlocks(t *testing.T) {
	out := NewOutbox(nil, 1)
	require.NoError(t, out.Push(PongResponse{}))
	assert.ErrorIs(t, out.Push(PongResponse{}), ErrOutboxFull)

	out.Close()
	out.Close()
	assert.Error(t, out.Push(PongResponse{}))
}
