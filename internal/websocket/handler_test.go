package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/internal/store/memstore"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func init() {
	logger.IsTest = true
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

func (r received) state(t *testing.T) feedback.ViewState {
	t.Helper()
	var st feedback.ViewState
	require.NoError(t, json.Unmarshal(r.Payload, &st))
	return st
}

type testServer struct {
	hub *Hub
	mem *memstore.Store
	url string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := memstore.New()
	hub := NewHub()
	handler := NewHandler(hub, feedback.NewService(mem), &config.ServerConfig{
		Environment: config.EnvDevelopment,
	}, HubConfig{PingInterval: time.Hour, WriteTimeout: time.Second})

	srv := httptest.NewServer(handler)
	ts := &testServer{
		hub: hub,
		mem: mem,
		url: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return ts
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(received) bool) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var msg received
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if match(msg) {
			return msg
		}
	}
}

func readState(t *testing.T, conn *websocket.Conn, cond func(feedback.ViewState) bool) feedback.ViewState {
	t.Helper()
	msg := readUntil(t, conn, func(m received) bool {
		if m.Type != MessageTypeState {
			return false
		}
		var st feedback.ViewState
		if err := json.Unmarshal(m.Payload, &st); err != nil {
			return false
		}
		return cond(st)
	})
	return msg.state(t)
}

func send(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func isReady(st feedback.ViewState) bool { return st.Phase == feedback.PhaseReady }

func TestHandler_SessionMountsView(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)

	st := readState(t, conn, isReady)
	assert.Empty(t, st.Entries)
	assert.Equal(t, 5, st.Form.Rating)
	assert.True(t, st.Subscribed)
	assert.Equal(t, 1, ts.mem.SchemaCreations())

	require.Eventually(t, func() bool { return ts.hub.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHandler_SubmitReachesEverySession(t *testing.T) {
	ts := newTestServer(t)
	a := dial(t, ts.url)
	b := dial(t, ts.url)
	readState(t, a, isReady)
	readState(t, b, isReady)

	send(t, a, map[string]interface{}{
		"type":    MessageTypeUpdateForm,
		"payload": map[string]interface{}{"name": "Ada", "rating": 4},
	})
	readState(t, a, func(st feedback.ViewState) bool { return st.Form.Name == "Ada" })

	send(t, a, map[string]interface{}{
		"type":    MessageTypeSubmit,
		"payload": map[string]interface{}{"message": "Lovely site"},
	})

	stA := readState(t, a, func(st feedback.ViewState) bool { return len(st.Entries) == 1 && !st.IsSubmitting })
	assert.Equal(t, "Ada", stA.Entries[0].Name)
	assert.Equal(t, "Lovely site", stA.Entries[0].Message)
	assert.Equal(t, 4, stA.Entries[0].Rating)
	assert.Equal(t, "", stA.Form.Name)
	assert.Equal(t, 5, stA.Form.Rating)

	stB := readState(t, b, func(st feedback.ViewState) bool { return len(st.Entries) == 1 })
	assert.Equal(t, stA.Entries[0].ID, stB.Entries[0].ID)
}

func TestHandler_SubmitWithoutPayloadValidates(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)
	readState(t, conn, isReady)

	send(t, conn, map[string]string{"type": MessageTypeSubmit})

	st := readState(t, conn, func(st feedback.ViewState) bool { return st.Error != "" })
	assert.Equal(t, feedback.MsgRequiredFields, st.Error)
}

func TestHandler_PingPong(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)

	send(t, conn, map[string]string{"type": MessageTypePing})
	msg := readUntil(t, conn, func(m received) bool { return m.Type == MessageTypePong })
	assert.Empty(t, msg.Error)
}

func TestHandler_MalformedMessages(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	msg := readUntil(t, conn, func(m received) bool { return m.Type == MessageTypeError })
	assert.Equal(t, "Malformed message", msg.Error)

	send(t, conn, map[string]string{"type": "dance"})
	msg = readUntil(t, conn, func(m received) bool { return m.Type == MessageTypeError })
	assert.Equal(t, "Unknown message type", msg.Error)

	send(t, conn, map[string]interface{}{"type": MessageTypeUpdateForm, "payload": map[string]string{"rating": "five"}})
	msg = readUntil(t, conn, func(m received) bool { return m.Type == MessageTypeError })
	assert.Contains(t, msg.Error, "update_form")

	// The session survives bad input.
	send(t, conn, map[string]string{"type": MessageTypePing})
	readUntil(t, conn, func(m received) bool { return m.Type == MessageTypePong })
}

func TestHandler_DisconnectUnregisters(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)
	readState(t, conn, isReady)
	require.Equal(t, 1, ts.hub.Count())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool { return ts.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return ts.mem.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ShutdownClosesSessions(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)
	readState(t, conn, isReady)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() { _ = ts.hub.Shutdown(ctx) }()

	var err error
	for err == nil {
		var msg received
		err = wsjson.Read(ctx, conn, &msg)
	}
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	assert.Equal(t, 0, ts.hub.Count())
}
