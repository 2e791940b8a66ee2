package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// fakeRealtime accepts one channel join and then pushes the given frames.
// A []byte frame is written verbatim; anything else is sent as JSON.
type fakeRealtime struct {
	t       *testing.T
	status  string
	push    []any
	joined  chan joinPayload
	leaving chan struct{}
}

func newFakeRealtime(t *testing.T, status string, push ...any) *fakeRealtime {
	return &fakeRealtime{
		t:       t,
		status:  status,
		push:    push,
		joined:  make(chan joinPayload, 1),
		leaving: make(chan struct{}, 1),
	}
}

func (f *fakeRealtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/realtime/v1/websocket" || r.URL.Query().Get("apikey") != testKey {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()
	ctx := r.Context()

	var join phoenixMessage
	if err := wsjson.Read(ctx, conn, &join); err != nil || join.Event != eventJoin {
		return
	}
	var payload joinPayload
	_ = json.Unmarshal(join.Payload, &payload)
	f.joined <- payload

	reply, _ := json.Marshal(replyPayload{Status: f.status, Response: json.RawMessage(`{}`)})
	if err := wsjson.Write(ctx, conn, phoenixMessage{
		Topic: join.Topic, Event: eventReply, Payload: reply, Ref: join.Ref,
	}); err != nil {
		return
	}

	for _, frame := range f.push {
		var err error
		if raw, ok := frame.([]byte); ok {
			err = conn.Write(ctx, websocket.MessageText, raw)
		} else {
			err = wsjson.Write(ctx, conn, frame)
		}
		if err != nil {
			return
		}
	}

	for {
		var msg phoenixMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		if msg.Event == eventLeave {
			f.leaving <- struct{}{}
		}
	}
}

func insertFrame(record string) phoenixMessage {
	return phoenixMessage{
		Topic: ChannelTopic,
		Event: eventPostgresChanges,
		Payload: json.RawMessage(`{"data":{"type":"INSERT","schema":"public","table":"feedback","record":` +
			record + `,"commit_timestamp":"2024-05-01T10:00:00Z"},"ids":[1]}`),
	}
}

func TestSubscribe_DeliversInserts(t *testing.T) {
	fake := newFakeRealtime(t, "ok",
		phoenixMessage{Topic: ChannelTopic, Event: "system", Payload: json.RawMessage(`{"status":"ok"}`)},
		phoenixMessage{Topic: ChannelTopic, Event: eventPostgresChanges, Payload: json.RawMessage(`"not an object"`)},
		insertFrame(`{"id":"abc","name":"Ada","message":"Great site","rating":5,"created_at":"2024-05-01T10:00:00.123456+00:00"}`),
	)
	s := newTestStore(t, fake)

	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)

	payload := <-fake.joined
	require.Len(t, payload.Config.PostgresChanges, 1)
	assert.Equal(t, postgresChangeFilter{Event: "INSERT", Schema: "public", Table: "feedback"}, payload.Config.PostgresChanges[0])
	assert.Equal(t, testKey, payload.AccessToken)

	select {
	case row := <-sub.Events():
		assert.Equal(t, "abc", row.ID)
		assert.Equal(t, "Ada", row.Name)
		assert.Equal(t, 5, row.Rating)
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime row delivered")
	}

	require.NoError(t, sub.Close())
	select {
	case <-fake.leaving:
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not left on close")
	}

	_, ok := <-sub.Events()
	assert.False(t, ok, "no delivery after close")
}

func TestSubscribe_SkipsUndecodableFrames(t *testing.T) {
	fake := newFakeRealtime(t, "ok",
		[]byte("not json"),
		[]byte(`{"topic":`),
		insertFrame(`{"id":"def","name":"Bo","message":"Still here","rating":4,"created_at":"2024-05-01T10:01:00Z"}`),
	)
	s := newTestStore(t, fake)

	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	select {
	case row, ok := <-sub.Events():
		require.True(t, ok, "subscription ended on a bad frame")
		assert.Equal(t, "def", row.ID)
		assert.Equal(t, 4, row.Rating)
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime row delivered")
	}
}

func TestSubscribe_ChannelClosedByServer(t *testing.T) {
	fake := newFakeRealtime(t, "ok",
		phoenixMessage{Topic: ChannelTopic, Event: eventClose, Payload: json.RawMessage(`{}`)},
	)
	s := newTestStore(t, fake)

	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events end when the channel closes")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription outlived a closed channel")
	}
	assert.NoError(t, sub.Close())
}

func TestSubscribe_JoinRejected(t *testing.T) {
	s := newTestStore(t, newFakeRealtime(t, "error"))

	_, err := s.Subscribe(context.Background())
	require.Error(t, err)
	assert.Equal(t, store.KindUnknown, store.KindOf(err))
}

func TestSubscribe_Unreachable(t *testing.T) {
	s, err := New(Config{URL: "http://127.0.0.1:1", AnonKey: testKey})
	require.NoError(t, err)

	_, err = s.Subscribe(context.Background())
	require.Error(t, err)
	assert.Equal(t, store.KindNetwork, store.KindOf(err))
}
