package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeyportfolio/portfolio/internal/metrics"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/types"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ChannelTopic is the Realtime topic feedback subscriptions join.
const ChannelTopic = "realtime:feedback-changes"

const (
	eventJoin            = "phx_join"
	eventLeave           = "phx_leave"
	eventReply           = "phx_reply"
	eventError           = "phx_error"
	eventClose           = "phx_close"
	eventHeartbeat       = "heartbeat"
	eventPostgresChanges = "postgres_changes"

	joinTimeout = 10 * time.Second
)

// phoenixMessage is one frame of the Phoenix channel protocol.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

type postgresChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type joinPayload struct {
	Config struct {
		Broadcast struct {
			Self bool `json:"self"`
		} `json:"broadcast"`
		Presence struct {
			Key string `json:"key"`
		} `json:"presence"`
		PostgresChanges []postgresChangeFilter `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Type   string          `json:"type"`
		Schema string          `json:"schema"`
		Table  string          `json:"table"`
		Record json.RawMessage `json:"record"`
	} `json:"data"`
}

func realtimeURL(baseURL, key string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid supabase url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", key)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe joins the Realtime channel for INSERTs on public.feedback and
// returns once the join has been acknowledged.
func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	wsURL, err := realtimeURL(s.baseURL, s.key)
	if err != nil {
		return nil, store.NewError(store.KindUnknown, "subscribe", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		return nil, store.NewError(store.KindNetwork, "subscribe", fmt.Errorf("realtime dial: %w", err))
	}
	conn.SetReadLimit(1 << 20)

	sub := &realtimeSubscription{
		conn:      conn,
		events:    make(chan types.Feedback, 64),
		done:      make(chan struct{}),
		heartbeat: s.heartbeat,
		log:       s.log,
	}

	if err := sub.join(dialCtx, s.key); err != nil {
		conn.Close(websocket.StatusNormalClosure, "join failed")
		return nil, err
	}

	sub.wg.Add(2)
	go sub.readLoop()
	go sub.heartbeatLoop()

	s.log.Infow("Joined realtime channel", "topic", ChannelTopic)
	return sub, nil
}

type realtimeSubscription struct {
	conn      *websocket.Conn
	events    chan types.Feedback
	done      chan struct{}
	ref       atomic.Uint64
	joinRef   string
	heartbeat time.Duration
	wg        sync.WaitGroup
	once      sync.Once
	log       *zap.SugaredLogger
}

func (s *realtimeSubscription) Events() <-chan types.Feedback {
	return s.events
}

func (s *realtimeSubscription) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

func (s *realtimeSubscription) send(ctx context.Context, topic, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, s.conn, phoenixMessage{
		Topic:   topic,
		Event:   event,
		Payload: raw,
		Ref:     s.nextRef(),
		JoinRef: s.joinRef,
	})
}

func (s *realtimeSubscription) join(ctx context.Context, key string) error {
	var payload joinPayload
	payload.Config.PostgresChanges = []postgresChangeFilter{
		{Event: "INSERT", Schema: "public", Table: store.FeedbackTable},
	}
	payload.AccessToken = key

	ref := s.nextRef()
	s.joinRef = ref
	raw, err := json.Marshal(payload)
	if err != nil {
		return store.NewError(store.KindUnknown, "subscribe", err)
	}
	if err := wsjson.Write(ctx, s.conn, phoenixMessage{
		Topic:   ChannelTopic,
		Event:   eventJoin,
		Payload: raw,
		Ref:     ref,
		JoinRef: ref,
	}); err != nil {
		return store.NewError(store.KindNetwork, "subscribe", fmt.Errorf("realtime join: %w", err))
	}

	for {
		var msg phoenixMessage
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			return store.NewError(store.KindNetwork, "subscribe", fmt.Errorf("realtime join reply: %w", err))
		}
		if msg.Event != eventReply || msg.Ref != ref {
			continue
		}

		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return store.NewError(store.KindUnknown, "subscribe", fmt.Errorf("realtime join reply: %w", err))
		}
		if reply.Status != "ok" {
			return store.NewError(store.KindUnknown, "subscribe",
				fmt.Errorf("realtime join rejected: %s", string(reply.Response)))
		}
		return nil
	}
}

// readLoop runs until the socket drops or the server closes the channel.
// Frames it cannot decode are skipped.
func (s *realtimeSubscription) readLoop() {
	defer s.wg.Done()
	defer close(s.events)

	m := metrics.Get()
	ctx := context.Background()
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warnw("Realtime connection ended", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg phoenixMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warnw("Dropping malformed realtime frame", "error", err)
			continue
		}

		switch msg.Event {
		case eventPostgresChanges:
			row, ok := s.decodeInsert(msg.Payload)
			if !ok {
				continue
			}
			select {
			case s.events <- row:
				m.RealtimeEvents.WithLabelValues("supabase").Inc()
			case <-s.done:
				return
			}
		case eventError, eventClose:
			if msg.Topic == ChannelTopic {
				s.log.Warnw("Realtime channel closed by server", "event", msg.Event)
				// Stops the heartbeat; the owner resubscribes on a new socket.
				_ = s.conn.CloseNow()
				return
			}
		}
	}
}

func (s *realtimeSubscription) decodeInsert(raw json.RawMessage) (types.Feedback, bool) {
	var change changePayload
	if err := json.Unmarshal(raw, &change); err != nil {
		s.log.Warnw("Dropping malformed realtime payload", "error", err)
		return types.Feedback{}, false
	}
	if change.Data.Type != "INSERT" || change.Data.Table != store.FeedbackTable {
		return types.Feedback{}, false
	}

	var row types.Feedback
	if err := json.Unmarshal(change.Data.Record, &row); err != nil {
		s.log.Warnw("Dropping malformed realtime record", "error", err)
		return types.Feedback{}, false
	}
	return row, true
}

func (s *realtimeSubscription) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := s.send(ctx, "phoenix", eventHeartbeat, struct{}{})
			cancel()
			if err != nil {
				s.log.Warnw("Realtime heartbeat failed", "error", err)
				return
			}
		}
	}
}

// Close leaves the channel and closes the socket. The socket may already be
// gone, so close errors are only logged.
func (s *realtimeSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = s.send(ctx, ChannelTopic, eventLeave, struct{}{})
		cancel()

		if err := s.conn.Close(websocket.StatusNormalClosure, "unsubscribe"); err != nil {
			s.log.Debugw("Realtime socket close", "error", err)
		}
		s.wg.Wait()
	})
	return nil
}
