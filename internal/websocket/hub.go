package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/logger"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("websocket hub is shut down")

// Hub tracks the live feedback sessions. Each session is one WebSocket
// connection driving its own view.
type Hub struct {
	log          *zap.SugaredLogger
	sessions     map[string]*Session // view ID -> session
	mu           sync.RWMutex
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// Session pairs a connection with the view it drives.
type Session struct {
	ID       string
	Conn     *websocket.Conn
	View     *feedback.ViewModel
	OpenedAt time.Time

	mu     sync.Mutex
	closed bool
}

// HubConfig contains configuration options for sessions.
type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// DefaultHubConfig returns sensible defaults for session keepalive.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		log:        logger.GetLogger().Named("websocket_hub"),
		sessions:   make(map[string]*Session),
		shutdownCh: make(chan struct{}),
	}
}

// Register adds a session for conn driven by view.
func (h *Hub) Register(conn *websocket.Conn, view *feedback.ViewModel) (*Session, error) {
	session := &Session{
		ID:       view.ID(),
		Conn:     conn,
		View:     view,
		OpenedAt: time.Now(),
	}

	h.mu.Lock()
	select {
	case <-h.shutdownCh:
		h.mu.Unlock()
		return nil, ErrHubClosed
	default:
	}
	h.sessions[session.ID] = session
	count := len(h.sessions)
	h.mu.Unlock()

	h.log.Infow("Feedback session registered",
		"sessionID", session.ID,
		"sessionCount", count)
	return session, nil
}

// Unregister removes a session and releases its view and connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, id)
	h.mu.Unlock()

	h.closeSession(session, websocket.StatusNormalClosure, "session ended")
}

func (h *Hub) closeSession(s *Session, code websocket.StatusCode, reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.Conn.Close(code, reason)
	s.View.Unmount()

	h.log.Infow("Feedback session closed",
		"sessionID", s.ID,
		"reason", reason,
		"duration", time.Since(s.OpenedAt).String())
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Done is closed when the hub starts shutting down.
func (h *Hub) Done() <-chan struct{} {
	return h.shutdownCh
}

// Shutdown closes every session and rejects new ones.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		close(h.shutdownCh)
		sessions := make([]*Session, 0, len(h.sessions))
		for _, s := range h.sessions {
			sessions = append(sessions, s)
		}
		h.sessions = make(map[string]*Session)
		h.mu.Unlock()

		var wg sync.WaitGroup
		for _, s := range sessions {
			wg.Add(1)
			go func(s *Session) {
				defer wg.Done()
				h.closeSession(s, websocket.StatusGoingAway, "server shutdown")
			}(s)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			h.log.Warnw("WebSocket hub shutdown timed out", "sessions", len(sessions))
		}
	})

	h.log.Info("WebSocket hub shutdown complete")
	return ctx.Err()
}

// IsClosed returns whether the session has been closed.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
