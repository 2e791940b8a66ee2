package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/logger"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ViewFactory creates one unmounted feedback view per session.
type ViewFactory interface {
	NewView() *feedback.ViewModel
}

// Handler upgrades requests to feedback sessions.
type Handler struct {
	log            *zap.SugaredLogger
	hub            *Hub
	views          ViewFactory
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, views ViewFactory, serverCfg *config.ServerConfig, cfg ...HubConfig) *Handler {
	hubCfg := DefaultHubConfig()
	if len(cfg) > 0 {
		hubCfg = cfg[0]
	}
	return &Handler{
		log:            logger.GetLogger().Named("websocket_handler"),
		hub:            hub,
		views:          views,
		pingInterval:   hubCfg.PingInterval,
		writeTimeout:   hubCfg.WriteTimeout,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

// getAcceptOptions returns WebSocket accept options based on configuration.
// In development, all origins are allowed. In production, only configured origins are allowed.
func (h *Handler) getAcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}

	if h.isDevelopment || containsWildcard(h.allowedOrigins) {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}

	return opts
}

// HandleWebSocket godoc
// @Summary Open a live feedback session
// @Description Upgrades to a WebSocket that streams the feedback view state and accepts form edits and submissions.
// @Tags feedback
// @Success 101 {string} string "Switching Protocols"
// @Router /v1/feedback/ws [get]
func (h *Handler) HandleWebSocket(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP runs one session until the client disconnects or the hub
// shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.getAcceptOptions())
	if err != nil {
		h.log.Errorw("Failed to accept WebSocket connection", "error", err)
		return
	}

	view := h.views.NewView()
	session, err := h.hub.Register(conn, view)
	if err != nil {
		view.Unmount()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unregister(session.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, session) }()
	go func() { errCh <- h.writeLoop(ctx, session) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	view.Mount()

	err = <-errCh
	if err != nil && !isExpectedClose(err) {
		h.log.Warnw("WebSocket session error",
			"sessionID", session.ID,
			"error", err)
	}
}

func isExpectedClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}

// readLoop turns client messages into view actions.
func (h *Handler) readLoop(ctx context.Context, s *Session) error {
	for {
		typ, data, err := s.Conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.sendError(ctx, s.Conn, "Only text messages are supported")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, s.Conn, "Malformed message")
			continue
		}
		h.handleClientMessage(ctx, s, msg)
	}
}

// writeLoop forwards every view state to the client. It ends when the view
// is unmounted.
func (h *Handler) writeLoop(ctx context.Context, s *Session) error {
	updates := s.View.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if err := h.sendMessage(ctx, s.Conn, ServerMessage{Type: MessageTypeState, Payload: st}); err != nil {
				return err
			}
		}
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) handleClientMessage(ctx context.Context, s *Session, msg ClientMessage) {
	switch msg.Type {
	case MessageTypePing:
		_ = h.sendMessage(ctx, s.Conn, ServerMessage{Type: MessageTypePong})

	case MessageTypeUpdateForm:
		patch, err := decodePatch(msg.Payload)
		if err != nil || patch == nil {
			h.sendError(ctx, s.Conn, "Invalid update_form request: form fields required")
			return
		}
		s.View.UpdateForm(*patch)

	case MessageTypeSubmit:
		patch, err := decodePatch(msg.Payload)
		if err != nil {
			h.sendError(ctx, s.Conn, "Invalid submit request")
			return
		}
		s.View.Submit(patch)

	default:
		h.log.Debugw("Unknown message type from client",
			"sessionID", s.ID,
			"type", msg.Type)
		h.sendError(ctx, s.Conn, "Unknown message type")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, message string) {
	_ = h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypeError, Error: message})
}

// sendMessage sends a message to the client.
func (h *Handler) sendMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

// Hub returns the hub sessions register with.
func (h *Handler) Hub() *Hub {
	return h.hub
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
