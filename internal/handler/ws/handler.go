package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/wp-fixit/backend/internal/handler/view"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
	"github.com/zhouzirui/wp-fixit/backend/pkg/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Inbound message types.
const (
	TypeSubmit   = "submit"
	TypePreset   = "preset"
	TypeDraft    = "draft"
	TypeReset    = "reset"
	TypeSnapshot = "snapshot"
)

// Outbound message types.
const (
	TypeEvent = "event"
	TypeAck   = "ack"
	TypeError = "error"
)

// Inbound is a client command.
type Inbound struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	PresetID string `json:"presetId,omitempty"`
}

// Outbound is a server message.
type Outbound struct {
	Type     string         `json:"type"`
	Event    *view.Event    `json:"event,omitempty"`
	Snapshot *view.Snapshot `json:"snapshot,omitempty"`
	Accepted *bool          `json:"accepted,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Handler mirrors session commands and events over a WebSocket.
type Handler struct {
	chatSvc   *chatService.Service
	presets   preset.Store
	presenter *view.Presenter
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New creates a WebSocket handler.
func New(chatSvc *chatService.Service, presets preset.Store, presenter *view.Presenter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc:   chatSvc,
		presets:   presets,
		presenter: presenter,
		logger:    logger.With("component", "websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()

	logger := h.logger.With("session_id", sessionID)
	logger.Info("connection opened")
	defer logger.Info("connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := session.Subscribe(ctx)
	if err := c.send(h.snapshot(session)); err != nil {
		return
	}

	go h.pumpEvents(ctx, cancel, c, events)
	go h.pingLoop(ctx, c)

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read error", "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		if err := c.send(h.handleMessage(ctx, session, msg)); err != nil {
			logger.Debug("write failed", "error", err)
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, session *chatService.Session, msg Inbound) Outbound {
	switch msg.Type {
	case TypeSubmit:
		_, accepted := session.Submit(ctx, msg.Text)
		return ack(accepted)
	case TypePreset:
		issue, ok := h.presets.FindByID(msg.PresetID)
		if !ok {
			return Outbound{Type: TypeError, Error: preset.ErrNotFound.Error()}
		}
		_, accepted := session.SubmitPreset(ctx, issue)
		return ack(accepted)
	case TypeDraft:
		session.SetDraft(msg.Text)
		return ack(true)
	case TypeReset:
		session.Reset()
		return ack(true)
	case TypeSnapshot:
		return h.snapshot(session)
	default:
		return Outbound{Type: TypeError, Error: "unsupported message type: " + msg.Type}
	}
}

func (h *Handler) snapshot(session *chatService.Session) Outbound {
	snap := h.presenter.Snapshot(session.Snapshot())
	return Outbound{Type: TypeSnapshot, Snapshot: &snap}
}

// pumpEvents forwards store events until the subscription closes. A closed
// subscription means the session was deleted, so the connection is dropped.
func (h *Handler) pumpEvents(ctx context.Context, cancel context.CancelFunc, c *conn, events <-chan chat.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				cancel()
				_ = c.ws.Close()
				return
			}
			out := h.presenter.Event(ev)
			if err := c.send(Outbound{Type: TypeEvent, Event: &out}); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func ack(accepted bool) Outbound {
	return Outbound{Type: TypeAck, Accepted: &accepted}
}
