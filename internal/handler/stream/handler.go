package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/wp-fixit/backend/internal/handler/view"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
	"github.com/zhouzirui/wp-fixit/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler pushes session events to the browser over Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	presenter *view.Presenter
	logger    *slog.Logger
	heartbeat time.Duration
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, presenter *view.Presenter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc:   chatSvc,
		presenter: presenter,
		logger:    logger.With("component", "sse"),
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes registers the event stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/events", h.handleEvents)
}

// handleEvents sends the current snapshot first, then one SSE event per
// store mutation, named after the event kind. The stream ends when the client
// leaves or the session is deleted.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	events := session.Subscribe(ctx)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", h.presenter.Snapshot(session.Snapshot())); err != nil {
		return
	}

	h.logger.Info("stream opened", "session_id", sessionID)
	defer h.logger.Info("stream closed", "session_id", sessionID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Kind), h.presenter.Event(ev)); err != nil {
				h.logger.Debug("stream write failed", "session_id", sessionID, "error", err)
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
