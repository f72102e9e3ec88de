package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/wp-fixit/backend/internal/handler/view"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
	"github.com/zhouzirui/wp-fixit/backend/pkg/utils"
)

// Handler serves session commands over REST.
type Handler struct {
	chatSvc   *chatService.Service
	presets   preset.Store
	presenter *view.Presenter
	logger    *slog.Logger
}

// New creates a session handler.
func New(chatSvc *chatService.Service, presets preset.Store, presenter *view.Presenter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc:   chatSvc,
		presets:   presets,
		presenter: presenter,
		logger:    logger.With("component", "session_handler"),
	}
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Delete("/session/{sessionID}", h.handleDeleteSession)
	r.Put("/session/{sessionID}/draft", h.handleSetDraft)
	r.Post("/session/{sessionID}/messages", h.handleSubmitMessage)
	r.Post("/session/{sessionID}/presets/{presetID}", h.handleSubmitPreset)
	r.Post("/session/{sessionID}/reset", h.handleReset)
}

type submitRequest struct {
	Text string `json:"text"`
	Wait bool   `json:"wait"`
}

type submitResponse struct {
	Accepted bool          `json:"accepted"`
	Snapshot view.Snapshot `json:"snapshot"`
	Reply    *view.Turn    `json:"reply,omitempty"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("create session failed", "error", err)
		utils.RespondError(w, http.StatusServiceUnavailable, "chat unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, h.presenter.Snapshot(session.Snapshot()))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.presenter.Snapshot(session.Snapshot()))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session.SetDraft(payload.Text)
	utils.RespondJSON(w, http.StatusOK, h.presenter.Snapshot(session.Snapshot()))
}

func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload submitRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	done, accepted := session.Submit(r.Context(), payload.Text)
	h.respondSubmit(w, r, session, done, accepted, payload.Wait)
}

func (h *Handler) handleSubmitPreset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	issue, found := h.presets.FindByID(chi.URLParam(r, "presetID"))
	if !found {
		utils.RespondError(w, http.StatusNotFound, preset.ErrNotFound.Error())
		return
	}

	wait := r.URL.Query().Get("wait") == "true"
	done, accepted := session.SubmitPreset(r.Context(), issue)
	h.respondSubmit(w, r, session, done, accepted, wait)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	session.Reset()
	utils.RespondJSON(w, http.StatusOK, h.presenter.Snapshot(session.Snapshot()))
}

// respondSubmit answers 202 once a submission is accepted, or 200 with the
// reply when wait is set. Ignored submissions (blank text or a call already
// pending) answer 200 with accepted=false.
func (h *Handler) respondSubmit(w http.ResponseWriter, r *http.Request, session *chatService.Session, done <-chan chat.Turn, accepted, wait bool) {
	if !accepted {
		utils.RespondJSON(w, http.StatusOK, submitResponse{Snapshot: h.presenter.Snapshot(session.Snapshot())})
		return
	}
	if !wait {
		utils.RespondJSON(w, http.StatusAccepted, submitResponse{Accepted: true, Snapshot: h.presenter.Snapshot(session.Snapshot())})
		return
	}

	select {
	case turn := <-done:
		reply := h.presenter.Turn(turn)
		utils.RespondJSON(w, http.StatusOK, submitResponse{
			Accepted: true,
			Snapshot: h.presenter.Snapshot(session.Snapshot()),
			Reply:    &reply,
		})
	case <-r.Context().Done():
		h.logger.Debug("client left before reply", "session_id", session.ID())
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Session, bool) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return session, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
