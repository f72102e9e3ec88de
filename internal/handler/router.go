package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/wp-fixit/backend/internal/handler/preset"
	"github.com/zhouzirui/wp-fixit/backend/internal/handler/session"
	"github.com/zhouzirui/wp-fixit/backend/internal/handler/stream"
	"github.com/zhouzirui/wp-fixit/backend/internal/handler/view"
	"github.com/zhouzirui/wp-fixit/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/wp-fixit/backend/internal/middleware"
	presetModel "github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
	"github.com/zhouzirui/wp-fixit/backend/internal/render"
	chatService "github.com/zhouzirui/wp-fixit/backend/internal/service/chat"
	"github.com/zhouzirui/wp-fixit/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(presets presetModel.Store, chatSvc *chatService.Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	presenter := view.NewPresenter(render.NewMarkdown(), logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		preset.New(presets).RegisterRoutes(api)
		session.New(chatSvc, presets, presenter, logger).RegisterRoutes(api)
		stream.New(chatSvc, presenter, logger).RegisterRoutes(api)
		ws.New(chatSvc, presets, presenter, logger).RegisterRoutes(api)
	})

	return r
}
