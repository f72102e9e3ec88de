package preset

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
	"github.com/zhouzirui/wp-fixit/backend/pkg/utils"
)

// Handler serves the preset issue catalog.
type Handler struct {
	presets preset.Store
}

// New creates a preset handler.
func New(presets preset.Store) *Handler {
	return &Handler{presets: presets}
}

// RegisterRoutes registers the preset routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/presets", h.handleListPresets)
}

type catalogResponse struct {
	Issues []preset.Issue `json:"issues"`
	Links  []preset.Link  `json:"links"`
}

func (h *Handler) handleListPresets(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, catalogResponse{
		Issues: h.presets.List(),
		Links:  h.presets.Links(),
	})
}
