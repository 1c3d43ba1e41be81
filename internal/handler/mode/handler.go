package mode

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
	"github.com/mnemosyne-labs/mnemosyne/pkg/utils"
)

// Handler serves the therapeutic mode table.
type Handler struct {
	modes mode.Store
}

// New creates the mode handler.
func New(modes mode.Store) *Handler {
	return &Handler{modes: modes}
}

// RegisterRoutes registers mode routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/modes", h.handleListModes)
}

func (h *Handler) handleListModes(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.modes.List())
}
