package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	modeHandler "github.com/mnemosyne-labs/mnemosyne/internal/handler/mode"
	sessionHandler "github.com/mnemosyne-labs/mnemosyne/internal/handler/session"
	middlewarePkg "github.com/mnemosyne-labs/mnemosyne/internal/middleware"
	modeModel "github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
	therapyService "github.com/mnemosyne-labs/mnemosyne/internal/service/therapy"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(modes modeModel.Store, therapySvc *therapyService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		modeHandler.New(modes).RegisterRoutes(api)
		sessionHandler.New(therapySvc, modes).RegisterRoutes(api)
	})

	return r
}
