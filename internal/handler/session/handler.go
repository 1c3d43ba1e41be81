package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
	therapyService "github.com/mnemosyne-labs/mnemosyne/internal/service/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/storage"
	"github.com/mnemosyne-labs/mnemosyne/pkg/utils"
)

// Handler exposes the session orchestrator over HTTP.
type Handler struct {
	svc   *therapyService.Service
	modes mode.Store
}

// New creates the session handler.
func New(svc *therapyService.Service, modes mode.Store) *Handler {
	return &Handler{svc: svc, modes: modes}
}

// RegisterRoutes registers the session lifecycle routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleStart)
	r.Get("/sessions", h.handleList)
	r.Post("/sessions/import", h.handleImport)
	r.Get("/sessions/{sessionID}/turns", h.handleTurns)
	r.Post("/sessions/{sessionID}/messages", h.handleMessage)
	r.Post("/sessions/{sessionID}/end", h.handleEnd)
	r.Post("/sessions/{sessionID}/mode", h.handleChangeMode)
	r.Post("/sessions/{sessionID}/resume", h.handleResume)
	r.Get("/sessions/{sessionID}/summary", h.handleSummary)
	r.Get("/sessions/{sessionID}/export", h.handleExport)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionType string `json:"sessionType"`
		PatientID   string `json:"patientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionType == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionType is required")
		return
	}

	state, turns, err := h.svc.Start(r.Context(), payload.SessionType, payload.PatientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"state": state,
		"turns": turns,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.Sessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleTurns(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	turns, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Re-enter the session through Resume so the mode is recovered from
	// its history; an explicit mode in the request overrides it.
	state, _, err := h.svc.Resume(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if payload.Mode != "" {
		selected, found := h.modes.FindByID(mode.ID(payload.Mode))
		if !found {
			utils.RespondError(w, http.StatusBadRequest, "unknown therapeutic mode")
			return
		}
		state.Mode = selected.ID
	}

	result, err := h.svc.SubmitPatientMessage(r.Context(), state, payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	state := therapyService.State{SessionID: sessionID, Mode: h.modes.Default().ID, Active: true}
	state, summary, err := h.svc.End(r.Context(), state)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"state":   state,
		"summary": summary,
	})
}

func (h *Handler) handleChangeMode(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var payload struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state := therapyService.State{SessionID: sessionID, Mode: h.modes.Default().ID, Active: true}
	state, err := h.svc.ChangeMode(r.Context(), state, mode.ID(payload.Mode))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	state, turns, err := h.svc.Resume(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"state": state,
		"turns": turns,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	history, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"summary": h.svc.Summarize(r.Context(), history),
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	export, err := h.svc.Export(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, export)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var payload therapy.SessionExport
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, turns, err := h.svc.Import(r.Context(), payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"state": state,
		"turns": turns,
	})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "sessionID")
	sessionID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sessionID <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return sessionID, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *storage.ValidationError
	var importErr *storage.ImportError

	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrSessionEnded):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validationErr),
		errors.As(err, &importErr),
		errors.Is(err, therapyService.ErrEmptyMessage),
		errors.Is(err, therapyService.ErrUnknownMode),
		errors.Is(err, therapyService.ErrSessionInactive):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
