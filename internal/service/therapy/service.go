// Package therapy sequences the session lifecycle: create a session,
// append turns, request completions, and close with a generated summary.
package therapy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/service/completion"
	"github.com/mnemosyne-labs/mnemosyne/internal/storage"
)

var (
	ErrSessionInactive = errors.New("no active session")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrUnknownMode     = errors.New("unknown therapeutic mode")
)

const greetingMessage = "Hello, I'm here to listen and support you. This is a safe space to explore whatever is on your mind. What would you like to talk about today?"

const defaultPatientID = "anonymous"

// endKeywords end the session from anywhere inside a patient message.
var endKeywords = []string{"//end", "//close", "//finish", "//done"}

// Completer issues one blocking chat completion per call.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, contextMessages []completion.Message, userMessage string, temperature float64, maxTokens int) (string, error)
}

// State is the explicit per-interaction session state. It is passed into
// and returned from every lifecycle method; the service holds no ambient
// session globals.
type State struct {
	SessionID int64   `json:"sessionId"`
	Mode      mode.ID `json:"mode"`
	Active    bool    `json:"active"`
}

// MessageResult carries everything one patient interaction produced.
type MessageResult struct {
	State   State          `json:"state"`
	Turns   []therapy.Turn `json:"turns"`
	Summary string         `json:"summary,omitempty"`
}

// Service orchestrates storage, context assembly, and completions.
type Service struct {
	store     *storage.Store
	completer Completer
	modes     mode.Store
	maxTokens int
	window    int
}

// NewService wires the orchestrator to its collaborators.
func NewService(store *storage.Store, completer Completer, modes mode.Store) *Service {
	return &Service{
		store:     store,
		completer: completer,
		modes:     modes,
		maxTokens: 1000,
		window:    DefaultContextWindow,
	}
}

// Start creates a session, records the SYSTEM session_start turn and the
// canned therapist greeting, and returns the active state.
func (s *Service) Start(ctx context.Context, sessionType, patientID string) (State, []therapy.Turn, error) {
	if patientID == "" {
		patientID = defaultPatientID
	}

	session, err := s.store.CreateSession(ctx, sessionType, patientID)
	if err != nil {
		return State{}, nil, err
	}

	startTurn, err := s.store.AppendTurn(ctx, session.ID, therapy.SpeakerSystem,
		"Session started: "+sessionType, therapy.TypeSessionStart, nil)
	if err != nil {
		return State{}, nil, err
	}
	greetingTurn, err := s.store.AppendTurn(ctx, session.ID, therapy.SpeakerTherapist,
		greetingMessage, therapy.TypeGreeting, nil)
	if err != nil {
		return State{}, nil, err
	}

	log.Printf("[therapy] started session=%d type=%q patient=%s", session.ID, sessionType, patientID)
	state := State{SessionID: session.ID, Mode: s.modes.Default().ID, Active: true}
	return state, []therapy.Turn{startTurn, greetingTurn}, nil
}

// SubmitPatientMessage records the patient turn and either ends the
// session (when the trimmed, lowercased text carries an end keyword) or
// requests a therapist reply using the active mode's prompt and
// temperature. Completion failures are stored verbatim as short
// placeholder therapist turns; the storage layer does not distinguish a
// degraded reply from a real one.
func (s *Service) SubmitPatientMessage(ctx context.Context, state State, text string) (MessageResult, error) {
	if !state.Active {
		return MessageResult{}, ErrSessionInactive
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return MessageResult{}, ErrEmptyMessage
	}

	history, err := s.store.ListTurns(ctx, state.SessionID)
	if err != nil {
		return MessageResult{}, err
	}

	patientTurn, err := s.store.AppendTurn(ctx, state.SessionID, therapy.SpeakerPatient,
		text, therapy.TypeDialogue, nil)
	if err != nil {
		return MessageResult{}, err
	}

	if containsEndKeyword(text) {
		return s.endByKeyword(ctx, state, append(history, patientTurn), patientTurn)
	}

	active, ok := s.modes.FindByID(state.Mode)
	if !ok {
		active = s.modes.Default()
	}

	reply, err := s.completer.Complete(ctx, active.SystemPrompt, BuildContext(history, s.window),
		text, active.Temperature, s.maxTokens)
	if err != nil {
		log.Printf("[therapy] completion failed for session=%d: %v", state.SessionID, err)
		reply = placeholderFor(err)
	}

	therapistTurn, err := s.store.AppendTurn(ctx, state.SessionID, therapy.SpeakerTherapist,
		reply, therapy.TypeDialogue, nil)
	if err != nil {
		return MessageResult{}, err
	}

	return MessageResult{State: state, Turns: []therapy.Turn{patientTurn, therapistTurn}}, nil
}

// End closes the session explicitly: a summary is generated from the full
// history and the end timestamp is set.
func (s *Service) End(ctx context.Context, state State) (State, string, error) {
	if !state.Active {
		return state, "", ErrSessionInactive
	}

	// Reject a double end before summarizing; the summary is a paid
	// completion call and must not run for a session already closed.
	session, err := s.store.GetSession(ctx, state.SessionID)
	if err != nil {
		return state, "", err
	}
	if session.Ended() {
		return state, "", storage.ErrSessionEnded
	}

	history, err := s.store.ListTurns(ctx, state.SessionID)
	if err != nil {
		return state, "", err
	}

	summary := s.Summarize(ctx, history)
	if err := s.store.EndSession(ctx, state.SessionID, summary); err != nil {
		return state, "", err
	}

	log.Printf("[therapy] ended session=%d", state.SessionID)
	state.Active = false
	return state, summary, nil
}

// ChangeMode records a SYSTEM mode_change turn and switches the state's
// mode. The lifecycle state is unchanged.
func (s *Service) ChangeMode(ctx context.Context, state State, newMode mode.ID) (State, error) {
	if !state.Active {
		return state, ErrSessionInactive
	}
	selected, ok := s.modes.FindByID(newMode)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrUnknownMode, newMode)
	}

	_, err := s.store.AppendTurn(ctx, state.SessionID, therapy.SpeakerSystem,
		"Mode changed to: "+selected.Label, therapy.TypeModeChange,
		map[string]string{"mode": string(selected.ID)})
	if err != nil {
		return state, err
	}

	state.Mode = selected.ID
	return state, nil
}

// Resume reloads a stored session and re-enters the active state without
// re-issuing the greeting. The therapeutic mode is recovered from the most
// recent mode_change turn, defaulting when none exists.
func (s *Service) Resume(ctx context.Context, sessionID int64) (State, []therapy.Turn, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return State{}, nil, err
	}

	history, err := s.store.ListTurns(ctx, sessionID)
	if err != nil {
		return State{}, nil, err
	}

	state := State{
		SessionID: sessionID,
		Mode:      recoverMode(history, s.modes),
		Active:    true,
	}
	return state, history, nil
}

func (s *Service) endByKeyword(ctx context.Context, state State, history []therapy.Turn, patientTurn therapy.Turn) (MessageResult, error) {
	endTurn, err := s.store.AppendTurn(ctx, state.SessionID, therapy.SpeakerSystem,
		"Session ended by patient using keyword command", therapy.TypeSessionEnd, nil)
	if err != nil {
		return MessageResult{}, err
	}

	summary := s.Summarize(ctx, history)
	if err := s.store.EndSession(ctx, state.SessionID, summary); err != nil {
		return MessageResult{}, err
	}

	log.Printf("[therapy] session=%d ended by keyword", state.SessionID)
	state.Active = false
	return MessageResult{
		State:   state,
		Turns:   []therapy.Turn{patientTurn, endTurn},
		Summary: summary,
	}, nil
}

func containsEndKeyword(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, keyword := range endKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// placeholderFor maps a completion failure to the short human-readable
// string stored and displayed as if it were the therapist's reply.
func placeholderFor(err error) string {
	var cerr *completion.Error
	if !errors.As(err, &cerr) {
		return "Error: " + err.Error()
	}
	switch cerr.Kind {
	case completion.KindAuth:
		return "Invalid API key."
	case completion.KindRateLimited:
		return "Rate limit exceeded. Please wait and try again."
	case completion.KindTimeout:
		return "Request timeout. Please try again."
	case completion.KindAPI:
		return fmt.Sprintf("API error (%d).", cerr.Status)
	default:
		return "Error: " + cerr.Detail
	}
}

func recoverMode(history []therapy.Turn, modes mode.Store) mode.ID {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].MessageType != therapy.TypeModeChange {
			continue
		}
		if id, ok := decodeModeMetadata(history[i].Metadata); ok {
			if _, known := modes.FindByID(id); known {
				return id
			}
		}
	}
	return modes.Default().ID
}
