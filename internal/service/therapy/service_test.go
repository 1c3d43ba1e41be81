package therapy_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
	therapy "github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/service/completion"
	service "github.com/mnemosyne-labs/mnemosyne/internal/service/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/storage"
)

// mockCompleter scripts replies and records what the orchestrator sent.
type mockCompleter struct {
	reply string
	err   error

	calls         int
	systemPrompts []string
	contexts      [][]completion.Message
	userMessages  []string
	temperatures  []float64
}

func (m *mockCompleter) Complete(_ context.Context, systemPrompt string, contextMessages []completion.Message, userMessage string, temperature float64, _ int) (string, error) {
	m.calls++
	m.systemPrompts = append(m.systemPrompts, systemPrompt)
	m.contexts = append(m.contexts, contextMessages)
	m.userMessages = append(m.userMessages, userMessage)
	m.temperatures = append(m.temperatures, temperature)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func setupService(t *testing.T, completer service.Completer) (*service.Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	return service.NewService(store, completer, mode.NewMemoryStore(mode.Seed())), store
}

func TestStartThenSubmitScenario(t *testing.T) {
	completer := &mockCompleter{reply: "Tell me more"}
	svc, store := setupService(t, completer)
	ctx := context.Background()

	state, turns, err := svc.Start(ctx, "Follow-up", "p1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if !state.Active || state.Mode != mode.ExploratoryDialogue {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if len(turns) != 2 {
		t.Fatalf("expected session_start and greeting turns, got %d", len(turns))
	}

	result, err := svc.SubmitPatientMessage(ctx, state, "I feel anxious")
	if err != nil {
		t.Fatalf("SubmitPatientMessage err: %v", err)
	}
	if !result.State.Active {
		t.Fatal("session must stay active after a normal message")
	}

	history, err := store.ListTurns(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("ListTurns err: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected exactly 4 rows, got %d", len(history))
	}
	expected := []struct {
		speaker     therapy.Speaker
		messageType string
		message     string
	}{
		{therapy.SpeakerSystem, therapy.TypeSessionStart, "Session started: Follow-up"},
		{therapy.SpeakerTherapist, therapy.TypeGreeting, ""},
		{therapy.SpeakerPatient, therapy.TypeDialogue, "I feel anxious"},
		{therapy.SpeakerTherapist, therapy.TypeDialogue, "Tell me more"},
	}
	for i, want := range expected {
		if history[i].Speaker != want.speaker || history[i].MessageType != want.messageType {
			t.Fatalf("row %d: got %s/%s", i, history[i].Speaker, history[i].MessageType)
		}
		if want.message != "" && history[i].Message != want.message {
			t.Fatalf("row %d: got message %q", i, history[i].Message)
		}
	}

	// The default mode's prompt and temperature reached the client, and the
	// new user message was not duplicated into the context window.
	if completer.calls != 1 {
		t.Fatalf("expected 1 completion call, got %d", completer.calls)
	}
	if completer.temperatures[0] != 0.8 {
		t.Fatalf("expected exploratory temperature 0.8, got %v", completer.temperatures[0])
	}
	if completer.userMessages[0] != "I feel anxious" {
		t.Fatalf("unexpected user message %q", completer.userMessages[0])
	}
	for _, msg := range completer.contexts[0] {
		if msg.Content == "I feel anxious" {
			t.Fatal("new user message duplicated into context window")
		}
	}
}

func TestSubmitEndKeywordSkipsReply(t *testing.T) {
	completer := &mockCompleter{reply: "summary text"}
	svc, store := setupService(t, completer)
	ctx := context.Background()

	state, _, err := svc.Start(ctx, "Follow-up", "p1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	result, err := svc.SubmitPatientMessage(ctx, state, "  ok //END now  ")
	if err != nil {
		t.Fatalf("SubmitPatientMessage err: %v", err)
	}
	if result.State.Active {
		t.Fatal("end keyword must deactivate the session")
	}
	if result.Summary != "summary text" {
		t.Fatalf("unexpected summary %q", result.Summary)
	}

	// Only the summariser reached the completion client; no therapist
	// reply was requested.
	if completer.calls != 1 {
		t.Fatalf("expected only the summary completion call, got %d", completer.calls)
	}
	if !strings.Contains(completer.systemPrompts[0], "clinical supervisor") {
		t.Fatalf("expected summary prompt, got %q", completer.systemPrompts[0])
	}

	history, err := store.ListTurns(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("ListTurns err: %v", err)
	}
	last := history[len(history)-1]
	if last.Speaker != therapy.SpeakerSystem || last.MessageType != therapy.TypeSessionEnd {
		t.Fatalf("expected trailing session_end turn, got %s/%s", last.Speaker, last.MessageType)
	}

	session, err := store.GetSession(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if !session.Ended() || session.Summary == nil || *session.Summary != "summary text" {
		t.Fatalf("session not closed with summary: %+v", session)
	}
}

func TestSubmitRecordsPlaceholderOnRateLimit(t *testing.T) {
	completer := &mockCompleter{err: &completion.Error{Kind: completion.KindRateLimited, Status: 429}}
	svc, store := setupService(t, completer)
	ctx := context.Background()

	state, _, err := svc.Start(ctx, "Follow-up", "p1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	result, err := svc.SubmitPatientMessage(ctx, state, "I feel anxious")
	if err != nil {
		t.Fatalf("a degraded reply must not surface as an error, got %v", err)
	}

	reply := result.Turns[len(result.Turns)-1]
	if reply.Speaker != therapy.SpeakerTherapist {
		t.Fatalf("placeholder must be recorded as the therapist, got %s", reply.Speaker)
	}
	if reply.Message != "Rate limit exceeded. Please wait and try again." {
		t.Fatalf("unexpected placeholder %q", reply.Message)
	}

	history, err := store.ListTurns(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("ListTurns err: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("placeholder turn must be persisted, got %d rows", len(history))
	}
}

func TestSubmitInactiveSession(t *testing.T) {
	svc, _ := setupService(t, &mockCompleter{})

	_, err := svc.SubmitPatientMessage(context.Background(), service.State{SessionID: 1}, "hello")
	if !errors.Is(err, service.ErrSessionInactive) {
		t.Fatalf("expected ErrSessionInactive, got %v", err)
	}
}

func TestEndExplicitly(t *testing.T) {
	completer := &mockCompleter{reply: "closing summary"}
	svc, store := setupService(t, completer)
	ctx := context.Background()

	state, _, err := svc.Start(ctx, "Follow-up", "p1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if _, err := svc.SubmitPatientMessage(ctx, state, "I feel anxious"); err != nil {
		t.Fatalf("SubmitPatientMessage err: %v", err)
	}

	state, summary, err := svc.End(ctx, state)
	if err != nil {
		t.Fatalf("End err: %v", err)
	}
	if state.Active {
		t.Fatal("End must deactivate the state")
	}
	if summary != "closing summary" {
		t.Fatalf("unexpected summary %q", summary)
	}

	turnsBefore, _ := store.ListTurns(ctx, state.SessionID)
	callsBefore := completer.calls

	// Ending again reports the condition without duplicating turns or
	// paying for another summary completion.
	if _, _, err := svc.End(ctx, service.State{SessionID: state.SessionID, Active: true}); !errors.Is(err, storage.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	turnsAfter, _ := store.ListTurns(ctx, state.SessionID)
	if len(turnsAfter) != len(turnsBefore) {
		t.Fatal("double end duplicated turn rows")
	}
	if completer.calls != callsBefore {
		t.Fatalf("double end must not invoke the completion client, calls went %d -> %d", callsBefore, completer.calls)
	}
}

func TestChangeModeAndResume(t *testing.T) {
	completer := &mockCompleter{reply: "ok"}
	svc, _ := setupService(t, completer)
	ctx := context.Background()

	state, _, err := svc.Start(ctx, "Trauma Processing", "p1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	state, err = svc.ChangeMode(ctx, state, mode.TraumaProcessing)
	if err != nil {
		t.Fatalf("ChangeMode err: %v", err)
	}
	if state.Mode != mode.TraumaProcessing {
		t.Fatalf("state mode not updated: %s", state.Mode)
	}
	if !state.Active {
		t.Fatal("mode change must not alter lifecycle state")
	}

	if _, err := svc.ChangeMode(ctx, state, mode.ID("hypnosis")); !errors.Is(err, service.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}

	resumed, history, err := svc.Resume(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("Resume err: %v", err)
	}
	if resumed.Mode != mode.TraumaProcessing {
		t.Fatalf("resume must recover the last mode, got %s", resumed.Mode)
	}
	if !resumed.Active {
		t.Fatal("resume must re-enter the active state")
	}

	// No second greeting: still the start turn, the greeting, and one
	// mode_change turn.
	greetings := 0
	for _, turn := range history {
		if turn.MessageType == therapy.TypeGreeting {
			greetings++
		}
	}
	if greetings != 1 {
		t.Fatalf("resume must not re-issue the greeting, found %d", greetings)
	}
}

func TestSummarizeFallbacks(t *testing.T) {
	failing := &mockCompleter{err: &completion.Error{Kind: completion.KindTimeout}}
	svc, _ := setupService(t, failing)
	ctx := context.Background()

	history := []therapy.Turn{
		{Speaker: therapy.SpeakerPatient, Message: "I feel anxious"},
		{Speaker: therapy.SpeakerTherapist, Message: "Tell me more"},
	}
	if got := svc.Summarize(ctx, history); got != "Could not generate summary." {
		t.Fatalf("expected error fallback, got %q", got)
	}

	systemOnly := []therapy.Turn{{Speaker: therapy.SpeakerSystem, Message: "Session started: Follow-up"}}
	if got := svc.Summarize(ctx, systemOnly); got != "No conversation to summarize." {
		t.Fatalf("expected empty fallback, got %q", got)
	}
}

func TestSummarizeTranscriptShape(t *testing.T) {
	completer := &mockCompleter{reply: "fine"}
	svc, _ := setupService(t, completer)

	history := []therapy.Turn{
		{Speaker: therapy.SpeakerSystem, Message: "Session started: Follow-up"},
		{Speaker: therapy.SpeakerPatient, Message: "I feel anxious"},
		{Speaker: therapy.SpeakerTherapist, Message: "Tell me more"},
	}
	svc.Summarize(context.Background(), history)

	prompt := completer.userMessages[0]
	if !strings.Contains(prompt, "PATIENT: I feel anxious") || !strings.Contains(prompt, "THERAPIST: Tell me more") {
		t.Fatalf("transcript lines missing from prompt: %q", prompt)
	}
	if strings.Contains(prompt, "SYSTEM:") {
		t.Fatal("system turns must not reach the summary transcript")
	}
	if completer.temperatures[0] != 0.5 {
		t.Fatalf("expected summary temperature 0.5, got %v", completer.temperatures[0])
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	completer := &mockCompleter{reply: "Tell me more"}
	svc, store := setupService(t, completer)
	ctx := context.Background()

	state, _, err := svc.Start(ctx, "Follow-up", "p1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if _, err := svc.SubmitPatientMessage(ctx, state, "I feel anxious"); err != nil {
		t.Fatalf("SubmitPatientMessage err: %v", err)
	}

	export, err := svc.Export(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("Export err: %v", err)
	}
	if export.SessionID != state.SessionID || len(export.History) != 4 {
		t.Fatalf("unexpected export: session=%d turns=%d", export.SessionID, len(export.History))
	}

	imported, history, err := svc.Import(ctx, export)
	if err != nil {
		t.Fatalf("Import err: %v", err)
	}
	if imported.SessionID == state.SessionID {
		t.Fatal("import must create a new session")
	}
	if !imported.Active {
		t.Fatal("import must resume into the active state")
	}
	if len(history) != len(export.History) {
		t.Fatalf("expected %d imported turns, got %d", len(export.History), len(history))
	}
	for i, turn := range history {
		if !strings.Contains(turn.Metadata, "import_batch") {
			t.Fatalf("round-tripped turn %d missing batch tag: %q", i, turn.Metadata)
		}
	}

	session, err := store.GetSession(ctx, imported.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if session.SessionType != "Follow-up" {
		t.Fatalf("expected session type derived from history, got %q", session.SessionType)
	}
}
