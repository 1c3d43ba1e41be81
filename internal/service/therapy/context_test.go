package therapy_test

import (
	"reflect"
	"testing"

	therapy "github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/service/completion"
	service "github.com/mnemosyne-labs/mnemosyne/internal/service/therapy"
)

func dialogueHistory(n int) []therapy.Turn {
	history := make([]therapy.Turn, 0, n)
	for i := 0; i < n; i++ {
		speaker := therapy.SpeakerPatient
		if i%2 == 1 {
			speaker = therapy.SpeakerTherapist
		}
		history = append(history, therapy.Turn{
			ID:      int64(i + 1),
			Speaker: speaker,
			Message: string(rune('a' + i)),
		})
	}
	return history
}

func TestBuildContextWindowBound(t *testing.T) {
	history := dialogueHistory(25)

	messages := service.BuildContext(history, 10)
	if len(messages) > 10 {
		t.Fatalf("window must never exceed maxTurns, got %d", len(messages))
	}

	// Oldest of the selected window first.
	if messages[0].Content != history[15].Message {
		t.Fatalf("expected window to start at turn 16, got %q", messages[0].Content)
	}
	if messages[len(messages)-1].Content != history[24].Message {
		t.Fatalf("expected window to end at the last turn, got %q", messages[len(messages)-1].Content)
	}
}

func TestBuildContextShortHistory(t *testing.T) {
	history := dialogueHistory(4)

	messages := service.BuildContext(history, 10)
	if len(messages) != 4 {
		t.Fatalf("expected all turns when history is short, got %d", len(messages))
	}
}

func TestBuildContextRoleMapping(t *testing.T) {
	history := []therapy.Turn{
		{Speaker: therapy.SpeakerPatient, Message: "I feel anxious"},
		{Speaker: therapy.SpeakerTherapist, Message: "Tell me more"},
	}

	messages := service.BuildContext(history, 10)
	want := []completion.Message{
		{Role: completion.RoleUser, Content: "I feel anxious"},
		{Role: completion.RoleAssistant, Content: "Tell me more"},
	}
	if !reflect.DeepEqual(messages, want) {
		t.Fatalf("unexpected mapping: %+v", messages)
	}
}

func TestBuildContextDropsSystemTurns(t *testing.T) {
	history := []therapy.Turn{
		{Speaker: therapy.SpeakerSystem, Message: "Session started: Follow-up"},
		{Speaker: therapy.SpeakerPatient, Message: "hello"},
		{Speaker: therapy.SpeakerSystem, Message: "Mode changed to: Narrative Therapy"},
		{Speaker: therapy.SpeakerTherapist, Message: "hi"},
	}

	for _, message := range service.BuildContext(history, 10) {
		if message.Role != completion.RoleUser && message.Role != completion.RoleAssistant {
			t.Fatalf("system turn leaked into context: %+v", message)
		}
	}
	if got := len(service.BuildContext(history, 10)); got != 2 {
		t.Fatalf("expected 2 context messages, got %d", got)
	}
}

func TestBuildContextDeterministic(t *testing.T) {
	history := dialogueHistory(15)

	first := service.BuildContext(history, 10)
	second := service.BuildContext(history, 10)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input must yield identical output")
	}
}
