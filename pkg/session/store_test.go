package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/omnitalk/omnitalk/pkg/core/types"
)

func testMessage(i int, sender types.Sender) types.Message {
	return types.Message{
		ID:             fmt.Sprintf("m%d", i),
		Kind:           types.KindText,
		Sender:         sender,
		OriginalText:   fmt.Sprintf("original %d", i),
		TranslatedText: fmt.Sprintf("translated %d", i),
		SourceLang:     "en",
		TargetLang:     "es",
		CreatedAt:      time.Now(),
	}
}

func TestBeginPhaseSingleFlight(t *testing.T) {
	s := NewStore(time.Second)

	if !s.BeginPhase(PhaseListening) {
		t.Fatal("Idle -> Listening should be allowed")
	}
	for _, next := range []Phase{PhaseListening, PhaseRecording, PhaseTranslating} {
		if s.BeginPhase(next) {
			t.Errorf("Listening -> %s must be rejected", next)
		}
	}
	if got := s.Phase(); got != PhaseListening {
		t.Errorf("phase = %s, want listening", got)
	}

	s.EndPhase()
	if got := s.Phase(); got != PhaseIdle {
		t.Errorf("phase after EndPhase = %s, want idle", got)
	}
	if !s.BeginPhase(PhaseTranslating) {
		t.Error("Idle -> Translating should be allowed after EndPhase")
	}
}

func TestBeginPhaseRejectsNonBusyTargets(t *testing.T) {
	s := NewStore(time.Second)
	if s.BeginPhase(PhaseIdle) {
		t.Error("BeginPhase(Idle) must be rejected")
	}
	if s.BeginPhase(PhaseError) {
		t.Error("BeginPhase(Error) must be rejected")
	}
}

func TestFailPhaseAutoClears(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	if !s.BeginPhase(PhaseTranslating) {
		t.Fatal("BeginPhase failed")
	}
	s.FailPhase("translation failed")

	if got := s.Phase(); got != PhaseError {
		t.Fatalf("phase = %s, want error", got)
	}
	if got := s.LastError(); got != "translation failed" {
		t.Errorf("LastError = %q", got)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Phase() == PhaseIdle {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Phase(); got != PhaseIdle {
		t.Errorf("error phase did not auto-clear, phase = %s", got)
	}
	if got := s.LastError(); got != "" {
		t.Errorf("error banner not cleared: %q", got)
	}
}

func TestHistoryAppendOnly(t *testing.T) {
	s := NewStore(time.Second)
	for i := 0; i < 5; i++ {
		before := s.Len()
		s.Append(testMessage(i, types.SenderUser))
		if got := s.Len(); got != before+1 {
			t.Fatalf("append %d: len = %d, want %d", i, got, before+1)
		}
	}

	hist := s.History()
	for i, m := range hist {
		if m.ID != fmt.Sprintf("m%d", i) {
			t.Errorf("history[%d].ID = %q, order broken", i, m.ID)
		}
	}

	// Mutating the snapshot must not affect the store.
	hist[0].OriginalText = "mutated"
	if s.History()[0].OriginalText == "mutated" {
		t.Error("History() must return a copy")
	}
}

func TestLastTurns(t *testing.T) {
	s := NewStore(time.Second)
	for i := 0; i < 5; i++ {
		s.Append(testMessage(i, types.SenderPartner))
	}

	tests := []struct {
		n    int
		want int
	}{
		{3, 3},
		{5, 5},
		{10, 5},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		got := s.LastTurns(tt.n)
		if len(got) != tt.want {
			t.Errorf("LastTurns(%d) len = %d, want %d", tt.n, len(got), tt.want)
		}
	}

	turns := s.LastTurns(2)
	if turns[0].Text != "original 3" || turns[1].Text != "original 4" {
		t.Errorf("LastTurns order wrong: %+v", turns)
	}
}

func TestModeSwitchGuard(t *testing.T) {
	s := NewStore(time.Second)
	if !s.SetMode(ModeVoice) {
		t.Fatal("mode switch while idle should succeed")
	}

	s.BeginPhase(PhaseListening)
	if s.SetMode(ModeVideo) {
		t.Error("mode switch while listening must be refused")
	}
	if got := s.Mode(); got != ModeVoice {
		t.Errorf("mode = %s, want voice", got)
	}
	s.EndPhase()

	s.BeginPhase(PhaseTranslating)
	if !s.SetMode(ModeVideo) {
		t.Error("mode switch while translating is allowed")
	}
}

func TestSuggestions(t *testing.T) {
	s := NewStore(time.Second)
	s.SetSuggestions([]string{"a", "b", "c"})
	got := s.Suggestions()
	if len(got) != 3 {
		t.Fatalf("suggestions len = %d, want 3", len(got))
	}

	got[0] = "mutated"
	if s.Suggestions()[0] == "mutated" {
		t.Error("Suggestions() must return a copy")
	}

	s.ClearSuggestions()
	if len(s.Suggestions()) != 0 {
		t.Error("ClearSuggestions did not clear")
	}
}

func TestRecordingElapsed(t *testing.T) {
	s := NewStore(time.Second)
	base := time.Now()
	s.now = func() time.Time { return base }

	if got := s.RecordingElapsed(); got != 0 {
		t.Errorf("elapsed before recording = %v, want 0", got)
	}

	s.BeginPhase(PhaseRecording)
	s.now = func() time.Time { return base.Add(7 * time.Second) }
	if got := s.RecordingElapsed(); got != 7*time.Second {
		t.Errorf("elapsed = %v, want 7s", got)
	}

	s.EndPhase()
	if got := s.RecordingElapsed(); got != 0 {
		t.Errorf("elapsed after end = %v, want 0", got)
	}
}
