// Package session holds the conversation session state: the append-only
// message history and the transient orchestration state. All mutation goes
// through the orchestrator; the presentation layer only reads.
package session

import (
	"sync"
	"time"

	"github.com/omnitalk/omnitalk/pkg/core/types"
)

// Store is the single process-wide session state holder.
type Store struct {
	mu sync.Mutex

	history []types.Message

	phase           Phase
	mode            Mode
	capturingParty  types.Sender
	hasCapture      bool
	interim         string
	autoReply       bool
	suggestions     []string
	lastError       string
	recordingSince  time.Time
	errorClearTimer *time.Timer

	errorClearAfter time.Duration
	now             func() time.Time
}

// NewStore creates a session store. errorClearAfter bounds how long an error
// banner stays visible before the phase returns to idle on its own.
func NewStore(errorClearAfter time.Duration) *Store {
	if errorClearAfter <= 0 {
		errorClearAfter = 3 * time.Second
	}
	return &Store{
		history:         make([]types.Message, 0, 16),
		phase:           PhaseIdle,
		mode:            ModeText,
		errorClearAfter: errorClearAfter,
		now:             time.Now,
	}
}

// Phase returns the current orchestration phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// BeginPhase transitions Idle -> next. It reports false without mutating when
// the session is not idle, enforcing the single-flight rule.
func (s *Store) BeginPhase(next Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !next.Busy() {
		return false
	}
	if s.phase != PhaseIdle {
		return false
	}
	s.phase = next
	if next == PhaseRecording {
		s.recordingSince = s.now()
	}
	return true
}

// EndPhase returns the session to Idle from any busy phase.
func (s *Store) EndPhase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Busy() {
		s.phase = PhaseIdle
		s.recordingSince = time.Time{}
		s.interim = ""
		s.hasCapture = false
	}
}

// FailPhase enters the Error phase with a user-visible message. The error
// clears back to Idle after the configured timeout.
func (s *Store) FailPhase(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseError
	s.lastError = message
	s.recordingSince = time.Time{}
	s.interim = ""
	s.hasCapture = false
	if s.errorClearTimer != nil {
		s.errorClearTimer.Stop()
	}
	s.errorClearTimer = time.AfterFunc(s.errorClearAfter, s.clearError)
}

func (s *Store) clearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseError {
		s.phase = PhaseIdle
		s.lastError = ""
	}
}

// LastError returns the visible error banner text, if any.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Mode returns the active communication mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches communication mode. Switches are refused while capturing
// input; it reports whether the switch took effect.
func (s *Store) SetMode(m Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseListening || s.phase == PhaseRecording {
		return false
	}
	s.mode = m
	return true
}

// SetCapturing records which party is currently producing input.
func (s *Store) SetCapturing(party types.Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturingParty = party
	s.hasCapture = true
}

// Capturing returns the capturing party, if any.
func (s *Store) Capturing() (types.Sender, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturingParty, s.hasCapture
}

// SetInterim updates the transient in-progress transcript.
func (s *Store) SetInterim(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interim = text
}

// Interim returns the transient in-progress transcript.
func (s *Store) Interim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim
}

// SetAutoReply toggles avatar auto-reply mode.
func (s *Store) SetAutoReply(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReply = on
}

// AutoReply reports whether avatar auto-reply mode is active.
func (s *Store) AutoReply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoReply
}

// SetSuggestions replaces the quick-reply suggestion set.
func (s *Store) SetSuggestions(suggestions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append([]string(nil), suggestions...)
}

// ClearSuggestions drops the current quick-reply suggestions.
func (s *Store) ClearSuggestions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = nil
}

// Suggestions returns a copy of the current quick-reply suggestions.
func (s *Store) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.suggestions...)
}

// RecordingElapsed returns how long the current recording has been running.
// Purely cosmetic; never gates orchestration.
func (s *Store) RecordingElapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordingSince.IsZero() {
		return 0
	}
	return s.now().Sub(s.recordingSince)
}

// Append commits a message to history. This is the atomic commit point of a
// turn: history is append-only and never reordered or mutated in place.
func (s *Store) Append(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

// History returns a snapshot of the full message history.
func (s *Store) History() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of committed turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// LastTurns returns up to n most recent turns in conversation order, reduced
// to their grounding form.
func (s *Store) LastTurns(n int) []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.history) == 0 {
		return nil
	}
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.Turn, 0, len(s.history)-start)
	for _, m := range s.history[start:] {
		out = append(out, m.AsTurn())
	}
	return out
}
