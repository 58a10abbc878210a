package session

// Phase is the orchestration state of the conversation session. At most one
// of Listening, Recording, Translating is ever active, and each is entered
// only from Idle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseListening   Phase = "listening"
	PhaseRecording   Phase = "recording"
	PhaseTranslating Phase = "translating"
	PhaseError       Phase = "error"
)

// Busy reports whether the phase occupies the single in-flight slot.
func (p Phase) Busy() bool {
	switch p {
	case PhaseListening, PhaseRecording, PhaseTranslating:
		return true
	default:
		return false
	}
}

// Mode is the active communication mode selected in the UI.
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
	ModeVideo Mode = "video"
)
