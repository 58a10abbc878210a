// Package types defines the data model shared by the capture adapters, the
// translation gateway client, and the conversation orchestrator.
package types

import (
	"fmt"
	"time"
)

// Sender identifies which side of the conversation produced a message.
// Exactly two roles exist and a message's sender is fixed at construction.
type Sender string

const (
	SenderUser    Sender = "user"    // the local user
	SenderPartner Sender = "partner" // the remote conversation partner
)

// Other returns the opposite conversational role.
func (s Sender) Other() Sender {
	if s == SenderUser {
		return SenderPartner
	}
	return SenderUser
}

// MessageKind describes the input modality a message originated from.
type MessageKind string

const (
	KindText          MessageKind = "text"
	KindLiveAudio     MessageKind = "live_audio"
	KindLiveVideo     MessageKind = "live_video"
	KindRecordedAudio MessageKind = "recorded_audio"
	KindRecordedVideo MessageKind = "recorded_video"
)

// IsVideo reports whether the kind carries a video modality.
func (k MessageKind) IsVideo() bool {
	return k == KindLiveVideo || k == KindRecordedVideo
}

// IsRecorded reports whether the kind originated from a stop-and-send recording.
func (k MessageKind) IsRecorded() bool {
	return k == KindRecordedAudio || k == KindRecordedVideo
}

// MediaAttachment is the assembled blob of a recorded audio or video message.
type MediaAttachment struct {
	Data     []byte        `json:"-"`
	MIMEType string        `json:"mime_type"`
	Duration time.Duration `json:"duration"`
}

// SpeechAudio is synthesized speech attached to a translated message.
// PCM is raw signed 16-bit little-endian mono.
type SpeechAudio struct {
	PCM        []byte `json:"-"`
	SampleRate int    `json:"sample_rate"`
}

// Message is one committed conversation turn. Messages are constructed by the
// orchestrator and are immutable once appended to history.
type Message struct {
	ID             string      `json:"id"`
	Kind           MessageKind `json:"kind"`
	Sender         Sender      `json:"sender"`
	OriginalText   string      `json:"original_text"`
	TranslatedText string      `json:"translated_text"`
	SourceLang     string      `json:"source_lang"`
	TargetLang     string      `json:"target_lang"`
	CreatedAt      time.Time   `json:"created_at"`

	Suggestions []string `json:"suggestions,omitempty"`
	Emotion     string   `json:"emotion,omitempty"`
	AutoReply   bool     `json:"auto_reply,omitempty"`

	Media  *MediaAttachment `json:"media,omitempty"`
	Speech *SpeechAudio     `json:"speech,omitempty"`
}

// Validate checks the invariants that hold for every committed message.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message id is empty")
	}
	switch m.Sender {
	case SenderUser, SenderPartner:
	default:
		return fmt.Errorf("unknown sender %q", m.Sender)
	}
	switch m.Kind {
	case KindText, KindLiveAudio, KindLiveVideo, KindRecordedAudio, KindRecordedVideo:
	default:
		return fmt.Errorf("unknown kind %q", m.Kind)
	}
	if m.OriginalText == "" || m.TranslatedText == "" {
		return fmt.Errorf("original/translated text must both be populated")
	}
	return nil
}

// Turn is the plain representation of a committed message used as contextual
// grounding in gateway requests.
type Turn struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// AsTurn reduces a message to its grounding form (original text only).
func (m *Message) AsTurn() Turn {
	return Turn{Sender: m.Sender, Text: m.OriginalText}
}
