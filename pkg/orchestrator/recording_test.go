package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/omnitalk/omnitalk/pkg/capture/recorder"
	"github.com/omnitalk/omnitalk/pkg/capture/stt"
	"github.com/omnitalk/omnitalk/pkg/core/types"
	"github.com/omnitalk/omnitalk/pkg/gateway"
	"github.com/omnitalk/omnitalk/pkg/session"
)

// recordingSTTSession closes its delta stream on Close, the way a real
// engine ends a session when the recording stops.
type recordingSTTSession struct {
	deltas    chan stt.Delta
	closeOnce sync.Once
}

func (s *recordingSTTSession) SendAudio([]byte) error   { return nil }
func (s *recordingSTTSession) Finalize() error          { return nil }
func (s *recordingSTTSession) Deltas() <-chan stt.Delta { return s.deltas }
func (s *recordingSTTSession) Err() error               { return nil }
func (s *recordingSTTSession) Close() error {
	s.closeOnce.Do(func() { close(s.deltas) })
	return nil
}

type recordingSTTEngine struct {
	sess *recordingSTTSession
}

func (e *recordingSTTEngine) Start(context.Context, stt.Options) (stt.Session, error) {
	return e.sess, nil
}

func TestRecordingRoundTrip(t *testing.T) {
	sess := &recordingSTTSession{deltas: make(chan stt.Delta, 2)}
	sess.deltas <- stt.Delta{Text: "good morning", Final: true}

	gw := &fakeGateway{translateOut: gateway.Translation{Text: "buenos dias", Suggestions: []string{"a", "b", "c"}}}
	rec := recorder.New(&recordingSTTEngine{sess: sess}, time.Minute, nil)
	o, state := newTestOrchestrator(t, gw, func(d *Dependencies) { d.Recorder = rec })
	o.SetProfile(&types.UserProfile{Name: "Sam", LanguageCode: "en"})
	o.SetPartnerLanguage("es")

	src := &silentSource{}
	active, err := o.StartRecording(context.Background(), src, types.SenderUser)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if state.Phase() != session.PhaseRecording {
		t.Fatalf("phase = %s during recording", state.Phase())
	}
	if _, ok := state.Capturing(); !ok {
		t.Error("capturing party not published")
	}

	// Let the pump collect some audio before stopping.
	time.Sleep(20 * time.Millisecond)

	msg, err := o.StopRecording(context.Background(), active, types.KindRecordedAudio)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if msg.OriginalText != "good morning" {
		t.Errorf("transcript = %q", msg.OriginalText)
	}
	if msg.Media == nil || msg.Media.MIMEType != "audio/wav" {
		t.Fatalf("media = %+v", msg.Media)
	}
	if msg.Kind != types.KindRecordedAudio {
		t.Errorf("kind = %s", msg.Kind)
	}
	if msg.SourceLang != "en" || msg.TargetLang != "es" {
		t.Errorf("languages = %s -> %s", msg.SourceLang, msg.TargetLang)
	}
	if state.Phase() != session.PhaseIdle {
		t.Errorf("phase = %s after commit", state.Phase())
	}

	src.mu.Lock()
	released := src.closed
	src.mu.Unlock()
	if !released {
		t.Error("capture device not released")
	}
}

func TestRecordingNotConfigured(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeGateway{})
	_, err := o.StartRecording(context.Background(), &silentSource{}, types.SenderUser)
	if err == nil {
		t.Fatal("recording started without a recorder")
	}
}

func TestRecordingBusy(t *testing.T) {
	rec := recorder.New(nil, time.Minute, nil)
	o, state := newTestOrchestrator(t, &fakeGateway{}, func(d *Dependencies) { d.Recorder = rec })
	if !state.BeginPhase(session.PhaseTranslating) {
		t.Fatal("could not claim phase")
	}
	if _, err := o.StartRecording(context.Background(), &silentSource{}, types.SenderUser); err == nil {
		t.Fatal("recording started while session busy")
	}
}
