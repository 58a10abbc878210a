package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/omnitalk/omnitalk/pkg/capture/device"
	"github.com/omnitalk/omnitalk/pkg/capture/recorder"
	"github.com/omnitalk/omnitalk/pkg/capture/stt"
	"github.com/omnitalk/omnitalk/pkg/core"
	"github.com/omnitalk/omnitalk/pkg/core/types"
	"github.com/omnitalk/omnitalk/pkg/session"
)

// Listen captures one live utterance from src for the given party and
// commits it as a turn. Interim transcripts are published to the session
// store as they arrive; the utterance is finalized on the first final
// transcript or when the engine ends the session. A session that ends
// with no speech returns (nil, nil): silence is not an error.
//
// Listen holds the Listening phase for the capture itself and releases it
// before processing, so the turn goes through the same single-flight
// translate path as typed text.
func (o *Orchestrator) Listen(ctx context.Context, src device.Source, party types.Sender, kind types.MessageKind) (*types.Message, error) {
	if o.stt == nil {
		return nil, core.NewCaptureUnavailableError("live transcription is not configured", nil)
	}
	if src == nil {
		return nil, core.NewCaptureUnavailableError("no capture source", nil)
	}
	srcLang, dstLang := o.Languages(party)

	if !o.state.BeginPhase(session.PhaseListening) {
		_ = src.Close()
		return nil, core.NewInternalError("session busy")
	}
	// The device is released here no matter how capture ends.
	defer src.Close()
	o.state.SetCapturing(party)
	defer o.state.SetInterim("")

	text, err := o.captureUtterance(ctx, src, srcLang)
	if err != nil {
		o.state.FailPhase("Speech capture failed. Check your microphone.")
		return nil, err
	}
	o.state.EndPhase()
	if text == "" {
		return nil, nil
	}

	return o.ProcessInput(ctx, Input{
		Text:       text,
		SourceLang: srcLang,
		TargetLang: dstLang,
		Sender:     party,
		Kind:       kind,
	})
}

// captureUtterance streams src into a transcription session until a final
// transcript arrives, the session ends, or ctx is canceled. It returns the
// finalized text, possibly empty.
func (o *Orchestrator) captureUtterance(ctx context.Context, src device.Source, language string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := o.stt.Start(ctx, stt.Options{Language: language, SampleRate: src.SampleRate()})
	if err != nil {
		return "", err
	}
	defer sess.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				if err := sess.SendAudio(buf[:n]); err != nil {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					o.logger.Warn("capture read failed", "error", err)
				}
				_ = sess.Finalize()
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	var interim strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case delta, ok := <-sess.Deltas():
			if !ok {
				if err := sess.Err(); err != nil {
					return "", err
				}
				// Natural end with no final transcript: treat the
				// accumulated interim text as the utterance.
				return strings.TrimSpace(interim.String()), nil
			}
			if delta.Final {
				return strings.TrimSpace(delta.Text), nil
			}
			interim.Reset()
			interim.WriteString(delta.Text)
			o.state.SetInterim(delta.Text)
		}
	}
}

// StartRecording claims the Recording phase and begins a stop-and-send
// capture for the given party.
func (o *Orchestrator) StartRecording(ctx context.Context, src device.Source, party types.Sender) (*recorder.Active, error) {
	if o.recorder == nil {
		return nil, core.NewCaptureUnavailableError("recording is not configured", nil)
	}
	srcLang, _ := o.Languages(party)
	if !o.state.BeginPhase(session.PhaseRecording) {
		return nil, core.NewInternalError("session busy")
	}
	o.state.SetCapturing(party)

	active, err := o.recorder.Start(ctx, src, recorder.Options{Party: party, Language: srcLang})
	if err != nil {
		o.state.FailPhase("Recording failed to start. Check your devices.")
		return nil, err
	}
	return active, nil
}

// StopRecording ends an active recording and commits the result as a turn,
// with the assembled media attached and the parallel transcript (or its
// placeholder) as the original text.
func (o *Orchestrator) StopRecording(ctx context.Context, active *recorder.Active, kind types.MessageKind) (*types.Message, error) {
	result, err := active.Stop()
	if err != nil {
		o.state.FailPhase("Recording failed.")
		return nil, err
	}
	o.state.EndPhase()

	srcLang, dstLang := o.Languages(result.Party)
	return o.ProcessInput(ctx, Input{
		Text:       result.Transcript,
		SourceLang: srcLang,
		TargetLang: dstLang,
		Sender:     result.Party,
		Kind:       kind,
		Media:      result.Media,
	})
}
