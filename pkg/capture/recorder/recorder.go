// Package recorder captures audio or video into an assembled media blob,
// optionally running a parallel transcription session for an approximate
// transcript of the recorded content.
package recorder

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/omnitalk/omnitalk/pkg/audio"
	"github.com/omnitalk/omnitalk/pkg/capture/device"
	"github.com/omnitalk/omnitalk/pkg/capture/stt"
	"github.com/omnitalk/omnitalk/pkg/core"
	"github.com/omnitalk/omnitalk/pkg/core/types"
)

// Sentinel transcript text used when no speech was transcribed by stop time.
const (
	PlaceholderAudio = "(Audio Content)"
	PlaceholderVideo = "(Video Content)"
)

// Recorder starts capture sessions. The stt engine is optional; without one
// recordings carry only the placeholder transcript.
type Recorder struct {
	engine      stt.Engine
	logger      *slog.Logger
	maxDuration time.Duration
	now         func() time.Time
}

// Options configures one capture session.
type Options struct {
	Party    types.Sender
	Language string // transcription language for the parallel stt session
}

// New creates a Recorder.
func New(engine stt.Engine, maxDuration time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDuration <= 0 {
		maxDuration = 2 * time.Minute
	}
	return &Recorder{
		engine:      engine,
		logger:      logger,
		maxDuration: maxDuration,
		now:         time.Now,
	}
}

// Active is one in-progress recording.
type Active struct {
	src       device.Source
	party     types.Sender
	logger    *slog.Logger
	startedAt time.Time
	now       func() time.Time

	mu     sync.Mutex
	chunks bytes.Buffer
	finals []string

	sttSess stt.Session
	cancel  context.CancelFunc
	pumpWG  sync.WaitGroup
	stopped bool
}

// Start begins capturing chunks from src immediately. PCM sources are teed
// into a parallel transcription session when an engine is configured.
func (r *Recorder) Start(ctx context.Context, src device.Source, opts Options) (*Active, error) {
	if src == nil {
		return nil, core.NewCaptureUnavailableError("no capture source", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.maxDuration)
	a := &Active{
		src:       src,
		party:     opts.Party,
		logger:    r.logger,
		startedAt: r.now(),
		now:       r.now,
		cancel:    cancel,
	}

	if r.engine != nil && src.Format() == device.FormatPCM {
		sess, err := r.engine.Start(ctx, stt.Options{Language: opts.Language, SampleRate: src.SampleRate()})
		if err != nil {
			// Transcription is an approximation aid; recording proceeds
			// without it.
			r.logger.Warn("parallel transcription unavailable", "error", err)
		} else {
			a.sttSess = sess
			a.pumpWG.Add(1)
			go a.collectTranscripts(sess)
		}
	}

	a.pumpWG.Add(1)
	go a.pump(ctx, a.sttSess)
	return a, nil
}

func (a *Active) pump(ctx context.Context, sess stt.Session) {
	defer a.pumpWG.Done()
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := a.src.Read(buf)
		if n > 0 {
			a.mu.Lock()
			a.chunks.Write(buf[:n])
			a.mu.Unlock()
			if sess != nil {
				if sendErr := sess.SendAudio(buf[:n]); sendErr != nil {
					sess = nil
				}
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				a.logger.Warn("capture read ended", "error", err)
			}
			return
		}
	}
}

func (a *Active) collectTranscripts(sess stt.Session) {
	defer a.pumpWG.Done()
	for d := range sess.Deltas() {
		if !d.Final {
			continue
		}
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		a.mu.Lock()
		a.finals = append(a.finals, text)
		a.mu.Unlock()
	}
}

// Result is the assembled outcome of a recording.
type Result struct {
	Media      *types.MediaAttachment
	Transcript string
	Party      types.Sender
}

// Stop ends the capture, assembles the blob, and releases the device. The
// device is released even when assembly fails. If no transcript text was
// produced, the placeholder for the modality is substituted so the caller is
// never blocked on an empty utterance.
func (a *Active) Stop() (*Result, error) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil, core.NewInternalError("recording already stopped")
	}
	a.stopped = true
	a.mu.Unlock()

	if a.sttSess != nil {
		_ = a.sttSess.Finalize()
	}
	a.cancel()
	// Device release precedes assembly so it happens on every exit path.
	_ = a.src.Close()
	if a.sttSess != nil {
		_ = a.sttSess.Close()
	}
	a.pumpWG.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	elapsed := a.now().Sub(a.startedAt)
	raw := a.chunks.Bytes()

	var media *types.MediaAttachment
	switch a.src.Format() {
	case device.FormatPCM:
		media = &types.MediaAttachment{
			Data:     audio.WAVFromPCM(raw, a.src.SampleRate()),
			MIMEType: "audio/wav",
			Duration: audio.PCMDuration(raw, a.src.SampleRate()),
		}
	default:
		media = &types.MediaAttachment{
			Data:     append([]byte(nil), raw...),
			MIMEType: "video/webm",
			Duration: elapsed,
		}
	}

	transcript := strings.TrimSpace(strings.Join(a.finals, " "))
	if transcript == "" {
		if a.src.Format() == device.FormatPCM {
			transcript = PlaceholderAudio
		} else {
			transcript = PlaceholderVideo
		}
	}

	return &Result{Media: media, Transcript: transcript, Party: a.party}, nil
}
