// Package orchestrator owns the conversation state machine: it turns raw
// input (typed text, transcripts, recordings) into committed, translated
// history turns and drives the surrounding behavior (suggestions, speech
// playback, avatar auto-replies).
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omnitalk/omnitalk/pkg/audio"
	"github.com/omnitalk/omnitalk/pkg/capture/device"
	"github.com/omnitalk/omnitalk/pkg/capture/recorder"
	"github.com/omnitalk/omnitalk/pkg/capture/stt"
	"github.com/omnitalk/omnitalk/pkg/core"
	"github.com/omnitalk/omnitalk/pkg/core/types"
	"github.com/omnitalk/omnitalk/pkg/gateway"
	"github.com/omnitalk/omnitalk/pkg/session"
)

// Gateway is the slice of the service client the orchestrator depends on.
type Gateway interface {
	Translate(ctx context.Context, req gateway.TranslateRequest) (*gateway.Translation, error)
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	AvatarReply(ctx context.Context, req gateway.AvatarRequest) (string, error)
}

// Dependencies carries everything an Orchestrator needs. Gateway and State
// are required; the rest default to inert implementations.
type Dependencies struct {
	Gateway  Gateway
	State    *session.Store
	Player   audio.Player       // nil disables playback
	Frames   device.FrameSource // nil disables live frame capture
	STT      stt.Engine         // nil disables live listening
	Recorder *recorder.Recorder // nil disables stop-and-send recording
	Metrics  *Metrics           // nil creates an unexported default set
	Logger   *slog.Logger

	// AutoReplyDelay is the pause between receiving an avatar reply and
	// processing it, so replies do not land unnaturally fast.
	AutoReplyDelay time.Duration

	// HistoryContextTurns bounds the grounding context sent with translate
	// calls; AvatarHistoryTurns bounds the avatar's view of the dialogue.
	HistoryContextTurns int
	AvatarHistoryTurns  int

	// SpeakTranslations plays synthesized speech for committed turns.
	SpeakTranslations bool
}

// Orchestrator serializes conversation turns and keeps the session store,
// the gateway, and the playback path consistent with each other.
type Orchestrator struct {
	gw       Gateway
	state    *session.Store
	player   audio.Player
	frames   device.FrameSource
	stt      stt.Engine
	recorder *recorder.Recorder
	metrics  *Metrics
	logger   *slog.Logger

	autoReplyDelay time.Duration
	historyTurns   int
	avatarTurns    int
	speak          bool

	profileMu   sync.RWMutex
	profile     *types.UserProfile
	partnerLang string

	tasks  chan autoReplyTask
	done   chan struct{}
	closed sync.Once

	now   func() time.Time
	sleep func(time.Duration)
	newID func() string
}

// New validates deps, applies defaults, and starts the auto-reply worker.
func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Gateway == nil {
		return nil, core.NewInternalError("orchestrator: gateway is required")
	}
	if deps.State == nil {
		return nil, core.NewInternalError("orchestrator: session store is required")
	}
	if deps.Player == nil {
		deps.Player = audio.NopPlayer{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics("omnitalk")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.AutoReplyDelay < 0 {
		deps.AutoReplyDelay = 0
	}
	if deps.HistoryContextTurns <= 0 {
		deps.HistoryContextTurns = 3
	}
	if deps.AvatarHistoryTurns <= 0 {
		deps.AvatarHistoryTurns = 5
	}

	o := &Orchestrator{
		gw:             deps.Gateway,
		state:          deps.State,
		player:         deps.Player,
		frames:         deps.Frames,
		stt:            deps.STT,
		recorder:       deps.Recorder,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		autoReplyDelay: deps.AutoReplyDelay,
		historyTurns:   deps.HistoryContextTurns,
		avatarTurns:    deps.AvatarHistoryTurns,
		speak:          deps.SpeakTranslations,
		partnerLang:    "es",
		tasks:          make(chan autoReplyTask, 1),
		done:           make(chan struct{}),
		now:            time.Now,
		sleep:          time.Sleep,
		newID:          func() string { return uuid.NewString() },
	}
	go o.autoReplyWorker()
	return o, nil
}

// Close stops the auto-reply worker. Pending tasks are dropped.
func (o *Orchestrator) Close() error {
	o.closed.Do(func() { close(o.done) })
	return nil
}

// SetProfile replaces the active user profile. A nil profile disables
// personalization and the avatar.
func (o *Orchestrator) SetProfile(p *types.UserProfile) {
	o.profileMu.Lock()
	o.profile = p
	o.profileMu.Unlock()
}

// Profile returns the active profile, or nil.
func (o *Orchestrator) Profile() *types.UserProfile {
	o.profileMu.RLock()
	defer o.profileMu.RUnlock()
	return o.profile
}

// SetPartnerLanguage sets the partner side's language code.
func (o *Orchestrator) SetPartnerLanguage(code string) {
	o.profileMu.Lock()
	o.partnerLang = code
	o.profileMu.Unlock()
}

// Languages resolves the source and target language codes for a turn
// spoken by the given party.
func (o *Orchestrator) Languages(sender types.Sender) (src, dst string) {
	o.profileMu.RLock()
	defer o.profileMu.RUnlock()
	userLang := types.DefaultLanguage.Code
	if o.profile != nil && o.profile.LanguageCode != "" {
		userLang = o.profile.LanguageCode
	}
	if sender == types.SenderUser {
		return userLang, o.partnerLang
	}
	return o.partnerLang, userLang
}

// Input is one utterance to process into a committed turn.
type Input struct {
	Text       string
	SourceLang string // language code
	TargetLang string // language code
	Sender     types.Sender
	Kind       types.MessageKind
	Media      *types.MediaAttachment
	AutoReply  bool // set only on turns the avatar produced
}

// ProcessInput runs the full turn protocol: claim the translating phase,
// translate with grounding context, attach suggestions and speech, commit
// the message to history, and release the phase. The session returns to
// idle before any auto-reply work begins. Exactly one call can be in
// flight; a second concurrent call fails without touching history.
func (o *Orchestrator) ProcessInput(ctx context.Context, in Input) (*types.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, core.NewInternalError("empty input text")
	}
	if !o.state.BeginPhase(session.PhaseTranslating) {
		return nil, core.NewInternalError(fmt.Sprintf("session busy (%s)", o.state.Phase()))
	}

	if in.Sender == types.SenderUser {
		// The user has spoken; stale reply suggestions no longer apply.
		o.state.ClearSuggestions()
	}

	var frame []byte
	// Video turns attach a frame from the live preview at send time; the
	// recorded blob itself is never decoded for frames.
	if in.Kind.IsVideo() && o.frames != nil {
		f, err := o.frames.CaptureFrame(ctx)
		if err != nil {
			o.logger.Warn("frame capture failed, continuing without", "error", err)
		} else {
			frame = f
		}
	}

	srcLang := types.LanguageOrDefault(in.SourceLang)
	dstLang := types.LanguageOrDefault(in.TargetLang)

	start := o.now()
	trans, err := o.gw.Translate(ctx, gateway.TranslateRequest{
		Text:           text,
		SourceLanguage: srcLang.Name,
		TargetLanguage: dstLang.Name,
		Profile:        o.Profile(),
		History:        o.state.LastTurns(o.historyTurns),
		Frame:          frame,
	})
	o.metrics.GatewayDuration.WithLabelValues("translate").Observe(time.Since(start).Seconds())
	if err != nil {
		o.state.FailPhase("Translation failed. Please try again.")
		o.metrics.TurnsTotal.WithLabelValues(string(in.Sender), string(in.Kind), "error").Inc()
		o.logger.Error("translate failed", "sender", in.Sender, "kind", in.Kind, "error", err)
		return nil, err
	}

	if in.Sender == types.SenderPartner {
		o.state.SetSuggestions(trans.Suggestions)
	}

	speech := o.synthesize(ctx, trans.Text, dstLang)

	msg := types.Message{
		ID:             o.newID(),
		Kind:           in.Kind,
		Sender:         in.Sender,
		OriginalText:   text,
		TranslatedText: trans.Text,
		SourceLang:     srcLang.Code,
		TargetLang:     dstLang.Code,
		CreatedAt:      o.now(),
		Emotion:        trans.Emotion,
		AutoReply:      in.AutoReply,
		Media:          in.Media,
	}
	if in.Sender == types.SenderPartner {
		msg.Suggestions = trans.Suggestions
	}
	if speech != nil {
		msg.Speech = &types.SpeechAudio{PCM: speech, SampleRate: gateway.SynthesizedSampleRate}
	}

	o.state.Append(msg)
	o.metrics.TurnsTotal.WithLabelValues(string(in.Sender), string(in.Kind), "ok").Inc()
	o.state.EndPhase()

	if o.speak && speech != nil {
		o.player.Play(speech)
	}

	// A partner turn may trigger the avatar, but only once per turn:
	// avatar-produced turns never re-trigger it.
	if in.Sender == types.SenderPartner && !in.AutoReply && o.state.AutoReply() && o.Profile() != nil {
		o.enqueueAutoReply(autoReplyTask{
			incoming:   text,
			sourceLang: in.TargetLang,
			targetLang: in.SourceLang,
		})
	}

	return &msg, nil
}

// synthesize is best effort: a failed speech call degrades the turn to
// text only, it never fails it.
func (o *Orchestrator) synthesize(ctx context.Context, text string, lang types.Language) []byte {
	if lang.VoiceID == "" {
		return nil
	}
	start := o.now()
	pcm, err := o.gw.Synthesize(ctx, text, lang.VoiceID)
	o.metrics.GatewayDuration.WithLabelValues("speech").Observe(time.Since(start).Seconds())
	if err != nil {
		o.logger.Warn("speech synthesis failed, committing text only", "error", err)
		return nil
	}
	return pcm
}
