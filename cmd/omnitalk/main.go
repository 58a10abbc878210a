// Command omnitalk is an interactive terminal client for cross-language
// conversations: type or speak in your language, your partner reads and
// hears theirs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/omnitalk/omnitalk/pkg/audio"
	"github.com/omnitalk/omnitalk/pkg/capture/device"
	"github.com/omnitalk/omnitalk/pkg/capture/recorder"
	"github.com/omnitalk/omnitalk/pkg/capture/stt"
	"github.com/omnitalk/omnitalk/pkg/config"
	"github.com/omnitalk/omnitalk/pkg/core/types"
	"github.com/omnitalk/omnitalk/pkg/gateway"
	"github.com/omnitalk/omnitalk/pkg/orchestrator"
	"github.com/omnitalk/omnitalk/pkg/profile"
	"github.com/omnitalk/omnitalk/pkg/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "omnitalk: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "omnitalk: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "omnitalk: %v\n", err)
		os.Exit(1)
	}
}

// runtime is the REPL state that changes between turns.
type runtime struct {
	orch      *orchestrator.Orchestrator
	state     *session.Store
	profiles  *profile.Store
	cfg       config.Config
	logger    *slog.Logger
	recording *recorder.Active
	recKind   types.MessageKind
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out, errOut io.Writer) error {
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))

	profiles, err := profile.Open(cfg.ProfileDBPath)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer profiles.Close()

	scanner := bufio.NewScanner(in)

	userProfile, err := profiles.Load()
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if userProfile == nil {
		userProfile, err = setupProfile(scanner, out)
		if err != nil {
			return err
		}
		if err := profiles.Save(userProfile); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
	}

	var player audio.Player
	if otoPlayer, err := audio.NewOtoPlayer(cfg.PlaybackRateHz); err != nil {
		logger.Warn("audio playback unavailable", "error", err)
		player = audio.NopPlayer{}
	} else {
		player = otoPlayer
	}
	defer player.Close()

	client := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey,
		gateway.WithLogger(logger),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.GatewayTimeout}),
	)
	sttEngine := stt.NewWSEngine(cfg.STTURL, cfg.GatewayAPIKey, logger)
	sttEngine.SetHandshakeTimeout(cfg.CaptureSetup)
	state := session.NewStore(cfg.ErrorBannerClear)

	metrics := orchestrator.NewMetrics("omnitalk")
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	orch, err := orchestrator.New(orchestrator.Dependencies{
		Gateway:             client,
		State:               state,
		Player:              player,
		Frames:              device.FFmpegFrameSource{},
		STT:                 sttEngine,
		Recorder:            recorder.New(sttEngine, cfg.RecorderMax, logger),
		Metrics:             metrics,
		Logger:              logger,
		AutoReplyDelay:      cfg.AutoReplyDelay,
		HistoryContextTurns: cfg.HistoryContextTurns,
		AvatarHistoryTurns:  cfg.AvatarHistoryTurns,
		SpeakTranslations:   cfg.SpeakTranslations,
	})
	if err != nil {
		return err
	}
	defer orch.Close()
	orch.SetProfile(userProfile)

	rt := &runtime{
		orch:     orch,
		state:    state,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
	}

	userLang := types.LanguageOrDefault(userProfile.LanguageCode)
	fmt.Fprintf(out, "OmniTalk ready. You speak %s %s; your partner speaks %s.\n",
		userLang.Flag, userLang.Name, types.LanguageOrDefault("es").Name)
	fmt.Fprintln(out, "Type to talk, /help for commands, /exit to quit.")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			fmt.Fprintln(out, "bye")
			return nil
		}

		if strings.HasPrefix(line, "/") {
			if err := rt.handleCommand(ctx, line, scanner, out, errOut); err != nil {
				return err
			}
			continue
		}

		state.SetMode(session.ModeText)
		src, dst := orch.Languages(types.SenderUser)
		rt.commit(ctx, orchestrator.Input{
			Text:       line,
			SourceLang: src,
			TargetLang: dst,
			Sender:     types.SenderUser,
			Kind:       types.KindText,
		}, out, errOut)
	}
}

func (rt *runtime) handleCommand(ctx context.Context, line string, scanner *bufio.Scanner, out, errOut io.Writer) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		printHelp(out)

	case "/partner":
		if arg == "" {
			fmt.Fprintln(errOut, "usage: /partner <text>")
			return nil
		}
		src, dst := rt.orch.Languages(types.SenderPartner)
		rt.commit(ctx, orchestrator.Input{
			Text:       arg,
			SourceLang: src,
			TargetLang: dst,
			Sender:     types.SenderPartner,
			Kind:       types.KindText,
		}, out, errOut)

	case "/listen":
		rt.listen(ctx, partyFromArg(arg), out, errOut)

	case "/record":
		rt.startRecording(ctx, partyFromArg(arg), false, out, errOut)

	case "/video":
		rt.startRecording(ctx, partyFromArg(arg), true, out, errOut)

	case "/stop":
		rt.stopRecording(ctx, out, errOut)

	case "/auto":
		switch arg {
		case "on":
			if rt.orch.Profile() == nil {
				fmt.Fprintln(errOut, "set up a profile first (/profile)")
				return nil
			}
			rt.state.SetAutoReply(true)
			fmt.Fprintln(out, "avatar auto-reply on")
		case "off":
			rt.state.SetAutoReply(false)
			fmt.Fprintln(out, "avatar auto-reply off")
		default:
			fmt.Fprintf(out, "avatar auto-reply: %v\n", rt.state.AutoReply())
		}

	case "/1", "/2", "/3":
		rt.sendSuggestion(ctx, cmd, out, errOut)

	case "/lang":
		if arg == "" {
			fmt.Fprintln(errOut, "usage: /lang <code> (e.g. /lang ja)")
			return nil
		}
		lang, ok := types.LanguageByCode(arg)
		if !ok {
			fmt.Fprintf(errOut, "unknown language %q\n", arg)
			return nil
		}
		rt.orch.SetPartnerLanguage(lang.Code)
		fmt.Fprintf(out, "partner language: %s %s\n", lang.Flag, lang.Name)

	case "/profile":
		updated, err := setupProfile(scanner, out)
		if err != nil {
			return err
		}
		if err := rt.profiles.Save(updated); err != nil {
			fmt.Fprintf(errOut, "save profile: %v\n", err)
			return nil
		}
		rt.orch.SetProfile(updated)
		fmt.Fprintln(out, "profile saved")

	case "/history":
		for _, msg := range rt.state.History() {
			tag := "you"
			if msg.Sender == types.SenderPartner {
				tag = "them"
			}
			if msg.AutoReply {
				tag = "avatar"
			}
			fmt.Fprintf(out, "[%s] %s -> %s\n", tag, msg.OriginalText, msg.TranslatedText)
		}

	default:
		fmt.Fprintf(errOut, "unknown command %s (try /help)\n", cmd)
	}
	return nil
}

// commit runs one turn and prints the outcome, including any quick-reply
// suggestions a partner turn produced.
func (rt *runtime) commit(ctx context.Context, in orchestrator.Input, out, errOut io.Writer) {
	turnCtx, cancel := context.WithTimeout(ctx, rt.cfg.GatewayTimeout)
	defer cancel()

	msg, err := rt.orch.ProcessInput(turnCtx, in)
	if err != nil {
		if banner := rt.state.LastError(); banner != "" {
			fmt.Fprintln(errOut, banner)
		} else {
			fmt.Fprintf(errOut, "turn failed: %v\n", err)
		}
		return
	}

	dst := types.LanguageOrDefault(msg.TargetLang)
	fmt.Fprintf(out, "%s %s\n", dst.Flag, msg.TranslatedText)
	if msg.Emotion != "" && msg.Emotion != "neutral" {
		fmt.Fprintf(out, "   (sounds %s)\n", msg.Emotion)
	}
	if msg.Sender == types.SenderPartner {
		for i, s := range rt.state.Suggestions() {
			fmt.Fprintf(out, "   /%d %s\n", i+1, s)
		}
	}
}

func (rt *runtime) sendSuggestion(ctx context.Context, cmd string, out, errOut io.Writer) {
	n, _ := strconv.Atoi(strings.TrimPrefix(cmd, "/"))
	suggestions := rt.state.Suggestions()
	if n < 1 || n > len(suggestions) {
		fmt.Fprintln(errOut, "no such suggestion")
		return
	}
	src, dst := rt.orch.Languages(types.SenderUser)
	rt.commit(ctx, orchestrator.Input{
		Text:       suggestions[n-1],
		SourceLang: src,
		TargetLang: dst,
		Sender:     types.SenderUser,
		Kind:       types.KindText,
	}, out, errOut)
}

func (rt *runtime) listen(ctx context.Context, party types.Sender, out, errOut io.Writer) {
	if !rt.state.SetMode(session.ModeVoice) {
		fmt.Fprintln(errOut, "cannot switch input while capturing")
		return
	}
	mic, err := device.OpenMicrophone(rt.cfg.STTSampleRateHz)
	if err != nil {
		fmt.Fprintf(errOut, "microphone: %v\n", err)
		return
	}
	fmt.Fprintln(out, "listening... (speak, then pause)")

	listenCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	msg, err := rt.orch.Listen(listenCtx, mic, party, types.KindLiveAudio)
	if err != nil {
		if banner := rt.state.LastError(); banner != "" {
			fmt.Fprintln(errOut, banner)
		} else {
			fmt.Fprintf(errOut, "listen failed: %v\n", err)
		}
		return
	}
	if msg == nil {
		fmt.Fprintln(out, "(no speech detected)")
		return
	}
	fmt.Fprintf(out, "heard: %s\n", msg.OriginalText)
	dst := types.LanguageOrDefault(msg.TargetLang)
	fmt.Fprintf(out, "%s %s\n", dst.Flag, msg.TranslatedText)
	if msg.Sender == types.SenderPartner {
		for i, s := range rt.state.Suggestions() {
			fmt.Fprintf(out, "   /%d %s\n", i+1, s)
		}
	}
}

func (rt *runtime) startRecording(ctx context.Context, party types.Sender, video bool, out, errOut io.Writer) {
	if rt.recording != nil {
		fmt.Fprintln(errOut, "already recording (use /stop)")
		return
	}

	mode := session.ModeVoice
	if video {
		mode = session.ModeVideo
	}
	if !rt.state.SetMode(mode) {
		fmt.Fprintln(errOut, "cannot switch input while capturing")
		return
	}

	var src device.Source
	var err error
	if video {
		src, err = device.OpenCamera()
		rt.recKind = types.KindRecordedVideo
	} else {
		src, err = device.OpenMicrophone(rt.cfg.STTSampleRateHz)
		rt.recKind = types.KindRecordedAudio
	}
	if err != nil {
		fmt.Fprintf(errOut, "capture device: %v\n", err)
		return
	}

	active, err := rt.orch.StartRecording(ctx, src, party)
	if err != nil {
		_ = src.Close()
		fmt.Fprintf(errOut, "record: %v\n", err)
		return
	}
	rt.recording = active
	fmt.Fprintln(out, "recording... (/stop to send)")
}

func (rt *runtime) stopRecording(ctx context.Context, out, errOut io.Writer) {
	if rt.recording == nil {
		fmt.Fprintln(errOut, "not recording")
		return
	}
	active := rt.recording
	rt.recording = nil

	msg, err := rt.orch.StopRecording(ctx, active, rt.recKind)
	if err != nil {
		fmt.Fprintf(errOut, "stop: %v\n", err)
		return
	}
	fmt.Fprintf(out, "sent %s (%s, %.1fs)\n", msg.Kind, msg.Media.MIMEType, msg.Media.Duration.Seconds())
	fmt.Fprintf(out, "heard: %s\n", msg.OriginalText)
	dst := types.LanguageOrDefault(msg.TargetLang)
	fmt.Fprintf(out, "%s %s\n", dst.Flag, msg.TranslatedText)
}

// setupProfile walks the user through the personalization fields. Only name
// and language are required.
func setupProfile(scanner *bufio.Scanner, out io.Writer) (*types.UserProfile, error) {
	prompt := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errors.New("input closed during setup")
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	name, err := prompt("Your name")
	if err != nil {
		return nil, err
	}
	for name == "" {
		if name, err = prompt("Your name (required)"); err != nil {
			return nil, err
		}
	}

	fmt.Fprintln(out, "Languages:")
	for _, lang := range types.Languages() {
		fmt.Fprintf(out, "  %s %s (%s)\n", lang.Flag, lang.Name, lang.Code)
	}
	code, err := prompt("Your language code")
	if err != nil {
		return nil, err
	}
	lang := types.LanguageOrDefault(code)

	tones, err := prompt("Tones, comma separated (optional, e.g. Casual, Concise)")
	if err != nil {
		return nil, err
	}
	topics, err := prompt("Topics you care about, comma separated (optional)")
	if err != nil {
		return nil, err
	}
	bio, err := prompt("Short bio (optional)")
	if err != nil {
		return nil, err
	}

	return &types.UserProfile{
		Name:         name,
		LanguageCode: lang.Code,
		Tones:        splitList(tones),
		Topics:       splitList(topics),
		Bio:          bio,
	}, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func partyFromArg(arg string) types.Sender {
	if arg == "them" || arg == "partner" {
		return types.SenderPartner
	}
	return types.SenderUser
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "  <text>            send a message in your language")
	fmt.Fprintln(out, "  /partner <text>   enter a message from your partner")
	fmt.Fprintln(out, "  /listen [them]    capture one live utterance")
	fmt.Fprintln(out, "  /record [them]    start an audio recording, /stop to send")
	fmt.Fprintln(out, "  /video [them]     start a video recording, /stop to send")
	fmt.Fprintln(out, "  /1 /2 /3          send a quick-reply suggestion")
	fmt.Fprintln(out, "  /auto on|off      let your avatar answer for you")
	fmt.Fprintln(out, "  /lang <code>      set your partner's language")
	fmt.Fprintln(out, "  /profile          edit your profile")
	fmt.Fprintln(out, "  /history          show the conversation")
	fmt.Fprintln(out, "  /exit             quit")
}
