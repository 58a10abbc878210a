package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omnitalk/omnitalk/pkg/core"
)

// WSEngine is the websocket transcription engine.
type WSEngine struct {
	url       string
	apiKey    string
	handshake time.Duration
	logger    *slog.Logger
}

// NewWSEngine creates a websocket engine for the given endpoint.
func NewWSEngine(wsURL, apiKey string, logger *slog.Logger) *WSEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSEngine{
		url:       wsURL,
		apiKey:    apiKey,
		handshake: 10 * time.Second,
		logger:    logger,
	}
}

// SetHandshakeTimeout bounds the websocket dial. Zero keeps the default.
func (e *WSEngine) SetHandshakeTimeout(d time.Duration) {
	if d > 0 {
		e.handshake = d
	}
}

// Start opens a transcription session. Connection failures surface as
// capture-unavailable errors.
func (e *WSEngine) Start(ctx context.Context, opts Options) (Session, error) {
	u, err := url.Parse(e.url)
	if err != nil {
		return nil, core.NewCaptureUnavailableError("parse stt url", err)
	}

	language := opts.Language
	if language == "" {
		language = "en"
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	q := u.Query()
	q.Set("language", language)
	q.Set("encoding", "pcm_s16le")
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+e.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: e.handshake}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return nil, core.NewCaptureUnavailableError(
					fmt.Sprintf("stt connect (status %d): %s", resp.StatusCode, body), err)
			}
		}
		return nil, core.NewCaptureUnavailableError("stt connect", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &wsSession{
		conn:   conn,
		deltas: make(chan Delta, 64),
		logger: e.logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go s.readLoop()
	return s, nil
}

type wsSession struct {
	conn    *websocket.Conn
	deltas  chan Delta
	logger  *slog.Logger
	writeMu sync.Mutex
	closed  atomic.Bool

	errMu sync.Mutex
	err   error

	ctx    context.Context
	cancel context.CancelFunc
}

type sttWireMessage struct {
	Type    string `json:"type"` // "transcript", "flush_done", "done", "error"
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Error   string `json:"error"`
}

func (s *wsSession) readLoop() {
	defer close(s.deltas)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// A normal closure is the engine ending the session on its
			// own (silence timeout); that is not an error.
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setErr(core.NewCaptureUnavailableError("stt connection lost", err))
			}
			return
		}

		var msg sttWireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "transcript":
			select {
			case s.deltas <- Delta{Text: msg.Text, Final: msg.IsFinal}:
			case <-s.ctx.Done():
				return
			}
		case "flush_done":
			continue
		case "done":
			// Engine ended the session; no speech detected is a natural
			// pause, never surfaced as an error.
			return
		case "error":
			s.setErr(core.NewCaptureUnavailableError("stt engine error: "+msg.Error, nil))
			return
		}
	}
}

func (s *wsSession) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *wsSession) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("stt session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *wsSession) Finalize() error {
	if s.closed.Load() {
		return fmt.Errorf("stt session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte("finalize"))
}

func (s *wsSession) Deltas() <-chan Delta {
	return s.deltas
}

func (s *wsSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *wsSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.TextMessage, []byte("done"))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.cancel()
	return s.conn.Close()
}
