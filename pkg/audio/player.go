// Package audio provides PCM playback and WAV container assembly.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player plays raw mono signed 16-bit PCM through the default output device.
type Player interface {
	// Play starts playback of pcm and returns immediately.
	Play(pcm []byte)
	Close() error
}

// OtoPlayer is the speaker-backed Player.
type OtoPlayer struct {
	ctx        *oto.Context
	sampleRate int
}

// NewOtoPlayer initializes the audio output context at the given sample rate.
func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("speaker initialization timed out")
	}
	return &OtoPlayer{ctx: ctx, sampleRate: sampleRate}, nil
}

// Play is fire-and-forget: the player is not held open per clip and playback
// never gates the caller.
func (p *OtoPlayer) Play(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	go func() {
		for player.IsPlaying() {
			time.Sleep(20 * time.Millisecond)
		}
		_ = player.Close()
	}()
}

func (p *OtoPlayer) Close() error {
	return nil // oto contexts cannot be torn down; process exit reclaims them
}

// NopPlayer discards audio. Used headless and in tests.
type NopPlayer struct{}

func (NopPlayer) Play([]byte) {}

func (NopPlayer) Close() error { return nil }

var _ Player = (*OtoPlayer)(nil)
var _ Player = NopPlayer{}
var _ io.Closer = NopPlayer{}
