package gateway

import (
	"context"
)

// SynthesizedSampleRate is the fixed output rate of the speech service:
// 24kHz mono signed 16-bit PCM.
const SynthesizedSampleRate = 24000

type speechWireRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// Synthesize converts translated text to speech audio. The returned bytes are
// raw PCM at SynthesizedSampleRate. Callers treat failure as best-effort: a
// message is still committed without audio.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	data, err := c.post(ctx, "/v1/speech", speechWireRequest{Text: text, VoiceID: voiceID})
	if err != nil {
		return nil, err
	}
	return data, nil
}
