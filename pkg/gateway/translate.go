package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/omnitalk/omnitalk/pkg/core/types"
)

const (
	maxDegradedTextRunes = 200
	neutralEmotion       = "neutral"
)

// fallbackSuggestions pad a short or missing suggestion list so partner turns
// always yield exactly three quick-replies.
var fallbackSuggestions = []string{"Okay.", "Tell me more.", "Thank you!"}

// TranslateRequest carries one utterance and its grounding context.
type TranslateRequest struct {
	Text           string
	SourceLanguage string // display name, per the service contract
	TargetLanguage string
	Profile        *types.UserProfile // nil when no profile is set
	History        []types.Turn       // most recent turns, oldest first
	Frame          []byte             // optional JPEG for emotion detection
}

// Translation is the normalized result of a translate call. Suggestions
// always has exactly three entries.
type Translation struct {
	Text        string
	Suggestions []string
	Emotion     string
}

type wireTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type wirePersonalization struct {
	Name   string   `json:"name"`
	Tones  []string `json:"tones,omitempty"`
	Topics []string `json:"topics,omitempty"`
	Bio    string   `json:"bio,omitempty"`
}

type translateWireRequest struct {
	Text            string               `json:"text"`
	SourceLanguage  string               `json:"source_language"`
	TargetLanguage  string               `json:"target_language"`
	Personalization *wirePersonalization `json:"personalization,omitempty"`
	History         []wireTurn           `json:"history,omitempty"`
	Image           string               `json:"image,omitempty"` // base64 JPEG
}

type translateWireResponse struct {
	TranslatedText     string   `json:"translated_text"`
	SuggestedResponses []string `json:"suggested_responses"`
	DetectedEmotion    string   `json:"detected_emotion"`
}

// Translate sends one utterance for translation. Transport failures return a
// gateway error; a malformed response body degrades to a best-effort result
// and never raises.
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (*Translation, error) {
	wire := translateWireRequest{
		Text:           req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		History:        make([]wireTurn, 0, len(req.History)),
	}
	if req.Profile != nil {
		wire.Personalization = &wirePersonalization{
			Name:   req.Profile.Name,
			Tones:  req.Profile.Tones,
			Topics: req.Profile.Topics,
			Bio:    req.Profile.Bio,
		}
	}
	for _, turn := range req.History {
		wire.History = append(wire.History, wireTurn{Speaker: string(turn.Sender), Text: turn.Text})
	}
	if len(req.Frame) > 0 {
		wire.Image = base64.StdEncoding.EncodeToString(req.Frame)
	}

	data, err := c.post(ctx, "/v1/translate", wire)
	if err != nil {
		return nil, err
	}
	return c.parseTranslation(data), nil
}

// parseTranslation normalizes the model's structured output. Unparsable or
// partially filled bodies produce a degraded translation instead of an error.
func (c *Client) parseTranslation(data []byte) *Translation {
	var wire translateWireResponse
	if err := json.Unmarshal(data, &wire); err != nil || strings.TrimSpace(wire.TranslatedText) == "" {
		if err != nil {
			c.logger.Warn("gateway returned malformed translation body", "error", err)
		} else {
			c.logger.Warn("gateway translation body missing translated_text")
		}
		return &Translation{
			Text:        truncate(strings.TrimSpace(string(data)), maxDegradedTextRunes),
			Suggestions: normalizeSuggestions(nil),
			Emotion:     neutralEmotion,
		}
	}

	emotion := strings.TrimSpace(wire.DetectedEmotion)
	if emotion == "" {
		emotion = neutralEmotion
	}
	return &Translation{
		Text:        strings.TrimSpace(wire.TranslatedText),
		Suggestions: normalizeSuggestions(wire.SuggestedResponses),
		Emotion:     emotion,
	}
}

// normalizeSuggestions enforces the exactly-3 contract: blanks dropped,
// extras truncated, gaps padded with generic fallbacks.
func normalizeSuggestions(raw []string) []string {
	out := make([]string, 0, 3)
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == 3 {
			return out
		}
	}
	for _, fb := range fallbackSuggestions {
		if len(out) == 3 {
			break
		}
		out = append(out, fb)
	}
	return out
}
