package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/omnitalk/omnitalk/pkg/core/types"
)

// AvatarRequest asks the service to reply on the user's behalf.
type AvatarRequest struct {
	IncomingText string
	Profile      *types.UserProfile
	History      []types.Turn // most recent turns, oldest first
}

type avatarWireRequest struct {
	IncomingText string               `json:"incoming_text"`
	Profile      *wirePersonalization `json:"profile"`
	Language     string               `json:"language"`
	History      []wireTurn           `json:"history,omitempty"`
}

type avatarWireResponse struct {
	ReplyText string `json:"reply_text"`
}

// AvatarReply generates a short reply in the profile's primary language.
// Per the service contract the reply is at most two sentences. Any failure,
// including an empty reply, is an error: the caller logs it and drops the
// pending auto-reply cycle.
func (c *Client) AvatarReply(ctx context.Context, req AvatarRequest) (string, error) {
	if req.Profile == nil {
		return "", fmt.Errorf("avatar reply requires a profile")
	}
	wire := avatarWireRequest{
		IncomingText: req.IncomingText,
		Profile: &wirePersonalization{
			Name:   req.Profile.Name,
			Tones:  req.Profile.Tones,
			Topics: req.Profile.Topics,
			Bio:    req.Profile.Bio,
		},
		Language: req.Profile.ResolveLanguage().Name,
		History:  make([]wireTurn, 0, len(req.History)),
	}
	for _, turn := range req.History {
		wire.History = append(wire.History, wireTurn{Speaker: string(turn.Sender), Text: turn.Text})
	}

	data, err := c.post(ctx, "/v1/avatar-reply", wire)
	if err != nil {
		return "", err
	}

	var resp avatarWireResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse avatar reply: %w", err)
	}
	reply := strings.TrimSpace(resp.ReplyText)
	if reply == "" {
		return "", fmt.Errorf("avatar reply was empty")
	}
	return reply, nil
}
