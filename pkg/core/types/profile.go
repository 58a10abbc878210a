package types

import (
	"encoding/json"
	"strings"
)

// UserProfile is the single locally persisted profile. Topics and Tones are
// small tag sets (the setup UI recommends at most four of each; the data
// model does not enforce it).
type UserProfile struct {
	Name         string   `json:"name"`
	LanguageCode string   `json:"language_code"`
	Topics       []string `json:"topics,omitempty"`
	Tones        []string `json:"tones,omitempty"`
	Bio          string   `json:"bio,omitempty"`
}

// ResolveLanguage returns the profile's primary language, falling back to
// DefaultLanguage when the stored code is unknown.
func (p *UserProfile) ResolveLanguage() Language {
	return LanguageOrDefault(p.LanguageCode)
}

// UnmarshalJSON accepts both the current shape and the legacy persisted shape
// where the tone field was a single string ("tone" or a string-valued
// "tones"), upgrading it to a one-element set.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	type alias UserProfile
	aux := struct {
		*alias
		Tones      json.RawMessage `json:"tones,omitempty"`
		LegacyTone json.RawMessage `json:"tone,omitempty"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := aux.Tones
	if len(raw) == 0 {
		raw = aux.LegacyTone
	}
	p.Tones = nil
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		p.Tones = list
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return err
	}
	if strings.TrimSpace(single) != "" {
		p.Tones = []string{single}
	}
	return nil
}
