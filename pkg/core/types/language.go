package types

// Language is immutable reference data for a supported conversation language.
type Language struct {
	Code    string `json:"code"`     // BCP-47 style code, e.g. "en", "pt-BR"
	Name    string `json:"name"`     // English display name
	Flag    string `json:"flag"`     // flag glyph for display
	VoiceID string `json:"voice_id"` // synthesis voice for this language
}

// DefaultLanguage is used whenever a profile or input references an unknown
// language code.
var DefaultLanguage = Language{Code: "en", Name: "English", Flag: "\U0001F1FA\U0001F1F8", VoiceID: "aria"}

var languages = []Language{
	DefaultLanguage,
	{Code: "es", Name: "Spanish", Flag: "\U0001F1EA\U0001F1F8", VoiceID: "lucia"},
	{Code: "fr", Name: "French", Flag: "\U0001F1EB\U0001F1F7", VoiceID: "camille"},
	{Code: "de", Name: "German", Flag: "\U0001F1E9\U0001F1EA", VoiceID: "klaus"},
	{Code: "it", Name: "Italian", Flag: "\U0001F1EE\U0001F1F9", VoiceID: "marco"},
	{Code: "pt-BR", Name: "Portuguese", Flag: "\U0001F1E7\U0001F1F7", VoiceID: "ines"},
	{Code: "ja", Name: "Japanese", Flag: "\U0001F1EF\U0001F1F5", VoiceID: "hana"},
	{Code: "ko", Name: "Korean", Flag: "\U0001F1F0\U0001F1F7", VoiceID: "jisoo"},
	{Code: "zh", Name: "Mandarin", Flag: "\U0001F1E8\U0001F1F3", VoiceID: "mei"},
	{Code: "hi", Name: "Hindi", Flag: "\U0001F1EE\U0001F1F3", VoiceID: "priya"},
	{Code: "ar", Name: "Arabic", Flag: "\U0001F1F8\U0001F1E6", VoiceID: "omar"},
	{Code: "ru", Name: "Russian", Flag: "\U0001F1F7\U0001F1FA", VoiceID: "dmitri"},
}

// Languages returns the fixed table of supported languages.
// The returned slice is a copy; callers may not mutate reference data.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LanguageByCode looks up a language by its code.
func LanguageByCode(code string) (Language, bool) {
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// LanguageOrDefault resolves code to a known language, falling back to
// DefaultLanguage for unknown codes.
func LanguageOrDefault(code string) Language {
	if l, ok := LanguageByCode(code); ok {
		return l
	}
	return DefaultLanguage
}
