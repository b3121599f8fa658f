package domain

import "strings"

// Tone selects the register of the generated message.
type Tone string

const (
	ToneCasual Tone = "casual"
	ToneFormal Tone = "formal"
	TonePoetic Tone = "poetic"
)

// DefaultTone is used when nothing has been selected yet.
const DefaultTone = ToneCasual

// Tones returns the fixed enumeration in display order.
func Tones() []Tone {
	return []Tone{ToneCasual, ToneFormal, TonePoetic}
}

func (t Tone) Valid() bool {
	switch t {
	case ToneCasual, ToneFormal, TonePoetic:
		return true
	}
	return false
}

// Label is the Japanese name shown to users.
func (t Tone) Label() string {
	switch t {
	case ToneCasual:
		return "カジュアル"
	case ToneFormal:
		return "フォーマル"
	case TonePoetic:
		return "詩的"
	}
	return string(t)
}

// Description is a one-line summary of the register.
func (t Tone) Description() string {
	switch t {
	case ToneCasual:
		return "親しみやすく温かいトーン"
	case ToneFormal:
		return "丁寧で礼儀正しいトーン"
	case TonePoetic:
		return "詩的で感情豊かなトーン"
	}
	return ""
}

// ParseTone accepts only the exact enumeration values (surrounding spaces ignored).
func ParseTone(value string) (Tone, error) {
	t := Tone(strings.TrimSpace(value))
	if !t.Valid() {
		return "", &ValidationError{Field: "tone", Message: "invalid tone"}
	}
	return t, nil
}
