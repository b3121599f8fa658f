package domain

import "strings"

// FormState is the in-progress wizard input.
type FormState struct {
	SelectedImages []string `json:"selectedImages"`
	SelectedTone   Tone     `json:"selectedTone"`
	Relationship   string   `json:"relationship"`
	Occasion       string   `json:"occasion"`
	CustomMessage  string   `json:"customMessage"`
}

// ReadyToGenerate reports whether a generation request is permitted:
// at least one image and a non-blank relationship.
func (f FormState) ReadyToGenerate() bool {
	return len(f.SelectedImages) > 0 && strings.TrimSpace(f.Relationship) != ""
}

// GeneratedResult is the latest message and the tone that produced it.
type GeneratedResult struct {
	Text *string
	Tone Tone
}

// HasText reports whether a message has been generated yet.
func (g GeneratedResult) HasText() bool {
	return g.Text != nil
}

// SessionRecord is FormState plus GeneratedResult, stored as one blob.
type SessionRecord struct {
	FormState
	Generated GeneratedResult
}

// DefaultSessionRecord is what a reader sees when nothing usable is stored.
func DefaultSessionRecord() SessionRecord {
	return SessionRecord{
		FormState: FormState{
			SelectedImages: []string{},
			SelectedTone:   DefaultTone,
		},
	}
}
