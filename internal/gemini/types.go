package gemini

import (
	"context"
	"fmt"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1"
	DefaultModel      = "gemini-2.5-flash"
)

// Generator sends one generateContent call. Both backends implement it.
type Generator interface {
	// Configured reports whether a credential is available. Callers check it
	// before building a request so a missing key never reaches the network.
	Configured() bool
	GenerateContent(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn user message: parts in order plus sampling settings.
type Request struct {
	Model  string
	Parts  []Part
	Config GenerationConfig
}

// Part carries either text or an inline blob.
type Part struct {
	Text       string
	InlineData *Blob
}

// Blob is inline media. Data is base64 and is sent exactly as given.
type Blob struct {
	MIMEType string
	Data     string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func InlinePart(mimeType, data string) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// GenerationConfig zero values are omitted from the request.
type GenerationConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

type Response struct {
	Candidates []Candidate
}

type Candidate struct {
	Parts        []Part
	FinishReason string
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API %s", e.Status)
}
