package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyResult means the upstream call succeeded but produced no usable text.
var ErrEmptyResult = errors.New("empty result")

// ValidationError is a user-input problem detected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// ConfigurationError is an operator-facing problem, e.g. a missing credential.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s is not set", e.Setting)
}

// UpstreamError wraps a failed call to the generative service.
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream: %v", e.Err)
	}
	return fmt.Sprintf("upstream: status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Kind is the coarse class of a generation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindUpstream
	KindEmptyResult
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUpstream:
		return "upstream"
	case KindEmptyResult:
		return "empty_result"
	}
	return "unknown"
}

// Classify maps an error onto the taxonomy.
func Classify(err error) Kind {
	var (
		ve *ValidationError
		ce *ConfigurationError
		ue *UpstreamError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return KindConfiguration
	case errors.Is(err, ErrEmptyResult):
		return KindEmptyResult
	case errors.As(err, &ue):
		return KindUpstream
	}
	return KindUnknown
}

// UserMessage is the client-facing text for err. Configuration and upstream
// details are never included.
func UserMessage(err error) string {
	var ve *ValidationError
	switch Classify(err) {
	case KindValidation:
		errors.As(err, &ve)
		return ve.Message
	case KindConfiguration:
		return "service unavailable"
	case KindUpstream, KindEmptyResult:
		return "generation failed"
	}
	return "unexpected error"
}
