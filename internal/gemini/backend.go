package gemini

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

// NewGenerator returns the backend named by backend ("" means REST).
func NewGenerator(ctx context.Context, backend string, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendREST:
		return New(opts), nil
	case BackendSDK:
		return NewSDK(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown gemini backend %q", backend)
	}
}
