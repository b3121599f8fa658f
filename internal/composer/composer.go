package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"love-piece/internal/domain"
	"love-piece/internal/gemini"
	"love-piece/internal/logging"
	"love-piece/internal/prompt"
	"love-piece/internal/tracer"
)

// Sampling settings sent with every call. They are not user-configurable.
var generationConfig = gemini.GenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 1024,
}

const (
	DefaultTimeout = 60 * time.Second

	credentialSetting = "GEMINI_API_KEY"
	maxLoggedBody     = 2048
)

type Options struct {
	Generator           gemini.Generator
	Prompt              *prompt.Builder
	Model               string
	RequireRelationship bool
	Timeout             time.Duration
	Logger              *slog.Logger
}

// Request is one generation input. Images are encoded-image strings in
// attachment order. RequireRelationship overrides the composer default.
type Request struct {
	Images              []string
	Tone                string
	Relationship        string
	RequireRelationship *bool
}

type Result struct {
	Text string
	Tone domain.Tone
}

// Composer validates a request, assembles the prompt and performs exactly one
// upstream call. It keeps no per-request state.
type Composer struct {
	generator           gemini.Generator
	prompt              *prompt.Builder
	model               string
	requireRelationship bool
	timeout             time.Duration
	logger              *slog.Logger
}

func New(opts Options) *Composer {
	builder := opts.Prompt
	if builder == nil {
		builder = prompt.NewBuilder(prompt.Options{CompletionGuard: true})
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = gemini.DefaultModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Composer{
		generator:           opts.Generator,
		prompt:              builder,
		model:               model,
		requireRelationship: opts.RequireRelationship,
		timeout:             timeout,
		logger:              logger,
	}
}

// Generate returns the message text and the tone that produced it.
// Validation and configuration failures return before any network call.
func (c *Composer) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.StartSpan(ctx, "gratitude.generate")
	defer span.End()
	span.SetAttributes(
		tracer.IntAttr("images", len(req.Images)),
		tracer.StringAttr("tone", req.Tone),
		tracer.StringAttr("relationship", strings.TrimSpace(req.Relationship)),
	)

	res, err := c.generate(ctx, req)
	if err != nil {
		span.SetAttributes(tracer.StringAttr("error.kind", domain.Classify(err).String()))
		tracer.RecordError(span, err)
		return Result{}, err
	}
	tracer.SetOK(span)
	return res, nil
}

func (c *Composer) generate(ctx context.Context, req Request) (Result, error) {
	logger := logging.FromContext(ctx, c.logger)

	images, err := domain.ParseEncodedImages(req.Images)
	if err != nil {
		return Result{}, err
	}

	tone, err := domain.ParseTone(req.Tone)
	if err != nil {
		return Result{}, err
	}

	relationship := strings.TrimSpace(req.Relationship)
	if c.relationshipRequired(req) && relationship == "" {
		return Result{}, &domain.ValidationError{Field: "relationship", Message: "relationship is required"}
	}

	if c.generator == nil || !c.generator.Configured() {
		err := &domain.ConfigurationError{Setting: credentialSetting}
		logger.Error("generation unavailable", "err", err)
		return Result{}, err
	}

	instruction, err := c.prompt.Build(tone, relationship)
	if err != nil {
		return Result{}, err
	}

	parts := make([]gemini.Part, 0, len(images)+1)
	parts = append(parts, gemini.TextPart(instruction))
	for _, img := range images {
		parts = append(parts, gemini.InlinePart(img.MIMEType(), img.Payload))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.generator.GenerateContent(callCtx, gemini.Request{
		Model:  c.model,
		Parts:  parts,
		Config: generationConfig,
	})
	if err != nil {
		upstream := toUpstreamError(err)
		logger.Error("gemini call failed",
			"status", upstream.StatusCode,
			"body", truncate(upstream.Body, maxLoggedBody),
			"dur_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		return Result{}, upstream
	}

	text, err := ExtractText(resp)
	if err != nil {
		finish := ""
		if resp != nil && len(resp.Candidates) > 0 {
			finish = resp.Candidates[0].FinishReason
		}
		logger.Error("gemini returned no text", "finish_reason", finish, "dur_ms", time.Since(start).Milliseconds())
		return Result{}, err
	}

	logger.Info("message generated",
		"tone", tone,
		"images", len(images),
		"chars", len([]rune(text)),
		"dur_ms", time.Since(start).Milliseconds(),
	)
	return Result{Text: text, Tone: tone}, nil
}

func (c *Composer) relationshipRequired(req Request) bool {
	if req.RequireRelationship != nil {
		return *req.RequireRelationship
	}
	return c.requireRelationship
}

// ExtractText concatenates the non-empty text parts of the first candidate.
// Non-text parts are dropped.
func ExtractText(resp *gemini.Response) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", domain.ErrEmptyResult
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Parts {
		if p.InlineData != nil || p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyResult
	}
	return text, nil
}

func toUpstreamError(err error) *domain.UpstreamError {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Body,
			Err:        err,
		}
	}
	return &domain.UpstreamError{Err: fmt.Errorf("gemini: %w", err)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
