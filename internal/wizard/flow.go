package wizard

import (
	"context"
	"log/slog"

	"love-piece/internal/composer"
	"love-piece/internal/domain"
	"love-piece/internal/logging"
	"love-piece/internal/session"
)

// Generator is the composer capability the flow depends on.
type Generator interface {
	Generate(ctx context.Context, req composer.Request) (composer.Result, error)
}

// Flow drives generation from a stored session record. The record's
// generated fields change only after a successful call.
type Flow struct {
	generator Generator
	logger    *slog.Logger
}

func New(generator Generator, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Flow{generator: generator, logger: logger}
}

// Submit generates from the current form and stores the result.
func (f *Flow) Submit(ctx context.Context, store *session.Store) (composer.Result, error) {
	rec := store.ReadAll()

	res, err := f.generator.Generate(ctx, composer.Request{
		Images:       rec.SelectedImages,
		Tone:         string(rec.SelectedTone),
		Relationship: rec.Relationship,
	})
	if err != nil {
		logging.FromContext(ctx, f.logger).Warn("generation failed",
			"session", store.Key(),
			"kind", domain.Classify(err).String(),
			"err", err,
		)
		return composer.Result{}, err
	}

	text := res.Text
	store.SetGeneratedResult(domain.GeneratedResult{Text: &text, Tone: res.Tone})
	return res, nil
}

// Regenerate repeats Submit with the stored images, optionally switching the
// tone first. A rejected tone leaves the record unchanged.
func (f *Flow) Regenerate(ctx context.Context, store *session.Store, tone string) (composer.Result, error) {
	if tone != "" {
		t, err := domain.ParseTone(tone)
		if err != nil {
			return composer.Result{}, err
		}
		store.MergeForm(session.FormPatch{SelectedTone: &t})
	}
	return f.Submit(ctx, store)
}
