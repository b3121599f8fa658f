package composer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"love-piece/internal/domain"
	"love-piece/internal/gemini"
	"love-piece/internal/prompt"
)

const pngImage = "data:image/png;base64,QUJD"

type fakeGenerator struct {
	mu         sync.Mutex
	configured bool
	resp       *gemini.Response
	err        error
	calls      []gemini.Request
	deadline   bool
}

func (f *fakeGenerator) Configured() bool { return f.configured }

func (f *fakeGenerator) GenerateContent(ctx context.Context, req gemini.Request) (*gemini.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func textResponse(parts ...gemini.Part) *gemini.Response {
	return &gemini.Response{Candidates: []gemini.Candidate{{Parts: parts}}}
}

func newComposer(gen gemini.Generator) *Composer {
	return New(Options{
		Generator:           gen,
		Prompt:              prompt.NewBuilder(prompt.Options{CompletionGuard: true}),
		RequireRelationship: true,
	})
}

func TestGenerateValidationNeverCallsUpstream(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"no images", Request{Tone: "casual", Relationship: "friend"}, "imageData"},
		{"malformed image", Request{Images: []string{"not-an-image"}, Tone: "casual", Relationship: "friend"}, "imageData"},
		{"second image malformed", Request{Images: []string{pngImage, "data:text/plain;base64,QQ=="}, Tone: "casual", Relationship: "friend"}, "imageData"},
		{"invalid tone", Request{Images: []string{pngImage}, Tone: "angry", Relationship: "friend"}, "tone"},
		{"empty tone", Request{Images: []string{pngImage}, Relationship: "friend"}, "tone"},
		{"blank relationship", Request{Images: []string{pngImage}, Tone: "formal", Relationship: "   "}, "relationship"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{configured: true, resp: textResponse(gemini.TextPart("x"))}

			_, err := newComposer(gen).Generate(context.Background(), tt.req)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, gen.calls)
		})
	}
}

func TestGenerateValidationPrecedesConfiguration(t *testing.T) {
	gen := &fakeGenerator{configured: false}

	_, err := newComposer(gen).Generate(context.Background(), Request{Tone: "casual"})
	assert.Equal(t, domain.KindValidation, domain.Classify(err))
}

func TestGenerateMissingCredential(t *testing.T) {
	for name, gen := range map[string]gemini.Generator{
		"unconfigured": &fakeGenerator{configured: false},
		"nil":          nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newComposer(gen).Generate(context.Background(), Request{
				Images: []string{pngImage}, Tone: "casual", Relationship: "friend",
			})
			assert.Equal(t, domain.KindConfiguration, domain.Classify(err))
			assert.Equal(t, "service unavailable", domain.UserMessage(err))
		})
	}
}

func TestGenerateRelationshipOptionalPerRequest(t *testing.T) {
	gen := &fakeGenerator{configured: true, resp: textResponse(gemini.TextPart("ありがとう。"))}
	optional := false

	res, err := newComposer(gen).Generate(context.Background(), Request{
		Images:              []string{pngImage, "data:image/jpeg;base64,/9j/"},
		Tone:                "poetic",
		RequireRelationship: &optional,
	})
	require.NoError(t, err)
	assert.Equal(t, "ありがとう。", res.Text)
	assert.Equal(t, domain.TonePoetic, res.Tone)
	require.Len(t, gen.calls, 1)
	assert.Len(t, gen.calls[0].Parts, 3)
}

func TestGenerateBuildsRequest(t *testing.T) {
	gen := &fakeGenerator{configured: true, resp: textResponse(gemini.TextPart("ok"))}
	builder := prompt.NewBuilder(prompt.Options{
		Guidance:        prompt.ParseGuidance("- common\n  - be kind\n- 両親\n  - mention family\n"),
		CompletionGuard: true,
	})
	c := New(Options{Generator: gen, Prompt: builder, Model: "gemini-test", RequireRelationship: true})

	_, err := c.Generate(context.Background(), Request{
		Images:       []string{pngImage, "data:image/jpeg;base64,/9j/4AAQ"},
		Tone:         "formal",
		Relationship: "parent",
	})
	require.NoError(t, err)
	require.Len(t, gen.calls, 1)

	call := gen.calls[0]
	assert.Equal(t, "gemini-test", call.Model)
	assert.Equal(t, gemini.GenerationConfig{Temperature: 0.7, TopK: 40, TopP: 0.95, MaxOutputTokens: 1024}, call.Config)
	assert.True(t, gen.deadline)

	want, err := builder.Build(domain.ToneFormal, "parent")
	require.NoError(t, err)

	require.Len(t, call.Parts, 3)
	assert.Equal(t, want, call.Parts[0].Text)
	assert.Nil(t, call.Parts[0].InlineData)
	assert.Equal(t, &gemini.Blob{MIMEType: "image/png", Data: "QUJD"}, call.Parts[1].InlineData)
	assert.Equal(t, &gemini.Blob{MIMEType: "image/jpeg", Data: "/9j/4AAQ"}, call.Parts[2].InlineData)
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(textResponse(
		gemini.TextPart("Hello "),
		gemini.InlinePart("image/png", "QUJD"),
		gemini.TextPart(""),
		gemini.TextPart("world."),
	))
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", text)
}

func TestExtractTextUsesFirstCandidate(t *testing.T) {
	resp := &gemini.Response{Candidates: []gemini.Candidate{
		{Parts: []gemini.Part{gemini.TextPart("first")}},
		{Parts: []gemini.Part{gemini.TextPart("second")}},
	}}
	text, err := ExtractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "first", text)
}

func TestExtractTextEmpty(t *testing.T) {
	for name, resp := range map[string]*gemini.Response{
		"nil":           nil,
		"no candidates": {},
		"empty parts":   textResponse(gemini.TextPart(""), gemini.TextPart("")),
		"only image":    textResponse(gemini.InlinePart("image/png", "QUJD")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractText(resp)
			assert.ErrorIs(t, err, domain.ErrEmptyResult)
		})
	}
}

func TestGenerateEmptyResult(t *testing.T) {
	gen := &fakeGenerator{configured: true, resp: textResponse(gemini.TextPart(""))}

	_, err := newComposer(gen).Generate(context.Background(), Request{
		Images: []string{pngImage}, Tone: "casual", Relationship: "friend",
	})
	assert.Equal(t, domain.KindEmptyResult, domain.Classify(err))
	assert.Len(t, gen.calls, 1)
}

func TestGenerateUpstreamStatus(t *testing.T) {
	gen := &fakeGenerator{configured: true, err: &gemini.APIError{
		StatusCode: http.StatusTooManyRequests,
		Status:     "429 Too Many Requests",
		Body:       `{"error":"quota"}`,
	}}

	_, err := newComposer(gen).Generate(context.Background(), Request{
		Images: []string{pngImage}, Tone: "casual", Relationship: "friend",
	})

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Equal(t, `{"error":"quota"}`, ue.Body)
	assert.Equal(t, "generation failed", domain.UserMessage(err))
	assert.Len(t, gen.calls, 1)
}

func TestGenerateTransportFailure(t *testing.T) {
	gen := &fakeGenerator{configured: true, err: context.DeadlineExceeded}

	_, err := newComposer(gen).Generate(context.Background(), Request{
		Images: []string{pngImage}, Tone: "casual", Relationship: "friend",
	})

	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Zero(t, ue.StatusCode)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateHonoursTimeout(t *testing.T) {
	gen := &blockingGenerator{}
	c := New(Options{Generator: gen, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.Generate(context.Background(), Request{Images: []string{pngImage}, Tone: "casual"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

type blockingGenerator struct{}

func (blockingGenerator) Configured() bool { return true }

func (blockingGenerator) GenerateContent(ctx context.Context, _ gemini.Request) (*gemini.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerateIsSafeForConcurrentUse(t *testing.T) {
	gen := &fakeGenerator{configured: true, resp: textResponse(gemini.TextPart("ok"))}
	c := newComposer(gen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Generate(context.Background(), Request{
				Images: []string{pngImage}, Tone: "formal", Relationship: "friend",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, gen.calls, 8)
}
