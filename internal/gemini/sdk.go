package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// SDKClient is the google.golang.org/genai backend. It produces the same
// Response and APIError values as the REST Client.
type SDKClient struct {
	client *genai.Client
	logger *slog.Logger
}

// NewSDK builds the genai client. With an empty key no client is created and
// Configured reports false.
func NewSDK(ctx context.Context, opts Options) (*SDKClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return &SDKClient{logger: logger}, nil
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	apiVersion := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimSpace(opts.BaseURL),
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &SDKClient{client: client, logger: logger}, nil
}

func (c *SDKClient) Configured() bool {
	return c.client != nil
}

func (c *SDKClient) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	if c.client == nil {
		return nil, errors.New("api key is empty")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	parts, err := toSDKParts(req.Parts)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, toSDKConfig(req.Config))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{
				StatusCode: apiErr.Code,
				Status:     fmt.Sprintf("%d %s", apiErr.Code, apiErr.Status),
				Body:       apiErr.Message,
			}
		}
		return nil, fmt.Errorf("request: %w", err)
	}

	c.logger.Debug("gemini sdk response", "model", model, "candidates", len(resp.Candidates))
	return fromSDK(resp), nil
}

// toSDKParts decodes inline payloads because genai.Blob holds raw bytes; the
// SDK re-encodes them as standard base64, so the bytes on the wire match the
// original payload.
func toSDKParts(parts []Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for i, p := range parts {
		if p.InlineData == nil {
			out = append(out, genai.NewPartFromText(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("part %d: decode inline data: %w", i, err)
		}
		out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.InlineData.MIMEType, Data: data}})
	}
	return out, nil
}

func toSDKConfig(cfg GenerationConfig) *genai.GenerateContentConfig {
	if cfg == (GenerationConfig{}) {
		return nil
	}
	out := &genai.GenerateContentConfig{}
	if cfg.Temperature != 0 {
		out.Temperature = genai.Ptr(float32(cfg.Temperature))
	}
	if cfg.TopK != 0 {
		out.TopK = genai.Ptr(float32(cfg.TopK))
	}
	if cfg.TopP != 0 {
		out.TopP = genai.Ptr(float32(cfg.TopP))
	}
	if cfg.MaxOutputTokens != 0 {
		out.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	return out
}

func fromSDK(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		c := Candidate{FinishReason: string(cand.FinishReason)}
		if cand.Content != nil {
			for _, p := range cand.Content.Parts {
				if p == nil {
					continue
				}
				np := Part{Text: p.Text}
				if p.InlineData != nil {
					np.InlineData = &Blob{
						MIMEType: p.InlineData.MIMEType,
						Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
					}
				}
				c.Parts = append(c.Parts, np)
			}
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out
}
