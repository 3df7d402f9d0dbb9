package clients

import (
	"context"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/earshot-app/earshot/internal/errors"
	"github.com/earshot-app/earshot/internal/trace"
)

// Reasoning calls an OpenAI-compatible chat completion backend for text and
// vision answers.
type Reasoning struct {
	client oai.Client
}

type reasoningConfig struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// ReasoningOption is a functional option for Reasoning.
type ReasoningOption func(*reasoningConfig)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ReasoningOption {
	return func(c *reasoningConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) ReasoningOption {
	return func(c *reasoningConfig) {
		c.timeout = d
	}
}

// WithHTTPClient overrides the HTTP client entirely.
func WithHTTPClient(hc *http.Client) ReasoningOption {
	return func(c *reasoningConfig) {
		c.httpClient = hc
	}
}

// NewReasoning constructs a reasoning client.
func NewReasoning(apiKey string, opts ...ReasoningOption) *Reasoning {
	cfg := &reasoningConfig{timeout: ReasoningTimeout}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   cfg.timeout,
			Transport: trace.NewTransport(nil),
		}
	}
	reqOpts = append(reqOpts, option.WithHTTPClient(hc))

	client := oai.NewClient(reqOpts...)
	return &Reasoning{client: client}
}

// Answer requests a text answer to question under the given system prompt.
// A response with no choices yields an empty answer, not an error.
func (r *Reasoning) Answer(ctx context.Context, model, systemPrompt, question string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(question),
		},
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeUnavailable, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// AnswerVision requests an answer about an image, passed as a data URL or
// fetchable URL.
func (r *Reasoning) AnswerVision(ctx context.Context, model, prompt, imageURL string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.TextContentPart(prompt),
				oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
			}),
		},
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeUnavailable, "vision completion")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
