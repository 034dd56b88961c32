package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/ai"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultModel   = "grok-beta"
	maxTokens      = 1024
)

// Options configure the OpenAI-compatible endpoint
type Options struct {
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
}

func NewClient(apiKey string, opts Options) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	} else {
		cfg.BaseURL = DefaultBaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	tokens := opts.MaxTokens
	if tokens <= 0 {
		tokens = maxTokens
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: tokens}
}

// Factory returns a triage.ModelFactory that binds each call's credential.
func Factory(opts Options) triage.ModelFactory {
	return func(apiKey string) (triage.Model, error) {
		if strings.TrimSpace(apiKey) == "" {
			return nil, triage.ErrMissingCredential
		}
		return NewClient(apiKey, opts), nil
	}
}

func (c *Client) Name() string { return c.Model }

func (c *Client) Complete(ctx context.Context, in triage.Instruction) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: wireTemperature(in.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemMessage(in.Persona, in.Guidelines)},
			{Role: openai.ChatMessageRoleUser, Content: in.Prompt},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuota(err) {
			return "", fmt.Errorf("failed to create chat completion: %w: %w", ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// wireTemperature keeps an explicit zero on the wire; the request field is
// omitempty, and an omitted temperature means the provider default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// StatusCode extracts the provider HTTP status from an invocation error, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
