// Package openai wraps the OpenAI SDK for chat completions.
package openai

import (
	"context"
	"net/http"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultModel = shared.ChatModelGPT4oMini

// Client performs chat completions.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single-turn completion.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature *float64
	// JSON forces a JSON object response.
	JSON bool
}

// CompletionResponse is the first choice of a completion.
type CompletionResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// LogCost logs token usage for an operation.
func (u Usage) LogCost(model, operation string) {
	zap.L().Info("llm cost",
		zap.String("provider", "openai"),
		zap.String("model", model),
		zap.String("operation", operation),
		zap.Int64("input_tokens", u.PromptTokens),
		zap.Int64("output_tokens", u.CompletionTokens),
	)
}

// Option configures the SDK client.
type Option = option.RequestOption

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option { return option.WithBaseURL(url) }

// WithHTTPClient overrides the http.Client used by the SDK.
func WithHTTPClient(hc *http.Client) Option { return option.WithHTTPClient(hc) }

// WithMaxRetries sets the SDK's own retry count.
func WithMaxRetries(n int) Option { return option.WithMaxRetries(n) }

type sdkClient struct {
	client sdk.Client
}

// NewClient creates an OpenAI client.
func NewClient(apiKey string, opts ...Option) Client {
	return &sdkClient{
		client: sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
	}
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := shared.ChatModel(req.Model)
	if model == "" {
		model = defaultModel
	}

	var msgs []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    model,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.JSON {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: no choices returned")
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
