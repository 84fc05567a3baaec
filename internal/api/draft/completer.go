package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trekly-itineraries/config"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"

	defaultOpenAIModel = string(openai.ChatModelGPT3_5Turbo)
	defaultGeminiModel = "gemini-2.0-flash"
)

var errEmptyCompletion = errors.New("completion returned no choices")

// Completer sends a system instruction and the user's text to a completion service and
// returns the raw answer text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewCompleter builds the backend selected in the configuration.
func NewCompleter(ctx context.Context, cfg config.CompletionConfig, logger *slog.Logger) (Completer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendOpenAI:
		return NewOpenAICompleter(cfg, logger), nil
	case BackendGemini:
		return NewGeminiCompleter(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
}

var _ Completer = (*OpenAICompleter)(nil)

type OpenAICompleter struct {
	logger      *slog.Logger
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAICompleter(cfg config.CompletionConfig, logger *slog.Logger, opts ...option.RequestOption) *OpenAICompleter {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{
		logger:      logger,
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: float64(cfg.Temperature),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := otel.Tracer("OpenAICompleter").Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("model", c.model),
		attribute.Int("prompt.length", len(user)),
	))
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.ErrorContext(ctx, "Chat completion failed", slog.String("method", "Complete"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return "", errEmptyCompletion
	}

	span.SetAttributes(attribute.Int64("usage.total_tokens", resp.Usage.TotalTokens))
	span.SetStatus(codes.Ok, "")
	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*GeminiCompleter)(nil)

type GeminiCompleter struct {
	logger      *slog.Logger
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiCompleter(ctx context.Context, cfg config.CompletionConfig, logger *slog.Logger) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini backend needs an API key")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiCompleter{
		logger:      logger,
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := otel.Tracer("GeminiCompleter").Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("model", c.model),
		attribute.Int("prompt.length", len(user)),
	))
	defer span.End()

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if c.temperature > 0 {
		genCfg.Temperature = genai.Ptr(c.temperature)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), genCfg)
	if err != nil {
		c.logger.ErrorContext(ctx, "Gemini generation failed", slog.String("method", "Complete"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return result.Text(), nil
}
