// Package advice asks a remote text-generation service for free-text
// restructuring advice about an analyzed page.
//
// The advisor is strictly read-only: it consumes an analysis result and
// produces prose. It never sees the document itself and never feeds
// rules back into the engine.
package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hazyhaar/pagecraft/analyze"
)

// Config for the advisor. APIKey falls back to OPENAI_API_KEY.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ErrNotConfigured reports a missing API key.
var ErrNotConfigured = fmt.Errorf("advice: no API key configured")

// Advisor wraps the remote service client.
type Advisor struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// New creates an Advisor, or ErrNotConfigured without a key.
func New(cfg Config) (*Advisor, error) {
	cfg.defaults()
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Advisor{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

const systemPrompt = `You advise on restructuring web pages for readability.
Given page metrics and heuristic findings, reply with short, concrete
advice (plain prose, no markdown) on which transformations to apply:
hiding clutter, raising font sizes, trimming navigation, spacing content.`

// Advise returns free-text restructuring advice for an analyzed page.
func (a *Advisor) Advise(ctx context.Context, pageURL string, res *analyze.Result) (string, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("advice: encode analysis: %w", err)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Page: %s\nAnalysis: %s", pageURL, payload)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("advice: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("advice: empty response")
	}
	a.logger.Debug("advice: completion", "url", pageURL, "model", a.model)
	return resp.Choices[0].Message.Content, nil
}
