// Package ai talks to the Gemini text-to-design model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-flash-latest"

var errNoAPIKey = errors.New("api key is not configured")

type Config struct {
	APIKey string
	Model  string
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	gen   generator
	model string
}

// New builds a Gemini client. Without an API key the client is still usable
// but every command fails, the same way a rejected key would.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{model: cfg.Model}
	if cfg.APIKey == "" {
		slog.Warn("ai: api key not set, @ai commands will fail")
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: new client: %w", err)
	}
	c.gen = gc.Models
	return c, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (domain.AIReply, error) {
	if c.gen == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAIFailed, errNoAPIKey)
	}

	resp, err := c.gen.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, classify(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrAIFailed)
	}
	return ParseReply(text)
}

// classify maps upstream failures to rate-limited or generic.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domain.ErrAIRateLimited, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domain.ErrAIRateLimited, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") {
		return fmt.Errorf("%w: %v", domain.ErrAIRateLimited, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrAIFailed, err)
}
