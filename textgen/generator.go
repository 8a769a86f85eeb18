// Package textgen wraps the text-generation provider used for optional
// enrichment: recommendation rationale, query intent extraction and comment
// analysis. Its unavailability never fails a core operation.
package textgen

import (
	"context"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"hn-insight/apperrors"
)

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini generates text through the Google GenAI API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGemini(ctx context.Context, model string, timeout time.Duration) (*Gemini, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, apperrors.Upstream(err, "create genai client")
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperrors.Validation("empty prompt")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", apperrors.Upstream(err, "gemini generate")
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", apperrors.Upstream(nil, "gemini returned empty response")
	}
	return text, nil
}

// CleanJSONResponse strips markdown code fences models tend to wrap JSON in.
func CleanJSONResponse(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
