package embedding

import (
	"context"
	"os"
	"time"

	"google.golang.org/genai"

	"hn-insight/apperrors"
)

// GeminiEmbedder produces embeddings through the Google GenAI API.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiEmbedder(ctx context.Context, model string, timeout time.Duration) (*GeminiEmbedder, error) {
	if model == "" {
		model = "gemini-embedding-001"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, apperrors.Upstream(err, "create genai client")
	}
	return &GeminiEmbedder{client: client, model: model, timeout: timeout}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, apperrors.Validation("cannot embed empty text")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(t)...)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, apperrors.Upstream(err, "gemini embeddings")
	}
	if len(result.Embeddings) != len(texts) {
		return nil, apperrors.Upstream(nil, "gemini returned %d embeddings for %d inputs",
			len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, apperrors.Upstream(nil, "gemini returned empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
