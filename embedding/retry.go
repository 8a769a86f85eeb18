package embedding

import (
	"context"
	"time"

	"hn-insight/apperrors"
	"hn-insight/logger"
)

const defaultMaxAttempts = 3

// retryEmbedder retries transient provider failures with exponential backoff.
// Validation errors and context cancellation fail immediately.
type retryEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps an embedder with the retry policy: up to maxAttempts tries
// with exponential backoff, applied only to upstream (transient) failures.
func WithRetry(inner Embedder, maxAttempts int, baseDelay time.Duration) Embedder {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &retryEmbedder{inner: inner, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := r.do(ctx, func() error {
		var err error
		vector, err = r.inner.Embed(ctx, text)
		return err
	})
	return vector, err
}

func (r *retryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := r.do(ctx, func() error {
		var err error
		vectors, err = r.inner.EmbedBatch(ctx, texts)
		return err
	})
	return vectors, err
}

func (r *retryEmbedder) do(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			logger.Log.Warnf("retrying embedding call, attempt %d/%d: %v",
				attempt+1, r.maxAttempts, lastErr)
			select {
			case <-time.After(retryDelay(r.baseDelay, attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !apperrors.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}
