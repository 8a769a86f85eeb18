package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWalksWrappedChains(t *testing.T) {
	base := Upstream(errors.New("connection refused"), "qdrant search")
	wrapped := fmt.Errorf("similarity search: %w", base)

	assert.Equal(t, KindUpstream, KindOf(wrapped))
	assert.True(t, IsUpstream(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestOnlyUpstreamIsRetryable(t *testing.T) {
	assert.True(t, Retryable(Upstream(nil, "timeout")))
	assert.False(t, Retryable(Validation("bad filter")))
	assert.False(t, Retryable(NotFound("no such article")))
	assert.False(t, Retryable(Conflict("lock interleaving")))
	assert.False(t, Retryable(errors.New("plain")))
	assert.False(t, Retryable(nil))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Upstream(errors.New("status 503"), "embed batch")
	assert.Equal(t, "embed batch: status 503", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "status 503")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(KindUpstream, nil, "ignored"))
}
