package kinds

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	cause := errors.New("boom")
	err := New(DocumentNotFound, "Get", cause)

	require.ErrorIs(t, err, New(DocumentNotFound, "", nil))
	assert.False(t, errors.Is(err, New(InvalidID, "", nil)))
	assert.ErrorIs(t, err, cause)
}

func TestOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CloseTimeout, "Close", nil))

	k, ok := Of(err)
	require.True(t, ok)
	assert.Equal(t, CloseTimeout, k)

	_, ok = Of(errors.New("plain"))
	assert.False(t, ok)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(HTTPNetwork))
	assert.True(t, Retryable(RequestTimeout))
	assert.True(t, Retryable(SocketTimeout))
	assert.True(t, Retryable(HTTPServerError))
	assert.False(t, Retryable(InvalidURL))
	assert.False(t, Retryable(NonFastForwardPush))
	assert.False(t, Retryable(FetchPermissionDenied))
}
