package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), Options{MaxAttempts: 3, Interval: time.Millisecond}, func() error {
		calls++
		if calls < 2 {
			return kinds.New(kinds.HTTPNetwork, "test", errors.New("connection reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, result.Attempts)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Options{MaxAttempts: 3, Interval: time.Millisecond}, func() error {
		calls++
		return kinds.New(kinds.PushPermissionDenied, "test", errors.New("403"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, kinds.Is(err, kinds.PushPermissionDenied))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Options{MaxAttempts: 3, Interval: time.Millisecond}, func() error {
		calls++
		return kinds.New(kinds.HTTPNetwork, "test", errors.New("still down"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
