package syncengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sosuisen/gitdocdb/internal/model"
)

func TestClassify_SameHeadIsNop(t *testing.T) {
	assert.Equal(t, model.ActionNop, classify("abc", "abc", "abc"))
}

func TestClassify_NoMergeBaseIsCombine(t *testing.T) {
	assert.Equal(t, model.ActionCombine, classify("abc", "def", ""))
}

func TestClassify_LocalAtBaseIsFastForward(t *testing.T) {
	assert.Equal(t, model.ActionFastForward, classify("base", "remote", "base"))
}

func TestClassify_RemoteAtBaseIsPush(t *testing.T) {
	assert.Equal(t, model.ActionPush, classify("local", "base", "base"))
}

func TestClassify_BothDivergedIsMergeAndPush(t *testing.T) {
	assert.Equal(t, model.ActionMergeAndPush, classify("local", "remote", "base"))
}

func TestClampInterval_FloorsBelowMinimum(t *testing.T) {
	assert.Equal(t, DefaultLiveSyncInterval, clampInterval(0))
	assert.Equal(t, MinLiveSyncInterval, clampInterval(time.Second))
	assert.Equal(t, DefaultLiveSyncInterval, clampInterval(-1))
}
