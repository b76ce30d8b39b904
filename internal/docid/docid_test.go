package docid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortableAndValid(t *testing.T) {
	g := NewGenerator()

	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, g.New(""))
	}

	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "ids must be strictly increasing")
		assert.Len(t, ids[i], encodedLen)
		assert.True(t, Valid(ids[i]))
	}
}

func TestNewWithPrefix(t *testing.T) {
	g := NewGenerator()
	id := g.New("users")
	require.Contains(t, id, "users/")
	assert.True(t, Valid(id))
}

func TestValidRejectsGarbage(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("too-short"))
	assert.False(t, Valid("lowercase-not-allowed-xxxxxx"))
}
