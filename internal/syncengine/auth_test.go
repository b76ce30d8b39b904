package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/config"
	"github.com/sosuisen/gitdocdb/internal/kinds"
)

func TestBuildAuth_NoneReturnsNilAuth(t *testing.T) {
	auth, err := BuildAuth(config.Connection{Type: config.ConnectionNone})
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestBuildAuth_GitHubWithoutTokenFails(t *testing.T) {
	_, err := BuildAuth(config.Connection{Type: config.ConnectionGitHub})
	require.Error(t, err)
	assert.True(t, kinds.Is(err, kinds.UndefinedPersonalAccessToken))
}

func TestBuildAuth_GitHubWithTokenSucceeds(t *testing.T) {
	auth, err := BuildAuth(config.Connection{Type: config.ConnectionGitHub, PersonalAccessToken: "tok"})
	require.NoError(t, err)
	assert.NotNil(t, auth)
}
