package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", opts.Serialization)
	assert.Equal(t, "ours-diff", opts.ConflictResolutionStrategy)
	assert.Equal(t, 30*time.Second, opts.Interval)
	assert.Equal(t, 3, opts.NetworkRetry)
	assert.Equal(t, ConnectionNone, opts.Connection.Type)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gitdocdb.yaml")
	contents := "db_name: nara\nserialization: front-matter\nconnection:\n  type: github\n  personal_access_token: tok\ninterval: 45s\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nara", opts.DBName)
	assert.Equal(t, "front-matter", opts.Serialization)
	assert.Equal(t, ConnectionGitHub, opts.Connection.Type)
	assert.Equal(t, "tok", opts.Connection.PersonalAccessToken)
	assert.Equal(t, 45*time.Second, opts.Interval)
}

func TestLoad_TOMLFileSupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gitdocdb.toml")
	contents := "db_name = \"nara\"\nserialization = \"yaml\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nara", opts.DBName)
	assert.Equal(t, "yaml", opts.Serialization)
}

func TestLoad_IntervalClampedToMinimum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gitdocdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 500ms\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, minInterval, opts.Interval)
}

func TestWriteStarter_ProducesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gitdocdb.toml")
	require.NoError(t, WriteStarter(path))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mydb", opts.DBName)
	assert.Equal(t, ConnectionGitHub, opts.Connection.Type)
}
