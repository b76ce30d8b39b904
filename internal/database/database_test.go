package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/config"
	"github.com/sosuisen/gitdocdb/internal/kinds"
)

func testOptions(t *testing.T) config.Options {
	t.Helper()
	return config.Options{
		DBName:                     "testdb",
		LocalDir:                   filepath.Join(t.TempDir(), "repo"),
		Serialization:              "json",
		ConflictResolutionStrategy: "ours-diff",
		NetworkRetry:               1,
		NetworkRetryInterval:       10 * time.Millisecond,
		NetworkTimeout:             time.Second,
		Interval:                   3 * time.Second,
		CombineDBStrategy:          config.CombineThrow,
		AuthorName:                 "tester",
		AuthorEmail:                "tester@example.com",
	}
}

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(time.Second, true) })
	return db
}

func TestOpen_BootstrapsThreeCommits(t *testing.T) {
	db := openTestDB(t)

	history, err := db.GetHistory(".gitddb/app")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, "put appinfo", history[0].Message)

	history, err = db.GetHistory(".gitddb/info")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, "set database id", history[0].Message)

	head, err := db.store.ResolveRef(db.localRef())
	require.NoError(t, err)
	all, err := db.store.ListCommitsBetween("", head)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "first commit", all[0].Message)
}

func TestOpen_RejectsDoubleOpenSamePath(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	require.NoError(t, err)
	defer db.Close(time.Second, true)

	_, err = Open(opts)
	require.Error(t, err)
	assert.True(t, kinds.Is(err, kinds.DatabaseAlreadyOpen))
}

func TestOpen_ReopensAfterClose(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	require.NoError(t, err)
	require.NoError(t, db.Close(time.Second, true))

	db2, err := Open(opts)
	require.NoError(t, err)
	defer db2.Close(time.Second, true)
}

func TestPutGetDelete_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	doc, err := db.Put("notes/hello", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "notes/hello", doc.ID)

	got, err := db.Get("notes/hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Doc["text"])
	assert.NotEmpty(t, got.FileOid)

	require.NoError(t, db.Delete("notes/hello"))

	_, err = db.Get("notes/hello")
	require.Error(t, err)
	assert.True(t, kinds.Is(err, kinds.DocumentNotFound))
}

func TestPut_GeneratesIDWhenEmpty(t *testing.T) {
	db := openTestDB(t)

	doc, err := db.Put("", map[string]any{"text": "generated"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	got, err := db.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "generated", got.Doc["text"])
}

func TestPut_SecondWriteIsUpdate(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Put("notes/a", map[string]any{"v": float64(1)})
	require.NoError(t, err)
	_, err = db.Put("notes/a", map[string]any{"v": float64(2)})
	require.NoError(t, err)

	history, err := db.GetHistory("notes/a")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Contains(t, history[0].Message, "update: ")
	assert.Contains(t, history[1].Message, "insert: ")
}

func TestDelete_MissingDocumentFails(t *testing.T) {
	db := openTestDB(t)

	err := db.Delete("notes/missing")
	require.Error(t, err)
	assert.True(t, kinds.Is(err, kinds.DocumentNotFound))
}

func TestFind_FiltersByPrefixAndSkipsMetadata(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Put("notes/a", map[string]any{"v": float64(1)})
	require.NoError(t, err)
	_, err = db.Put("notes/b", map[string]any{"v": float64(2)})
	require.NoError(t, err)
	_, err = db.Put("other/c", map[string]any{"v": float64(3)})
	require.NoError(t, err)

	docs, err := db.Find("notes/")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	ids := []string{docs[0].ID, docs[1].ID}
	assert.Contains(t, ids, "notes/a")
	assert.Contains(t, ids, "notes/b")

	all, err := db.Find("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClose_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Close(time.Second, true))
	require.NoError(t, db.Close(time.Second, true))
}

func TestDestroy_RemovesWorkingDirectory(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	require.NoError(t, err)

	require.NoError(t, db.Destroy())

	_, err = Open(opts)
	require.NoError(t, err)
}
