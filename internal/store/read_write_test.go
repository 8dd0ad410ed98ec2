package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolution_PutGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetResolution(ctx, "file:///cat")
	require.NoError(t, err)
	assert.False(t, ok)

	want := createTestResolution("file:///cat", "sha256:aaa")
	require.NoError(t, s.PutResolution(ctx, want))

	got, ok, err := s.GetResolution(ctx, "file:///cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Resolved, got.Resolved)
	assert.Equal(t, want.Workspace, got.Workspace)
	assert.Equal(t, want.Options, got.Options)
	assert.Equal(t, int64(1), got.Seq)
}

func TestResolution_PutReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutResolution(ctx, createTestResolution("a", "sha256:1")))
	require.NoError(t, s.PutResolution(ctx, createTestResolution("a", "sha256:2")))

	got, ok, err := s.GetResolution(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sha256:2", got.Resolved)
	assert.Equal(t, int64(2), got.Seq)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM resolutions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestResolution_ByDigest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetResolutionByDigest(ctx, "sha256:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutResolution(ctx, createTestResolution("a", "sha256:1")))
	require.NoError(t, s.PutResolution(ctx, createTestResolution("b", "sha256:1")))
	require.NoError(t, s.PutResolution(ctx, createTestResolution("c", "sha256:2")))

	got, ok, err := s.GetResolutionByDigest(ctx, "sha256:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", got.Requested, "most recent resolution wins")
	assert.Equal(t, "sha256:1", got.Resolved)
	assert.NotEmpty(t, got.Options)
}

func TestResolution_EmptyKey(t *testing.T) {
	s := createTestStore(t)
	err := s.PutResolution(context.Background(), Resolution{Resolved: "x"})
	assert.True(t, errors.Is(err, ErrEmptyKey))
}

func TestResolution_Forget(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutResolution(ctx, createTestResolution("a", "sha256:1")))
	require.NoError(t, s.ForgetResolution(ctx, "a"))
	require.NoError(t, s.ForgetResolution(ctx, "never-stored"))

	_, ok, err := s.GetResolution(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecentDocuments_Empty(t *testing.T) {
	s := createTestStore(t)

	docs, err := s.RecentDocuments(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestRecentDocuments_MostRecentFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordDocument(ctx, "/a.ffgraph", "head"))
	require.NoError(t, s.RecordDocument(ctx, "/b.ffgraph", "head"))
	require.NoError(t, s.RecordDocument(ctx, "/c.ffgraph", ""))
	// Re-recording moves a path to the front.
	require.NoError(t, s.RecordDocument(ctx, "/a.ffgraph", "sha256:1"))

	docs, err := s.RecentDocuments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"/a.ffgraph", "/c.ffgraph", "/b.ffgraph"},
		[]string{docs[0].Path, docs[1].Path, docs[2].Path})
	assert.Equal(t, "sha256:1", docs[0].Identifier)
	assert.Equal(t, int64(4), docs[0].Seq)

	limited, err := s.RecentDocuments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecentDocuments_Prune(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"/1", "/2", "/3", "/4"} {
		require.NoError(t, s.RecordDocument(ctx, p, ""))
	}
	require.NoError(t, s.PruneRecent(ctx, 2))

	docs, err := s.RecentDocuments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "/4", docs[0].Path)
	assert.Equal(t, "/3", docs[1].Path)
}

func TestRecordDocument_EmptyPath(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordDocument(context.Background(), "", "head")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestMarshalOptions_Nil(t *testing.T) {
	data, err := marshalOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)

	opts, err := unmarshalOptions("")
	require.NoError(t, err)
	assert.Empty(t, opts)

	_, err = unmarshalOptions("{")
	assert.Error(t, err)
}
