package gateway

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/docfile"
	"github.com/roach88/ffgraph/internal/graph"
	"github.com/roach88/ffgraph/internal/options"
	"github.com/roach88/ffgraph/internal/store"
)

const catalogueSource = `option: {
	threads: {
		name:        "threads"
		description: "Number of filter threads"
		flag:        "filter_threads"
		type:        "string"
	}
	benchmark: {
		name: "benchmark"
		flag: "benchmark"
		type: "boolean"
	}
}
`

type stageRecorder struct {
	progress []bus.Progress
}

func (s *stageRecorder) report(p bus.Progress) {
	s.progress = append(s.progress, p)
}

func (s *stageRecorder) stages() []bus.Stage {
	out := make([]bus.Stage, len(s.progress))
	for i, p := range s.progress {
		out[i] = p.Stage
	}
	return out
}

func (s *stageRecorder) Send(p bus.Progress) { s.report(p) }

func writeCatalogue(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestFiles_RoundTrip(t *testing.T) {
	ctx := context.Background()
	files := NewFiles(nil)
	path := filepath.Join(t.TempDir(), "g.ffgraph")

	doc := graph.Document{
		Nodes: []graph.Node{
			{ID: "a", Type: graph.KindInput, Data: map[string]any{"file": "in.mp4"}},
			{ID: "b", Type: graph.KindOutput, Position: graph.Position{X: 120, Y: 40}},
		},
		Edges:    []graph.Edge{{ID: "e1", Source: "a", Target: "b"}},
		Viewport: graph.Viewport{X: 3, Y: 4, Zoom: 0.5},
	}
	require.NoError(t, files.WriteDocument(ctx, path, doc, "sha256:abc"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "\n"))

	got, identifier, err := files.ReadDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "sha256:abc", identifier)
	assert.Equal(t, doc.Edges, got.Edges)
	assert.Equal(t, doc.Viewport, got.Viewport)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "in.mp4", got.Nodes[0].Data["file"])
}

func TestFiles_ReadMissing(t *testing.T) {
	files := NewFiles(nil)

	_, _, err := files.ReadDocument(context.Background(), filepath.Join(t.TempDir(), "nope.ffgraph"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, iofs.ErrNotExist))
}

func TestFiles_ReadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ffgraph")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": [{"id": "a"}, {"id": "a"}]}`), 0o644))

	_, _, err := NewFiles(nil).ReadDocument(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, docfile.ErrMalformed))
}

func TestResolver_Builtin(t *testing.T) {
	r := NewResolver(nil, t.TempDir())
	rec := &stageRecorder{}

	res, err := r.Resolve(context.Background(), options.BuiltinIdentifier, rec.report)
	require.NoError(t, err)

	builtin, err := options.Builtin()
	require.NoError(t, err)
	digest, err := options.Digest(builtin)
	require.NoError(t, err)

	assert.Equal(t, []bus.Stage{bus.StageStarted, bus.StageLoading, bus.StageCompleted}, rec.stages())
	assert.Equal(t, digest, res.Resolved)
	assert.Equal(t, digest, rec.progress[2].Identifier)
	assert.Len(t, res.Options, 8)
}

func TestResolver_Directory(t *testing.T) {
	source := writeCatalogue(t, map[string]string{
		"catalogue.cue": catalogueSource,
		"README.md":     "not a catalogue",
	})
	r := NewResolver(nil, t.TempDir())
	rec := &stageRecorder{}

	res, err := r.Resolve(context.Background(), source, rec.report)
	require.NoError(t, err)

	assert.Equal(t, []bus.Stage{
		bus.StageStarted, bus.StageCloning, bus.StageLoading, bus.StageCompleted,
	}, rec.stages())
	assert.True(t, strings.HasPrefix(res.Resolved, "sha256:"))
	assert.False(t, res.Cached)
	require.Len(t, res.Options, 2)
	assert.Equal(t, "threads", res.Options[0].Key)
	assert.Equal(t, "benchmark", res.Options[1].Key)

	again, err := r.Resolve(context.Background(), source, func(bus.Progress) {})
	require.NoError(t, err)
	assert.Equal(t, res.Resolved, again.Resolved, "same catalogue, same digest")
}

func TestResolver_CachedResolutionSkipsStages(t *testing.T) {
	ctx := context.Background()
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	source := writeCatalogue(t, map[string]string{"catalogue.cue": catalogueSource})
	r := NewResolver(nil, t.TempDir(), WithCache(cache))

	first, err := r.Resolve(ctx, source, func(bus.Progress) {})
	require.NoError(t, err)

	stored, ok, err := cache.GetResolution(ctx, source)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Resolved, stored.Resolved)

	rec := &stageRecorder{}
	second, err := r.Resolve(ctx, source, rec.report)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, []bus.Progress{bus.Completed(first.Resolved)}, rec.progress)
	assert.Equal(t, first.Options, second.Options)
}

func TestResolver_MissingSource(t *testing.T) {
	r := NewResolver(nil, t.TempDir())
	rec := &stageRecorder{}

	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "absent"), rec.report)
	require.Error(t, err)
	assert.Equal(t, []bus.Stage{bus.StageStarted}, rec.stages())
}

func TestResolver_EmptyCatalogueDirectory(t *testing.T) {
	source := writeCatalogue(t, map[string]string{"notes.txt": "nothing"})
	r := NewResolver(nil, t.TempDir())
	rec := &stageRecorder{}

	_, err := r.Resolve(context.Background(), source, rec.report)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCatalogue))
	assert.Equal(t, []bus.Stage{bus.StageStarted, bus.StageCloning}, rec.stages())
}

func TestResolver_InvalidCatalogue(t *testing.T) {
	source := writeCatalogue(t, map[string]string{"bad.cue": `option: x: {name: "x", type: "number"}`})
	r := NewResolver(nil, t.TempDir())
	rec := &stageRecorder{}

	_, err := r.Resolve(context.Background(), source, rec.report)
	require.Error(t, err)
	assert.Equal(t, []bus.Stage{bus.StageStarted, bus.StageCloning, bus.StageLoading}, rec.stages())
}

func TestResolver_CancelledContext(t *testing.T) {
	source := writeCatalogue(t, map[string]string{"catalogue.cue": catalogueSource})
	r := NewResolver(nil, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, source, func(bus.Progress) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_RecloneDropsRemovedFiles(t *testing.T) {
	ctx := context.Background()
	source := writeCatalogue(t, map[string]string{
		"a.cue": `option: threads: {name: "threads", flag: "filter_threads", type: "string"}`,
		"b.cue": `option: benchmark: {name: "benchmark", flag: "benchmark", type: "boolean"}`,
	})
	r := NewResolver(nil, t.TempDir())

	first, err := r.Resolve(ctx, source, func(bus.Progress) {})
	require.NoError(t, err)
	require.Len(t, first.Options, 2)

	require.NoError(t, os.Remove(filepath.Join(source, "b.cue")))

	second, err := r.Resolve(ctx, source, func(bus.Progress) {})
	require.NoError(t, err)
	require.Len(t, second.Options, 1)
	assert.Equal(t, "threads", second.Options[0].Key)
	assert.NotEqual(t, first.Resolved, second.Resolved)
	assert.NoFileExists(t, filepath.Join(second.Workspace, "b.cue"))
}

func TestResolver_BuiltinDigest(t *testing.T) {
	r := NewResolver(nil, t.TempDir())
	digest, err := options.BuiltinDigest()
	require.NoError(t, err)
	rec := &stageRecorder{}

	res, err := r.Resolve(context.Background(), digest, rec.report)
	require.NoError(t, err)
	assert.Equal(t, digest, res.Requested)
	assert.Equal(t, digest, res.Resolved)
	assert.Equal(t, []bus.Stage{bus.StageStarted, bus.StageLoading, bus.StageCompleted}, rec.stages())
	assert.Len(t, res.Options, 8)
}

func TestResolver_DirectoryDigest(t *testing.T) {
	ctx := context.Background()
	source := writeCatalogue(t, map[string]string{"catalogue.cue": catalogueSource})
	r := NewResolver(nil, t.TempDir())

	first, err := r.Resolve(ctx, source, func(bus.Progress) {})
	require.NoError(t, err)

	rec := &stageRecorder{}
	again, err := r.Resolve(ctx, first.Resolved, rec.report)
	require.NoError(t, err)
	assert.Equal(t, first.Resolved, again.Resolved)
	assert.Equal(t, first.Options, again.Options)
	assert.True(t, again.Cached)
	assert.Equal(t, []bus.Progress{bus.Completed(first.Resolved)}, rec.progress)
}

func TestResolver_DigestFromCache(t *testing.T) {
	ctx := context.Background()
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	source := writeCatalogue(t, map[string]string{"catalogue.cue": catalogueSource})
	first, err := NewResolver(nil, t.TempDir(), WithCache(cache)).Resolve(ctx, source, func(bus.Progress) {})
	require.NoError(t, err)

	fresh := NewResolver(nil, t.TempDir(), WithCache(cache))
	res, err := fresh.Resolve(ctx, first.Resolved, func(bus.Progress) {})
	require.NoError(t, err)
	assert.Equal(t, first.Resolved, res.Resolved)
	assert.Equal(t, first.Options, res.Options)
}

func TestResolver_UnknownDigest(t *testing.T) {
	r := NewResolver(nil, t.TempDir())
	rec := &stageRecorder{}

	_, err := r.Resolve(context.Background(), options.DigestPrefix+strings.Repeat("0", 64), rec.report)
	assert.ErrorIs(t, err, ErrUnknownDigest)
	assert.Empty(t, rec.progress)
}

func TestResolver_MissingWorkspaceForgetsAndReclones(t *testing.T) {
	ctx := context.Background()
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	source := writeCatalogue(t, map[string]string{"catalogue.cue": catalogueSource})
	r := NewResolver(nil, t.TempDir(), WithCache(cache))

	first, err := r.Resolve(ctx, source, func(bus.Progress) {})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(first.Workspace))

	// A failed re-clone leaves nothing cached for the identifier.
	require.NoError(t, os.Remove(filepath.Join(source, "catalogue.cue")))
	_, err = r.Resolve(ctx, source, func(bus.Progress) {})
	require.ErrorIs(t, err, ErrNoCatalogue)
	_, ok, err := cache.GetResolution(ctx, source)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(source, "catalogue.cue"), []byte(catalogueSource), 0o644))
	rec := &stageRecorder{}
	again, err := r.Resolve(ctx, source, rec.report)
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Equal(t, first.Resolved, again.Resolved)
	assert.Equal(t, []bus.Stage{
		bus.StageStarted, bus.StageCloning, bus.StageLoading, bus.StageCompleted,
	}, rec.stages())
}

func TestGateway_ResolveIdentifier(t *testing.T) {
	gw := New(NewFiles(nil), NewResolver(nil, t.TempDir()))
	rec := &stageRecorder{}

	require.NoError(t, gw.ResolveIdentifier(context.Background(), rec, options.BuiltinIdentifier))
	assert.Len(t, rec.progress, 3)
	assert.NotNil(t, gw.Resolver())
}
