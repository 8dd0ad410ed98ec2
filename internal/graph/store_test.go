package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	return NewStore(NewFixedGenerator(ids...))
}

func seedNodes(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	changes := make([]NodeChange, len(ids))
	for i, id := range ids {
		changes[i] = NodeAdd(Node{ID: id, Type: KindDefault, Position: Position{X: float64(i * 100)}})
	}
	require.True(t, s.ApplyNodeChanges(changes))
}

func nodeIDs(doc Document) []string {
	ids := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestStore_NewStoreIsEmptyAtOrigin(t *testing.T) {
	s := NewStore(nil)
	doc := s.Snapshot()

	assert.Empty(t, doc.Nodes)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, OriginViewport, doc.Viewport)
	assert.Equal(t, uint64(0), s.Revision())
}

func TestStore_ApplyNodeChanges_AddPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	seedNodes(t, s, "a", "b", "c")

	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(s.Snapshot()))
}

func TestStore_ApplyNodeChanges_RejectsInvalidAdds(t *testing.T) {
	s := newTestStore(t)
	seedNodes(t, s, "a")

	changed := s.ApplyNodeChanges([]NodeChange{
		NodeAdd(Node{ID: "a", Type: KindInput}),     // duplicate
		NodeAdd(Node{ID: "", Type: KindInput}),      // missing id
		NodeAdd(Node{ID: "x", Type: Kind("laser")}), // unregistered kind
		{Type: ChangeAdd},                           // missing item
	})

	assert.False(t, changed)
	assert.Equal(t, []string{"a"}, nodeIDs(s.Snapshot()))
}

func TestStore_ApplyNodeChanges_UnknownIDsAreNoOps(t *testing.T) {
	s := newTestStore(t)
	seedNodes(t, s, "a")
	rev := s.Revision()

	changed := s.ApplyNodeChanges([]NodeChange{
		NodeRemove("ghost"),
		NodeMove("ghost", Position{X: 1, Y: 1}),
		NodeSelect("ghost", true),
	})

	assert.False(t, changed)
	assert.Equal(t, rev, s.Revision(), "no-op deltas must not bump revision")
}

func TestStore_ApplyNodeChanges_MoveAndSelect(t *testing.T) {
	s := newTestStore(t)
	seedNodes(t, s, "a", "b")

	require.True(t, s.ApplyNodeChanges([]NodeChange{
		NodeMove("b", Position{X: 10, Y: 20}),
		NodeSelect("a", true),
	}))

	doc := s.Snapshot()
	assert.True(t, doc.Nodes[0].Selected)
	assert.Equal(t, Position{X: 10, Y: 20}, doc.Nodes[1].Position)

	// Same position again is not a change.
	assert.False(t, s.ApplyNodeChanges([]NodeChange{NodeMove("b", Position{X: 10, Y: 20})}))
}

func TestStore_ApplyNodeChanges_RemoveDropsAttachedEdges(t *testing.T) {
	s := newTestStore(t, "e1", "e2")
	seedNodes(t, s, "a", "b", "c")
	_, ok := s.Connect(Connection{Source: "a", Target: "b"})
	require.True(t, ok)
	_, ok = s.Connect(Connection{Source: "b", Target: "c"})
	require.True(t, ok)

	require.True(t, s.ApplyNodeChanges([]NodeChange{NodeRemove("c")}))

	doc := s.Snapshot()
	assert.Equal(t, []string{"a", "b"}, nodeIDs(doc))
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "e1", doc.Edges[0].ID)
}

func TestStore_ApplyEdgeChanges(t *testing.T) {
	s := newTestStore(t)
	seedNodes(t, s, "a", "b")

	t.Run("add with existing endpoints", func(t *testing.T) {
		changed := s.ApplyEdgeChanges([]EdgeChange{{
			Type: ChangeAdd,
			Item: &Edge{ID: "manual", Source: "a", Target: "b"},
		}})
		assert.True(t, changed)
	})

	t.Run("add with dangling endpoint", func(t *testing.T) {
		changed := s.ApplyEdgeChanges([]EdgeChange{{
			Type: ChangeAdd,
			Item: &Edge{ID: "bad", Source: "a", Target: "missing"},
		}})
		assert.False(t, changed)
	})

	t.Run("select and remove", func(t *testing.T) {
		assert.True(t, s.ApplyEdgeChanges([]EdgeChange{{Type: ChangeSelect, ID: "manual", Selected: true}}))
		assert.True(t, s.Snapshot().Edges[0].Selected)
		assert.True(t, s.ApplyEdgeChanges([]EdgeChange{EdgeRemove("manual")}))
		assert.Empty(t, s.Snapshot().Edges)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.False(t, s.ApplyEdgeChanges([]EdgeChange{EdgeRemove("ghost")}))
	})
}

func TestStore_Connect_Validity(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
		want bool
	}{
		{"both endpoints exist", Connection{Source: "a", Target: "b"}, true},
		{"self loop", Connection{Source: "a", Target: "a"}, true},
		{"missing target", Connection{Source: "a", Target: "missing"}, false},
		{"missing source", Connection{Source: "missing", Target: "b"}, false},
		{"empty", Connection{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, "e1")
			seedNodes(t, s, "a", "b")

			edge, ok := s.Connect(tt.conn)

			assert.Equal(t, tt.want, ok)
			_, edges := s.Len()
			if tt.want {
				assert.Equal(t, 1, edges)
				assert.Equal(t, "e1", edge.ID)
				assert.Equal(t, tt.conn.Source, edge.Source)
				assert.Equal(t, tt.conn.Target, edge.Target)
			} else {
				assert.Equal(t, 0, edges)
			}
		})
	}
}

func TestStore_Connect_KeepsHandles(t *testing.T) {
	s := newTestStore(t, "e1")
	seedNodes(t, s, "a", "b")

	edge, ok := s.Connect(Connection{Source: "a", Target: "b", SourceHandle: "out", TargetHandle: "in"})
	require.True(t, ok)
	assert.Equal(t, "out", edge.SourceHandle)
	assert.Equal(t, "in", edge.TargetHandle)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.ApplyNodeChanges([]NodeChange{NodeAdd(Node{
		ID:   "a",
		Type: KindGlobalOptions,
		Data: map[string]any{
			"label":   "global",
			"options": []any{"hide_banner"},
			"nested":  map[string]any{"loglevel": "info"},
		},
	})}))

	snap := s.Snapshot()

	seedNodes(t, s, "b")
	require.True(t, s.ApplyNodeChanges([]NodeChange{NodeMove("a", Position{X: 99})}))
	s.SetViewport(Viewport{X: 5, Y: 5, Zoom: 2})

	// Mutating the snapshot must not leak into the store either.
	snap.Nodes[0].Data["label"] = "changed"
	snap.Nodes[0].Data["nested"].(map[string]any)["loglevel"] = "debug"

	assert.Len(t, snap.Nodes, 1)
	assert.Equal(t, Position{}, snap.Nodes[0].Position)
	assert.Equal(t, OriginViewport, snap.Viewport)

	live := s.Snapshot()
	assert.Equal(t, "global", live.Nodes[0].Data["label"])
	assert.Equal(t, "info", live.Nodes[0].Data["nested"].(map[string]any)["loglevel"])
}

func TestStore_SnapshotIsolationTypedData(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.ApplyNodeChanges([]NodeChange{NodeAdd(Node{
		ID:   "a",
		Type: KindGlobalOptions,
		Data: map[string]any{
			"values":  map[string]string{"loglevel": "info"},
			"entries": []map[string]any{{"flag": "hide_banner"}},
			"flags":   []string{"y"},
			"nested":  map[string][]any{"list": {map[string]any{"k": "v"}, nil}},
		},
	})}))

	snap := s.Snapshot()
	snap.Nodes[0].Data["values"].(map[string]string)["loglevel"] = "debug"
	snap.Nodes[0].Data["entries"].([]map[string]any)[0]["flag"] = "changed"
	snap.Nodes[0].Data["flags"].([]string)[0] = "n"
	snap.Nodes[0].Data["nested"].(map[string][]any)["list"][0].(map[string]any)["k"] = "w"

	live := s.Snapshot().Nodes[0].Data
	assert.Equal(t, map[string]string{"loglevel": "info"}, live["values"])
	assert.Equal(t, []map[string]any{{"flag": "hide_banner"}}, live["entries"])
	assert.Equal(t, []string{"y"}, live["flags"])
	assert.Equal(t, map[string][]any{"list": {map[string]any{"k": "v"}, nil}}, live["nested"])
}

func TestStore_Replace(t *testing.T) {
	s := newTestStore(t)
	seedNodes(t, s, "old")

	doc := Document{
		Nodes:    []Node{{ID: "n1", Type: KindInput}, {ID: "n2", Type: KindOutput}},
		Edges:    []Edge{{ID: "e", Source: "n1", Target: "n2"}},
		Viewport: Viewport{X: 1, Y: 2, Zoom: 0.5},
	}
	s.Replace(doc)

	got := s.Snapshot()
	assert.Equal(t, []string{"n1", "n2"}, nodeIDs(got))
	assert.Len(t, got.Edges, 1)
	assert.Equal(t, doc.Viewport, got.Viewport)

	// The caller's document is copied, not aliased.
	doc.Nodes[0].ID = "mutated"
	assert.Equal(t, "n1", s.Snapshot().Nodes[0].ID)
}

func TestStore_ObserverSeesEffectiveMutationsOnly(t *testing.T) {
	s := newTestStore(t, "e1")
	var got []Mutation
	s.OnChange(func(m Mutation) { got = append(got, m) })

	seedNodes(t, s, "a", "b")
	s.ApplyNodeChanges([]NodeChange{NodeRemove("ghost")})
	s.Connect(Connection{Source: "a", Target: "missing"})
	s.Connect(Connection{Source: "a", Target: "b"})
	s.SetViewport(OriginViewport)
	s.SetViewport(Viewport{Zoom: 2})
	s.Replace(Empty())

	kinds := make([]MutationKind, len(got))
	for i, m := range got {
		kinds[i] = m.Kind
		assert.Equal(t, uint64(i+1), m.Revision)
	}
	assert.Equal(t, []MutationKind{MutationNodes, MutationConnect, MutationViewport, MutationReplace}, kinds)
}

func TestStore_ObserverMayReadStore(t *testing.T) {
	s := newTestStore(t)
	var seen int
	s.OnChange(func(Mutation) {
		n, _ := s.Len()
		seen = n
	})

	seedNodes(t, s, "a", "b")
	assert.Equal(t, 2, seen)
}

func TestStore_ConcurrentReadsDuringReplace(t *testing.T) {
	s := newTestStore(t)
	full := Document{Viewport: OriginViewport}
	for i := 0; i < 50; i++ {
		full.Nodes = append(full.Nodes, Node{ID: string(rune('A' + i))})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if i%2 == 0 {
				s.Replace(full)
			} else {
				s.Replace(Empty())
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			n := len(s.Snapshot().Nodes)
			assert.True(t, n == 0 || n == 50, "observed partial replace with %d nodes", n)
		}
	}()
	wg.Wait()
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("x", "y")
	assert.Equal(t, "x", gen.Generate())
	assert.Equal(t, "y", gen.Generate())
	assert.Equal(t, "edge-3", gen.Generate())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		assert.Len(t, id, 36)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestIsRegistered(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, IsRegistered(k), k)
	}
	assert.True(t, IsRegistered(""))
	assert.False(t, IsRegistered("unknown"))
}
