package graph

import "sync"

// Store holds the live document.
//
// Thread-safety model:
//   - All methods are safe from any goroutine (internal RWMutex)
//   - The session controller is the only writer in practice
//   - The observer is invoked after the lock is released, on the
//     goroutine that performed the mutation
type Store struct {
	mu       sync.RWMutex
	nodes    []Node
	edges    []Edge
	viewport Viewport
	revision uint64
	ids      IDGenerator

	observer func(Mutation)
}

// NewStore creates an empty store at the origin viewport.
// If ids is nil, UUIDv7Generator is used for new edge identifiers.
func NewStore(ids IDGenerator) *Store {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Store{
		nodes:    []Node{},
		edges:    []Edge{},
		viewport: OriginViewport,
		ids:      ids,
	}
}

// OnChange registers the mutation observer, replacing any previous one.
func (s *Store) OnChange(fn func(Mutation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Revision returns the number of effective mutations applied so far.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Len returns the current node and edge counts.
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// ApplyNodeChanges applies changes in order. Changes naming unknown nodes,
// adds with a duplicate ID or an unregistered kind are skipped.
// Removing a node also removes every edge attached to it.
//
// Returns true if at least one change took effect.
func (s *Store) ApplyNodeChanges(changes []NodeChange) bool {
	s.mu.Lock()
	changed := false
	for _, c := range changes {
		if s.applyNodeChange(c) {
			changed = true
		}
	}
	m := s.commit(changed, MutationNodes)
	s.mu.Unlock()

	s.notify(m)
	return changed
}

func (s *Store) applyNodeChange(c NodeChange) bool {
	switch c.Type {
	case ChangeAdd:
		if c.Item == nil || c.Item.ID == "" || !IsRegistered(c.Item.Type) {
			return false
		}
		if s.nodeIndex(c.Item.ID) >= 0 {
			return false
		}
		s.nodes = append(s.nodes, c.Item.clone())
		return true

	case ChangeRemove:
		i := s.nodeIndex(c.ID)
		if i < 0 {
			return false
		}
		s.nodes = append(s.nodes[:i:i], s.nodes[i+1:]...)
		s.edges = dropEdges(s.edges, func(e Edge) bool {
			return e.Source == c.ID || e.Target == c.ID
		})
		return true

	case ChangePosition:
		i := s.nodeIndex(c.ID)
		if i < 0 || c.Position == nil {
			return false
		}
		if s.nodes[i].Position == *c.Position {
			return false
		}
		s.nodes[i].Position = *c.Position
		return true

	case ChangeSelect:
		i := s.nodeIndex(c.ID)
		if i < 0 || s.nodes[i].Selected == c.Selected {
			return false
		}
		s.nodes[i].Selected = c.Selected
		return true
	}
	return false
}

// ApplyEdgeChanges applies changes in order. Adds with dangling endpoints or
// duplicate IDs and changes naming unknown edges are skipped.
//
// Returns true if at least one change took effect.
func (s *Store) ApplyEdgeChanges(changes []EdgeChange) bool {
	s.mu.Lock()
	changed := false
	for _, c := range changes {
		if s.applyEdgeChange(c) {
			changed = true
		}
	}
	m := s.commit(changed, MutationEdges)
	s.mu.Unlock()

	s.notify(m)
	return changed
}

func (s *Store) applyEdgeChange(c EdgeChange) bool {
	switch c.Type {
	case ChangeAdd:
		if c.Item == nil || c.Item.ID == "" || s.edgeIndex(c.Item.ID) >= 0 {
			return false
		}
		if s.nodeIndex(c.Item.Source) < 0 || s.nodeIndex(c.Item.Target) < 0 {
			return false
		}
		s.edges = append(s.edges, *c.Item)
		return true

	case ChangeRemove:
		i := s.edgeIndex(c.ID)
		if i < 0 {
			return false
		}
		s.edges = append(s.edges[:i:i], s.edges[i+1:]...)
		return true

	case ChangeSelect:
		i := s.edgeIndex(c.ID)
		if i < 0 || s.edges[i].Selected == c.Selected {
			return false
		}
		s.edges[i].Selected = c.Selected
		return true
	}
	return false
}

// Connect appends an edge for conn if both endpoints exist.
// A dangling candidate is rejected without error: ok is false and the edge
// set is unchanged.
func (s *Store) Connect(conn Connection) (Edge, bool) {
	s.mu.Lock()
	if s.nodeIndex(conn.Source) < 0 || s.nodeIndex(conn.Target) < 0 {
		s.mu.Unlock()
		return Edge{}, false
	}
	e := Edge{
		ID:           s.ids.Generate(),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	s.edges = append(s.edges, e)
	m := s.commit(true, MutationConnect)
	s.mu.Unlock()

	s.notify(m)
	return e, true
}

// SetViewport updates the pan/zoom state. Setting the current value is a no-op.
func (s *Store) SetViewport(v Viewport) bool {
	s.mu.Lock()
	changed := s.viewport != v
	if changed {
		s.viewport = v
	}
	m := s.commit(changed, MutationViewport)
	s.mu.Unlock()

	s.notify(m)
	return changed
}

// Snapshot returns a deep copy of the current contents.
// Later mutations of the store never affect a returned snapshot.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Document{Nodes: s.nodes, Edges: s.edges, Viewport: s.viewport}.Clone()
}

// Replace swaps the whole contents for a copy of doc in one critical section.
// Readers observe either the old or the new document, never a mix.
func (s *Store) Replace(doc Document) {
	next := doc.Clone()

	s.mu.Lock()
	s.nodes = next.Nodes
	s.edges = next.Edges
	s.viewport = next.Viewport
	m := s.commit(true, MutationReplace)
	s.mu.Unlock()

	s.notify(m)
}

// commit bumps the revision for an effective mutation.
// Must be called with mu held. Returns nil when nothing changed.
func (s *Store) commit(changed bool, kind MutationKind) *Mutation {
	if !changed {
		return nil
	}
	s.revision++
	return &Mutation{Kind: kind, Revision: s.revision}
}

func (s *Store) notify(m *Mutation) {
	if m == nil {
		return
	}
	s.mu.RLock()
	fn := s.observer
	s.mu.RUnlock()
	if fn != nil {
		fn(*m)
	}
}

func (s *Store) nodeIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) edgeIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.edges {
		if s.edges[i].ID == id {
			return i
		}
	}
	return -1
}

// dropEdges returns edges without the ones matching drop, in a fresh slice.
func dropEdges(edges []Edge, drop func(Edge) bool) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if !drop(e) {
			out = append(out, e)
		}
	}
	return out
}
