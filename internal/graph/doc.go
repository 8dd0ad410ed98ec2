// Package graph implements the in-memory graph state store.
//
// The store is the single source of truth for the currently displayed
// document: an ordered node sequence, an ordered edge sequence, and a
// viewport. It is mutated by structural deltas coming from the rendering
// surface (ApplyNodeChanges, ApplyEdgeChanges, Connect, SetViewport) and
// by whole-document loads (Replace).
//
// INVARIANTS:
//   - Node IDs are unique within the store
//   - Every edge references two node IDs present in the store
//   - Unaffected nodes and edges keep their identity and relative order
//
// Invalid deltas (unknown IDs, dangling edge endpoints, unregistered node
// kinds) are rejected silently. They are not errors: the rendering surface
// routinely emits deltas for elements it is about to drop.
//
// Every effective mutation bumps Revision and notifies the observer
// registered with OnChange. Snapshot returns a deep, point-in-time copy.
package graph
