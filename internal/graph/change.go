package graph

// ChangeType identifies the kind of structural delta.
type ChangeType string

const (
	ChangeAdd      ChangeType = "add"
	ChangeRemove   ChangeType = "remove"
	ChangePosition ChangeType = "position"
	ChangeSelect   ChangeType = "select"
)

// NodeChange is a structural delta over the node sequence.
//
// Which fields are meaningful depends on Type:
//   - add: Item
//   - remove: ID
//   - position: ID, Position
//   - select: ID, Selected
type NodeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Item     *Node      `json:"item,omitempty"`
	Position *Position  `json:"position,omitempty"`
	Selected bool       `json:"selected,omitempty"`
}

// EdgeChange is a structural delta over the edge sequence.
// Supported types are add, remove and select.
type EdgeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
	Selected bool       `json:"selected,omitempty"`
}

// MutationKind says which operation produced a Mutation.
type MutationKind string

const (
	MutationNodes    MutationKind = "nodes"
	MutationEdges    MutationKind = "edges"
	MutationConnect  MutationKind = "connect"
	MutationViewport MutationKind = "viewport"
	MutationReplace  MutationKind = "replace"
)

// Mutation describes one effective change to the store.
type Mutation struct {
	Kind     MutationKind
	Revision uint64
}

// NodeAdd is shorthand for an add change.
func NodeAdd(n Node) NodeChange {
	return NodeChange{Type: ChangeAdd, Item: &n}
}

// NodeRemove is shorthand for a remove change.
func NodeRemove(id string) NodeChange {
	return NodeChange{Type: ChangeRemove, ID: id}
}

// NodeMove is shorthand for a position change.
func NodeMove(id string, p Position) NodeChange {
	return NodeChange{Type: ChangePosition, ID: id, Position: &p}
}

// NodeSelect is shorthand for a select change.
func NodeSelect(id string, selected bool) NodeChange {
	return NodeChange{Type: ChangeSelect, ID: id, Selected: selected}
}

// EdgeRemove is shorthand for an edge remove change.
func EdgeRemove(id string) EdgeChange {
	return EdgeChange{Type: ChangeRemove, ID: id}
}
