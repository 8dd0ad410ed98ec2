package docfile

import (
	"fmt"
	"strings"

	"github.com/roach88/ffgraph/internal/graph"
)

// Violation is one broken document invariant.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// MalformedError lists every invariant violation found while decoding.
type MalformedError struct {
	Violations []Violation
}

func (e *MalformedError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrMalformed, strings.Join(parts, "; "))
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Validate checks the document invariants:
//   - node IDs are non-empty and unique
//   - node kinds are registered
//   - edge IDs are non-empty and unique
//   - every edge references two existing nodes
func Validate(doc graph.Document) []Violation {
	var out []Violation

	nodes := make(map[string]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		switch {
		case n.ID == "":
			out = append(out, Violation{Field: field + ".id", Message: "node id is required"})
		case nodes[n.ID]:
			out = append(out, Violation{Field: field + ".id", Message: fmt.Sprintf("duplicate node id %q", n.ID)})
		}
		nodes[n.ID] = true

		if !graph.IsRegistered(n.Type) {
			out = append(out, Violation{Field: field + ".type", Message: fmt.Sprintf("unregistered node type %q", n.Type)})
		}
	}

	edges := make(map[string]bool, len(doc.Edges))
	for i, e := range doc.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		switch {
		case e.ID == "":
			out = append(out, Violation{Field: field + ".id", Message: "edge id is required"})
		case edges[e.ID]:
			out = append(out, Violation{Field: field + ".id", Message: fmt.Sprintf("duplicate edge id %q", e.ID)})
		}
		edges[e.ID] = true

		if !nodes[e.Source] || e.Source == "" {
			out = append(out, Violation{Field: field + ".source", Message: fmt.Sprintf("unknown node %q", e.Source)})
		}
		if !nodes[e.Target] || e.Target == "" {
			out = append(out, Violation{Field: field + ".target", Message: fmt.Sprintf("unknown node %q", e.Target)})
		}
	}

	return out
}
