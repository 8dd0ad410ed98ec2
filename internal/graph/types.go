package graph

import "reflect"

// Kind names a registered node kind.
type Kind string

const (
	KindDefault       Kind = "default"
	KindInput         Kind = "input"
	KindOutput        Kind = "output"
	KindGlobalOptions Kind = "globalOptions"
)

var registeredKinds = map[Kind]bool{
	KindDefault:       true,
	KindInput:         true,
	KindOutput:        true,
	KindGlobalOptions: true,
}

// IsRegistered reports whether k is a node kind the editor knows how to render.
// The empty kind is treated as KindDefault.
func IsRegistered(k Kind) bool {
	if k == "" {
		return true
	}
	return registeredKinds[k]
}

// Kinds returns the registered node kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindDefault, KindInput, KindOutput, KindGlobalOptions}
}

// Position is a point in flow coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the pan/zoom state of the canvas.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// OriginViewport is the viewport of a freshly created document.
var OriginViewport = Viewport{X: 0, Y: 0, Zoom: 1}

// Node is a vertex of the graph.
//
// Data is an opaque payload specific to Type. The store never interprets it
// but deep-copies it on Snapshot and Replace.
type Node struct {
	ID       string         `json:"id"`
	Type     Kind           `json:"type,omitempty"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
	Selected bool           `json:"selected,omitempty"`
}

// Edge connects two nodes. Handles discriminate between multiple ports on
// the same node and are optional.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Selected     bool   `json:"selected,omitempty"`
}

// Connection is a candidate edge produced by a drag between two handles.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Document is an immutable point-in-time copy of the store contents.
type Document struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Viewport Viewport `json:"viewport"`
}

// Empty returns an empty document at the origin viewport.
func Empty() Document {
	return Document{
		Nodes:    []Node{},
		Edges:    []Edge{},
		Viewport: OriginViewport,
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{
		Nodes:    make([]Node, len(d.Nodes)),
		Edges:    make([]Edge, len(d.Edges)),
		Viewport: d.Viewport,
	}
	for i, n := range d.Nodes {
		out.Nodes[i] = n.clone()
	}
	copy(out.Edges, d.Edges)
	return out
}

func (n Node) clone() Node {
	n.Data = cloneMap(n.Data)
	return n
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies maps and slices deeply, whatever their element types.
// Other values are shared.
func cloneValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice {
		return cloneReflect(rv).Interface()
	}
	return v
}

func cloneReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value(), rv.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out
	default:
		return rv
	}
}

func cloneElem(v reflect.Value, elemType reflect.Type) reflect.Value {
	if v.Kind() != reflect.Interface {
		return cloneReflect(v)
	}
	if v.IsNil() {
		return reflect.Zero(elemType)
	}
	return reflect.ValueOf(cloneValue(v.Elem().Interface()))
}
