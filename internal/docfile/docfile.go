// Package docfile encodes and decodes .ffgraph documents.
//
// A document file is a JSON object with the graph payload and the resource
// identifier the graph was built against:
//
//	{
//	  "nodes": [...],
//	  "edges": [...],
//	  "viewport": {"x": 0, "y": 0, "zoom": 1},
//	  "identifier": "sha256:..."
//	}
//
// The identifier is always present in encoded output; it is null when the
// identifier was never resolved.
package docfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/graph"
)

// Extension is the dedicated document extension, including the dot.
const Extension = ".ffgraph"

// DialogFilters restricts open/save dialogs to document files.
var DialogFilters = []bus.DialogFilter{{Name: "FFgraph", Extensions: []string{"ffgraph"}}}

// ErrMalformed marks a document that could not be decoded or violates the
// document invariants.
var ErrMalformed = errors.New("malformed document")

// File is the decoded content of a document file.
type File struct {
	Document   graph.Document
	Identifier string
}

type wireViewport struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Zoom *float64 `json:"zoom"`
}

type wireFile struct {
	Nodes      []graph.Node  `json:"nodes"`
	Edges      []graph.Edge  `json:"edges"`
	Viewport   *wireViewport `json:"viewport,omitempty"`
	Identifier *string       `json:"identifier"`
}

// Decode parses a document file. Missing nodes or edges decode as empty
// sequences and missing viewport fields default to the origin viewport.
//
// Errors wrap ErrMalformed.
func Decode(data []byte) (File, error) {
	var w wireFile
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := graph.Document{
		Nodes:    w.Nodes,
		Edges:    w.Edges,
		Viewport: graph.OriginViewport,
	}
	if doc.Nodes == nil {
		doc.Nodes = []graph.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}
	if v := w.Viewport; v != nil {
		if v.X != nil {
			doc.Viewport.X = *v.X
		}
		if v.Y != nil {
			doc.Viewport.Y = *v.Y
		}
		if v.Zoom != nil {
			doc.Viewport.Zoom = *v.Zoom
		}
	}

	if violations := Validate(doc); len(violations) > 0 {
		return File{}, &MalformedError{Violations: violations}
	}

	f := File{Document: doc}
	if w.Identifier != nil {
		f.Identifier = *w.Identifier
	}
	return f, nil
}

// Encode renders f as indented JSON terminated by a newline.
func Encode(f File) ([]byte, error) {
	w := wireFile{
		Nodes: f.Document.Nodes,
		Edges: f.Document.Edges,
		Viewport: &wireViewport{
			X:    &f.Document.Viewport.X,
			Y:    &f.Document.Viewport.Y,
			Zoom: &f.Document.Viewport.Zoom,
		},
	}
	if w.Nodes == nil {
		w.Nodes = []graph.Node{}
	}
	if w.Edges == nil {
		w.Edges = []graph.Edge{}
	}
	if f.Identifier != "" {
		id := f.Identifier
		w.Identifier = &id
	}

	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// HasExtension reports whether path carries the document extension.
func HasExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// WithExtension appends the document extension to path when it is missing.
func WithExtension(path string) string {
	if path == "" || HasExtension(path) {
		return path
	}
	return path + Extension
}
