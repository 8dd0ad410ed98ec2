// Package testutil provides deterministic collaborators for session tests:
// an in-memory persistence gateway, a recording shell and a manual task
// runner.
package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/docfile"
	"github.com/roach88/ffgraph/internal/graph"
	"github.com/roach88/ffgraph/internal/session"
)

// ResolveScript is the scripted behavior of one identifier resolution.
type ResolveScript struct {
	Progress []bus.Progress
	Err      error
}

// ResolvedPrefix marks identifiers produced by DefaultScript.
const ResolvedPrefix = "resolved:"

// DefaultScript resolves identifier to "resolved:<identifier>" through the
// started and loading stages. An identifier already carrying the prefix
// resolves to itself, as a digest does.
func DefaultScript(identifier string) ResolveScript {
	resolved := identifier
	if !strings.HasPrefix(identifier, ResolvedPrefix) {
		resolved = ResolvedPrefix + identifier
	}
	return ResolveScript{Progress: []bus.Progress{
		bus.Started(),
		bus.Loading(),
		bus.Completed(resolved),
	}}
}

// Write records one WriteDocument call.
type Write struct {
	Path       string
	Identifier string
	Nodes      int
	Edges      int
}

// MemoryGateway is an in-memory session.Gateway. Documents are stored
// encoded, so reads and writes go through the real document codec.
//
// Thread-safety: MemoryGateway is safe for concurrent use via internal mutex.
type MemoryGateway struct {
	mu       sync.Mutex
	files    map[string][]byte
	readErrs map[string]error
	writeErr error
	scripts  map[string]ResolveScript
	writes   []Write
	resolves []string
}

// NewMemoryGateway creates an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		files:    make(map[string][]byte),
		readErrs: make(map[string]error),
		scripts:  make(map[string]ResolveScript),
	}
}

var _ session.Gateway = (*MemoryGateway)(nil)

// PutDocument stores f at path.
func (g *MemoryGateway) PutDocument(path string, f docfile.File) {
	data, err := docfile.Encode(f)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode %s: %v", path, err))
	}
	g.PutRaw(path, data)
}

// PutRaw stores raw bytes at path.
func (g *MemoryGateway) PutRaw(path string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[path] = data
}

// Raw returns the bytes stored at path.
func (g *MemoryGateway) Raw(path string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.files[path]
	return data, ok
}

// Document decodes the document stored at path.
func (g *MemoryGateway) Document(path string) (docfile.File, bool) {
	data, ok := g.Raw(path)
	if !ok {
		return docfile.File{}, false
	}
	f, err := docfile.Decode(data)
	if err != nil {
		return docfile.File{}, false
	}
	return f, true
}

// FailRead makes reads of path fail with err.
func (g *MemoryGateway) FailRead(path string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.readErrs[path] = err
}

// FailWrites makes every write fail with err; nil restores writes.
func (g *MemoryGateway) FailWrites(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeErr = err
}

// Script sets the resolution behavior for identifier.
func (g *MemoryGateway) Script(identifier string, s ResolveScript) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[identifier] = s
}

// Writes returns the recorded WriteDocument calls.
func (g *MemoryGateway) Writes() []Write {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Write, len(g.writes))
	copy(out, g.writes)
	return out
}

// Resolves returns the identifiers passed to ResolveIdentifier, in order.
func (g *MemoryGateway) Resolves() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.resolves))
	copy(out, g.resolves)
	return out
}

// ReadDocument implements session.Gateway.
func (g *MemoryGateway) ReadDocument(_ context.Context, path string) (graph.Document, string, error) {
	g.mu.Lock()
	err := g.readErrs[path]
	data, ok := g.files[path]
	g.mu.Unlock()

	if err != nil {
		return graph.Document{}, "", err
	}
	if !ok {
		return graph.Document{}, "", fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	f, err := docfile.Decode(data)
	if err != nil {
		return graph.Document{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	return f.Document, f.Identifier, nil
}

// WriteDocument implements session.Gateway.
func (g *MemoryGateway) WriteDocument(_ context.Context, path string, doc graph.Document, identifier string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.writeErr != nil {
		return fmt.Errorf("write %s: %w", path, g.writeErr)
	}
	data, err := docfile.Encode(docfile.File{Document: doc, Identifier: identifier})
	if err != nil {
		return err
	}
	g.files[path] = data
	g.writes = append(g.writes, Write{
		Path:       path,
		Identifier: identifier,
		Nodes:      len(doc.Nodes),
		Edges:      len(doc.Edges),
	})
	return nil
}

// ResolveIdentifier implements session.Gateway by replaying the script for
// identifier (DefaultScript if none was set).
func (g *MemoryGateway) ResolveIdentifier(_ context.Context, sink session.ProgressSink, identifier string) error {
	g.mu.Lock()
	script, ok := g.scripts[identifier]
	g.resolves = append(g.resolves, identifier)
	g.mu.Unlock()

	if !ok {
		script = DefaultScript(identifier)
	}
	for _, p := range script.Progress {
		sink.Send(p)
	}
	return script.Err
}
